package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goharvest/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		topic          string
		configPath     string
		maxSources     int
		maxDocuments   int
		concurrent     bool
		concurrency    int
		perHost        int
		outputJSON     string
		outputMarkdown string
		outputPDF      string
		searxURL       string
		searxKey       string
		searxUA        string
		fileSearchPath string
		llmBaseURL     string
		llmModel       string
		llmKey         string
		cacheDir       string
		cacheMaxAge    time.Duration
		cacheClear     bool
		respectRobots  bool
		timeout        time.Duration
		strict         bool
		seed           int64
		verbose        bool
	)

	flag.StringVar(&topic, "topic", "", "Research topic to harvest sources for")
	flag.StringVar(&configPath, "config", os.Getenv("GOHARVEST_CONFIG"), "Path to YAML or JSON config file")
	flag.IntVar(&maxSources, "max.sources", 0, "Maximum candidate URLs from discovery (default 12)")
	flag.IntVar(&maxDocuments, "max.documents", 0, "Maximum extracted documents in the bundle (0 = no cap)")
	flag.BoolVar(&concurrent, "concurrent", false, "Extract URLs with the bounded worker pool instead of sequentially")
	flag.IntVar(&concurrency, "concurrency", 0, "Worker pool size for concurrent mode (default 5)")
	flag.IntVar(&perHost, "perHost", 0, "Concurrent extraction cap per host (default 2)")
	flag.StringVar(&outputJSON, "output.json", "", "Path to write the extracted bundle as JSON")
	flag.StringVar(&outputMarkdown, "output.md", "", "Path to write the Markdown report")
	flag.StringVar(&outputPDF, "output.pdf", "", "Path to write the PDF report")
	flag.StringVar(&searxURL, "searx.url", os.Getenv("SEARX_URL"), "SearxNG base URL for source discovery")
	flag.StringVar(&searxKey, "searx.key", os.Getenv("SEARX_KEY"), "SearxNG API key (optional)")
	flag.StringVar(&searxUA, "searx.ua", "", "Custom User-Agent for discovery and robots requests")
	flag.StringVar(&fileSearchPath, "search.file", os.Getenv("SEARCH_FILE"), "Path to JSON file for offline file-based search provider")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL for the optional AI summary")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name; empty disables the AI summary")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.StringVar(&cacheDir, "cache.dir", "", "HTTP/LLM cache directory; empty disables caching")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&respectRobots, "robots", false, "Filter candidate URLs through robots.txt")
	flag.DurationVar(&timeout, "timeout", 0, "Per-request timeout (default 15s)")
	flag.BoolVar(&strict, "strict", false, "Exit non-zero when no documents could be extracted")
	flag.Int64Var(&seed, "seed", 0, "Fixed seed for header rotation and pacing jitter (0 = random)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	// Positional topic is accepted too: goharvest "quantum computing".
	if topic == "" && flag.NArg() > 0 {
		topic = flag.Arg(0)
	}

	cfg := app.Config{
		Topic:             topic,
		MaxSources:        maxSources,
		MaxDocuments:      maxDocuments,
		Concurrent:        concurrent,
		Concurrency:       concurrency,
		PerHost:           perHost,
		OutputJSON:        outputJSON,
		OutputMarkdown:    outputMarkdown,
		OutputPDF:         outputPDF,
		SearxURL:          searxURL,
		SearxKey:          searxKey,
		SearxUA:           searxUA,
		SearchFile:        fileSearchPath,
		LLMBaseURL:        llmBaseURL,
		LLMModel:          llmModel,
		LLMAPIKey:         llmKey,
		CacheDir:          cacheDir,
		CacheMaxAge:       cacheMaxAge,
		CacheClear:        cacheClear,
		RespectRobots:     respectRobots,
		PerRequestTimeout: timeout,
		Strict:            strict,
		Seed:              seed,
		Verbose:           verbose,
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("failed to load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	a, err := app.New(cfg)
	if err != nil {
		if errors.Is(err, app.ErrMissingTopic) {
			fmt.Fprintln(os.Stderr, "usage: goharvest -topic \"subject\" [flags], or goharvest \"subject\"")
			flag.PrintDefaults()
			os.Exit(1)
		}
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, app.ErrNoDocuments) {
			log.Error().Str("topic", cfg.Topic).Msg("no documents extracted")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
