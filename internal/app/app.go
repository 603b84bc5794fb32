package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goharvest/internal/aggregate"
	"github.com/hyperifyio/goharvest/internal/analyze"
	"github.com/hyperifyio/goharvest/internal/cache"
	"github.com/hyperifyio/goharvest/internal/discover"
	"github.com/hyperifyio/goharvest/internal/fetch"
	"github.com/hyperifyio/goharvest/internal/headers"
	"github.com/hyperifyio/goharvest/internal/pipeline"
	"github.com/hyperifyio/goharvest/internal/report"
	"github.com/hyperifyio/goharvest/internal/robots"
	"github.com/hyperifyio/goharvest/internal/synth"
)

// App wires discovery, extraction, aggregation and reporting into one run.
type App struct {
	cfg Config
	ai  synth.Client
}

// New validates cfg, fills defaults and constructs the app. The LLM client
// is only built when a model is configured; everything else works offline.
func New(cfg Config) (*App, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrMissingTopic
	}
	cfg.applyDefaults()

	a := &App{cfg: cfg}
	if cfg.LLMModel != "" {
		c := openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMBaseURL != "" {
			c.BaseURL = cfg.LLMBaseURL
		}
		a.ai = openai.NewClientWithConfig(c)
	}
	return a, nil
}

// Run executes the full topic harvest: discover candidate URLs, extract
// documents through the fallback chain, aggregate, analyze and write the
// requested reports. It returns ErrNoDocuments only in strict mode.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg
	start := time.Now()

	if err := a.maintainCache(); err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	urls := a.discoverURLs(ctx)
	log.Info().Str("topic", cfg.Topic).Int("candidates", len(urls)).Msg("discovery complete")

	if cfg.RespectRobots {
		urls = a.filterRobots(ctx, urls)
	}

	var httpCache *cache.HTTPCache
	if cfg.CacheDir != "" {
		httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}
	client := &fetch.Client{
		Headers:           headers.DefaultPool(),
		PerRequestTimeout: cfg.PerRequestTimeout,
		MaxConcurrent:     cfg.Concurrency,
		Cache:             httpCache,
		Rand:              rand.New(rand.NewSource(seed)),
	}
	extractor := pipeline.NewExtractor(client)
	if cfg.Concurrent {
		extractor.Backoff = pipeline.ConcurrentBackoff()
	}
	extractor.Backoff.Rand = rand.New(rand.NewSource(seed + 1))

	agg := &aggregate.Aggregator{
		Extractor: extractor,
		PerHost:   cfg.PerHost,
	}
	if cfg.Concurrent {
		agg.Concurrency = cfg.Concurrency
	}

	bundle := agg.Aggregate(ctx, cfg.Topic, urls, cfg.MaxDocuments)
	log.Info().
		Int("documents", len(bundle.Documents)).
		Int("urls", bundle.URLsProcessed).
		Int("chars", bundle.TotalContentLength).
		Strs("methods", bundle.Methods()).
		Dur("elapsed", time.Since(start)).
		Msg(report.SummaryLine(bundle))

	analysis := analyze.Analyze(bundle)
	log.Info().
		Int("avgLength", analysis.Metrics.AverageLength).
		Int("domains", analysis.Diversity.UniqueDomains).
		Float64("coverage", analysis.Coverage.AverageScore).
		Msg("content analysis")

	summary := a.summarize(ctx, bundle)

	if err := a.writeReports(bundle, analysis, summary); err != nil {
		return err
	}

	if len(bundle.Documents) == 0 {
		if cfg.Strict {
			return ErrNoDocuments
		}
		log.Warn().Str("topic", cfg.Topic).Msg("run produced an empty bundle")
	}
	return nil
}

func (a *App) maintainCache() error {
	cfg := a.cfg
	if cfg.CacheDir == "" {
		return nil
	}
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", cfg.CacheDir).Msg("cache cleared")
	}
	if cfg.CacheMaxAge > 0 {
		n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		if err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
		if n > 0 {
			log.Info().Int("removed", n).Str("dir", cfg.CacheDir).Msg("cache purged by age")
		}
	}
	return nil
}

func (a *App) discoverURLs(ctx context.Context) []string {
	cfg := a.cfg
	var providers []discover.Provider
	if cfg.SearxURL != "" {
		providers = append(providers, &discover.SearxNG{
			BaseURL:   cfg.SearxURL,
			APIKey:    cfg.SearxKey,
			UserAgent: cfg.SearxUA,
		})
	}
	if cfg.SearchFile != "" {
		providers = append(providers, &discover.FileProvider{Path: cfg.SearchFile})
	}
	d := &discover.Director{
		Providers: providers,
		Fallback:  discover.DefaultTable(),
	}
	return d.URLs(ctx, cfg.Topic, cfg.MaxSources)
}

func (a *App) filterRobots(ctx context.Context, urls []string) []string {
	mgr := &robots.Manager{UserAgent: a.cfg.SearxUA}
	kept := urls[:0]
	for _, u := range urls {
		if mgr.Allowed(ctx, u) {
			kept = append(kept, u)
		} else {
			log.Debug().Str("url", u).Msg("skipped by robots.txt")
		}
	}
	if len(kept) < len(urls) {
		log.Info().Int("skipped", len(urls)-len(kept)).Msg("robots.txt filtered candidates")
	}
	return kept
}

func (a *App) summarize(ctx context.Context, b aggregate.Bundle) string {
	cfg := a.cfg
	if a.ai == nil || len(b.Documents) == 0 {
		return ""
	}
	s := &synth.Summarizer{Client: a.ai, Model: cfg.LLMModel}
	if cfg.CacheDir != "" {
		s.Cache = &cache.LLMCache{Dir: cfg.CacheDir}
	}
	out, err := s.Summarize(ctx, b)
	if err != nil {
		log.Warn().Err(err).Msg("AI summary failed; continuing with plain report")
		return ""
	}
	return out
}

func (a *App) writeReports(b aggregate.Bundle, analysis analyze.Report, summary string) error {
	cfg := a.cfg
	if cfg.OutputJSON != "" {
		if err := report.WriteJSON(b, cfg.OutputJSON); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		if err := writeAnalysisJSON(analysis, analysisPath(cfg.OutputJSON)); err != nil {
			return fmt.Errorf("write analysis: %w", err)
		}
		log.Info().Str("path", cfg.OutputJSON).Msg("wrote JSON bundle")
	}
	if cfg.OutputMarkdown != "" {
		md := report.RenderMarkdown(b)
		if summary != "" {
			md = md + "\n## AI Summary\n\n" + strings.TrimSpace(summary) + "\n"
		}
		if err := os.WriteFile(cfg.OutputMarkdown, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
		log.Info().Str("path", cfg.OutputMarkdown).Msg("wrote Markdown report")
	}
	if cfg.OutputPDF != "" {
		if err := report.WritePDF(b, cfg.OutputPDF); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("path", cfg.OutputPDF).Msg("wrote PDF report")
	}
	return nil
}

// analysisPath derives the analysis sidecar name from the bundle path,
// e.g. results.json -> results.analysis.json.
func analysisPath(jsonPath string) string {
	if strings.HasSuffix(jsonPath, ".json") {
		return strings.TrimSuffix(jsonPath, ".json") + ".analysis.json"
	}
	return jsonPath + ".analysis.json"
}

func writeAnalysisJSON(r analyze.Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(string(data)+"\n"), 0o644)
}
