package app

import (
	"errors"
	"time"
)

// Config carries every knob the CLI exposes. Zero values mean
// "use the built-in default" and are resolved in New.
type Config struct {
	// Topic is the research subject used for discovery and reporting.
	Topic string

	// MaxSources caps how many candidate URLs discovery may yield.
	MaxSources int
	// MaxDocuments caps how many successfully extracted documents the
	// bundle may hold. 0 means no cap.
	MaxDocuments int

	// Concurrent switches from the sequential loop to the bounded
	// worker pool. Concurrency and PerHost tune the pool.
	Concurrent  bool
	Concurrency int
	PerHost     int

	// Output paths. Empty disables the corresponding artifact.
	OutputJSON     string
	OutputMarkdown string
	OutputPDF      string

	// SearxNG discovery provider.
	SearxURL string
	SearxKey string
	SearxUA  string

	// SearchFile is an offline JSON provider for hermetic runs.
	SearchFile string

	// OpenAI-compatible endpoint for the optional topic summary.
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// HTTP cache.
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// RespectRobots filters candidate URLs through robots.txt.
	RespectRobots bool

	// PerRequestTimeout bounds each fetch attempt.
	PerRequestTimeout time.Duration

	// Strict makes an empty bundle a failure instead of a warning.
	Strict bool

	// Seed fixes the rng used for header rotation and delays.
	// 0 seeds from the clock.
	Seed int64

	Verbose bool
}

// ErrNoDocuments is returned by Run in strict mode when the bundle
// ends up empty.
var ErrNoDocuments = errors.New("no documents extracted")

// ErrMissingTopic is returned when no topic was provided.
var ErrMissingTopic = errors.New("topic is required")

func (c *Config) applyDefaults() {
	if c.MaxSources <= 0 {
		c.MaxSources = 12
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.PerHost <= 0 {
		c.PerHost = 2
	}
	if c.PerRequestTimeout <= 0 {
		c.PerRequestTimeout = 15 * time.Second
	}
	if c.SearxUA == "" {
		c.SearxUA = "goharvest/1.0 (+https://github.com/hyperifyio/goharvest)"
	}
}
