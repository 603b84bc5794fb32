package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections
// mirror the dotted flag names so a file and flags read the same way.
type FileConfig struct {
	Topic string `yaml:"topic" json:"topic"`

	Output struct {
		JSON     string `yaml:"json" json:"json"`
		Markdown string `yaml:"markdown" json:"markdown"`
		PDF      string `yaml:"pdf" json:"pdf"`
	} `yaml:"output" json:"output"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
		UA  string `yaml:"ua" json:"ua"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Max struct {
		Sources   int `yaml:"sources" json:"sources"`
		Documents int `yaml:"documents" json:"documents"`
	} `yaml:"max" json:"max"`

	Concurrent  bool `yaml:"concurrent" json:"concurrent"`
	Concurrency int  `yaml:"concurrency" json:"concurrency"`
	PerHost     int  `yaml:"perHost" json:"perHost"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Robots  bool `yaml:"robots" json:"robots"`
	Strict  bool `yaml:"strict" json:"strict"`
	Verbose bool `yaml:"verbose" json:"verbose"`

	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Seed    int64         `yaml:"seed" json:"seed"`
}

// LoadConfigFile reads YAML or JSON into FileConfig. Extension picks
// the parser; unknown extensions try YAML first, then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any
// fields that are currently unset/zero in cfg. Flags should already
// have been parsed; the file supplies defaults while explicit flags
// keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Topic == "" && fc.Topic != "" {
		cfg.Topic = fc.Topic
	}
	if cfg.OutputJSON == "" && fc.Output.JSON != "" {
		cfg.OutputJSON = fc.Output.JSON
	}
	if cfg.OutputMarkdown == "" && fc.Output.Markdown != "" {
		cfg.OutputMarkdown = fc.Output.Markdown
	}
	if cfg.OutputPDF == "" && fc.Output.PDF != "" {
		cfg.OutputPDF = fc.Output.PDF
	}
	if cfg.SearxURL == "" && fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if cfg.SearxKey == "" && fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if cfg.SearxUA == "" && fc.Searx.UA != "" {
		cfg.SearxUA = fc.Searx.UA
	}
	if cfg.SearchFile == "" && fc.Search.File != "" {
		cfg.SearchFile = fc.Search.File
	}
	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.MaxSources == 0 && fc.Max.Sources > 0 {
		cfg.MaxSources = fc.Max.Sources
	}
	if cfg.MaxDocuments == 0 && fc.Max.Documents > 0 {
		cfg.MaxDocuments = fc.Max.Documents
	}
	if !cfg.Concurrent && fc.Concurrent {
		cfg.Concurrent = true
	}
	if cfg.Concurrency == 0 && fc.Concurrency > 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if cfg.PerHost == 0 && fc.PerHost > 0 {
		cfg.PerHost = fc.PerHost
	}
	if cfg.CacheDir == "" && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.RespectRobots && fc.Robots {
		cfg.RespectRobots = true
	}
	if !cfg.Strict && fc.Strict {
		cfg.Strict = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	if cfg.PerRequestTimeout == 0 && fc.Timeout > 0 {
		cfg.PerRequestTimeout = fc.Timeout
	}
	if cfg.Seed == 0 && fc.Seed != 0 {
		cfg.Seed = fc.Seed
	}
}
