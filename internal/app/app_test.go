package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRequiresTopic(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingTopic) {
		t.Fatalf("expected ErrMissingTopic, got %v", err)
	}
	if _, err := New(Config{Topic: "   "}); !errors.Is(err, ErrMissingTopic) {
		t.Fatalf("whitespace topic should be rejected, got %v", err)
	}
}

func TestApplyFileConfigFlagsWin(t *testing.T) {
	cfg := Config{
		Topic:      "from flags",
		MaxSources: 7,
		SearxURL:   "http://flags.example",
	}
	var fc FileConfig
	fc.Topic = "from file"
	fc.Max.Sources = 20
	fc.Max.Documents = 4
	fc.Searx.URL = "http://file.example"
	fc.Output.JSON = "out.json"
	fc.Strict = true

	ApplyFileConfig(&cfg, fc)

	if cfg.Topic != "from flags" {
		t.Fatalf("flag topic overridden: %q", cfg.Topic)
	}
	if cfg.MaxSources != 7 {
		t.Fatalf("flag max sources overridden: %d", cfg.MaxSources)
	}
	if cfg.SearxURL != "http://flags.example" {
		t.Fatalf("flag searx url overridden: %q", cfg.SearxURL)
	}
	// Fields the flags left unset come from the file.
	if cfg.MaxDocuments != 4 {
		t.Fatalf("file max documents not applied: %d", cfg.MaxDocuments)
	}
	if cfg.OutputJSON != "out.json" {
		t.Fatalf("file output not applied: %q", cfg.OutputJSON)
	}
	if !cfg.Strict {
		t.Fatal("file strict not applied")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goharvest.yaml")
	body := `topic: renewable energy
output:
  json: bundle.json
  markdown: report.md
searx:
  url: http://searx.local
max:
  sources: 9
  documents: 3
concurrent: true
cache:
  dir: .cache
seed: 42
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.Topic != "renewable energy" || fc.Output.JSON != "bundle.json" {
		t.Fatalf("unexpected parse: %+v", fc)
	}
	if fc.Max.Sources != 9 || fc.Max.Documents != 3 || !fc.Concurrent {
		t.Fatalf("unexpected limits: %+v", fc)
	}
	if fc.Cache.Dir != ".cache" || fc.Seed != 42 {
		t.Fatalf("unexpected cache/seed: %+v", fc)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goharvest.json")
	if err := os.WriteFile(path, []byte(`{"topic":"ai","max":{"sources":5}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.Topic != "ai" || fc.Max.Sources != 5 {
		t.Fatalf("unexpected parse: %+v", fc)
	}
}

func TestAnalysisPath(t *testing.T) {
	if got := analysisPath("results.json"); got != "results.analysis.json" {
		t.Fatalf("analysisPath: %q", got)
	}
	if got := analysisPath("bundle"); got != "bundle.analysis.json" {
		t.Fatalf("analysisPath without ext: %q", got)
	}
}

func TestRunOfflineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end run with pacing delays in short mode")
	}
	article := strings.Repeat("Solar adoption keeps growing across markets. ", 12)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Solar Outlook</title></head><body><article><p>%s</p></article></body></html>`, article)
	}))
	defer srv.Close()

	dir := t.TempDir()
	searchFile := filepath.Join(dir, "results.json")
	results := fmt.Sprintf(`[{"title":"solar power outlook","url":"%s/report","snippet":"solar power"}]`, srv.URL)
	if err := os.WriteFile(searchFile, []byte(results), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		Topic:          "solar power",
		SearchFile:     searchFile,
		MaxSources:     3,
		MaxDocuments:   2,
		OutputJSON:     filepath.Join(dir, "bundle.json"),
		OutputMarkdown: filepath.Join(dir, "report.md"),
		Seed:           1,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(cfg.OutputJSON)
	if err != nil {
		t.Fatalf("bundle not written: %v", err)
	}
	var bundle struct {
		Topic     string `json:"topic"`
		Documents []struct {
			URL string `json:"url"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(raw, &bundle); err != nil {
		t.Fatalf("bundle json: %v", err)
	}
	if bundle.Topic != "solar power" || len(bundle.Documents) != 1 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}

	md, err := os.ReadFile(cfg.OutputMarkdown)
	if err != nil {
		t.Fatalf("markdown not written: %v", err)
	}
	if !strings.Contains(string(md), "Solar Outlook") {
		t.Fatalf("markdown missing source title:\n%s", md)
	}

	if _, err := os.Stat(analysisPath(cfg.OutputJSON)); err != nil {
		t.Fatalf("analysis sidecar not written: %v", err)
	}
}
