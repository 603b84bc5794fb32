package discover

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider loads candidate URLs from a local JSON file for offline
// runs and tests. The file holds an array of objects:
// {"title": "...", "url": "...", "snippet": "..."}.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Discover(_ context.Context, topic string, max int) ([]string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(topic))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Snippet), q) {
			out = append(out, r.URL)
			if max > 0 && len(out) >= max {
				break
			}
		}
	}
	return out, nil
}
