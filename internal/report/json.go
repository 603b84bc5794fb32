package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperifyio/goharvest/internal/aggregate"
)

// jsonBundle is the serialized shape handed to downstream consumers. It is
// an ad hoc dump of the in-memory bundle, not a stable wire contract.
type jsonBundle struct {
	Topic              string         `json:"topic"`
	Documents          []jsonDocument `json:"documents"`
	TotalContentLength int            `json:"total_content_length"`
	MethodsUsed        []string       `json:"methods_used"`
	URLsProcessed      int            `json:"urls_processed"`
	Successful         int            `json:"successful_extractions"`
	Summary            string         `json:"extraction_summary"`
	Timestamp          string         `json:"timestamp"`
}

type jsonDocument struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ContentLength int      `json:"content_length"`
	SourceDomain  string   `json:"source_domain"`
	Method        string   `json:"extraction_method"`
	Attempt       int      `json:"attempt"`
	Summary       string   `json:"summary,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	PublishDate   string   `json:"publish_date,omitempty"`
}

// WriteJSON dumps the bundle to path as indented JSON.
func WriteJSON(b aggregate.Bundle, path string) error {
	out := jsonBundle{
		Topic:              b.Topic,
		Documents:          make([]jsonDocument, 0, len(b.Documents)),
		TotalContentLength: b.TotalContentLength,
		MethodsUsed:        b.Methods(),
		URLsProcessed:      b.URLsProcessed,
		Successful:         len(b.Documents),
		Summary:            SummaryLine(b),
		Timestamp:          b.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, d := range b.Documents {
		out.Documents = append(out.Documents, jsonDocument{
			URL:           d.URL,
			Title:         d.Title,
			Content:       d.Content,
			ContentLength: d.ContentLength,
			SourceDomain:  d.SourceDomain,
			Method:        string(d.Method),
			Attempt:       d.Attempt,
			Summary:       d.Summary,
			Keywords:      d.Keywords,
			PublishDate:   d.PublishDate,
		})
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SummaryLine condenses a bundle into the one-line extraction summary used
// across the report formats.
func SummaryLine(b aggregate.Bundle) string {
	rate := 0.0
	if b.URLsProcessed > 0 {
		rate = float64(len(b.Documents)) / float64(b.URLsProcessed) * 100
	}
	return fmt.Sprintf("Extracted %d/%d sources (%.1f%% success)", len(b.Documents), b.URLsProcessed, rate)
}
