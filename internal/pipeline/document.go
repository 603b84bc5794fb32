package pipeline

import "unicode/utf8"

// Method tags which extraction strategy produced a document.
type Method string

const (
	MethodArticle   Method = "article_parser"
	MethodHeuristic Method = "heuristic_html"
	MethodRaw       Method = "raw_strip"
)

// Content limits, in characters. ContentLength always records the
// untruncated length; the stored Content is capped per strategy.
const (
	// MinContentChars is the viability floor. Extractions at or below it
	// count as failures, never as valid short documents.
	MinContentChars = 100
	// MaxContentChars caps stored content for article and heuristic output.
	MaxContentChars = 8000
	// MaxRawContentChars caps stored content for raw tag-stripped output.
	MaxRawContentChars = 5000
)

// NoTitle is the sentinel used when a page yields no usable title.
const NoTitle = "No title"

// ExtractedDocument is the immutable result of successfully extracting one
// URL. Summary, Keywords and PublishDate are populated only by the
// structured article strategy.
type ExtractedDocument struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ContentLength int      `json:"content_length"`
	SourceDomain  string   `json:"source_domain"`
	Method        Method   `json:"extraction_method"`
	Attempt       int      `json:"attempt"`
	Summary       string   `json:"summary,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	PublishDate   string   `json:"publish_date,omitempty"`
}

// truncateChars cuts s to at most max characters without splitting a rune.
func truncateChars(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// charLen counts characters rather than bytes so multi-byte pages measure
// the same as their visible text.
func charLen(s string) int { return utf8.RuneCountInString(s) }
