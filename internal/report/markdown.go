package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperifyio/goharvest/internal/aggregate"
)

// RenderMarkdown builds the Markdown research report for a bundle.
func RenderMarkdown(b aggregate.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Report: %s\n\n", b.Topic)
	fmt.Fprintf(&sb, "Generated: %s\n\n", b.Timestamp.Format("2006-01-02 15:04 MST"))

	sb.WriteString("## Overview\n\n")
	fmt.Fprintf(&sb, "- %s\n", SummaryLine(b))
	fmt.Fprintf(&sb, "- Total content: %d characters\n", b.TotalContentLength)
	if methods := b.Methods(); len(methods) > 0 {
		fmt.Fprintf(&sb, "- Extraction methods: %s\n", strings.Join(methods, ", "))
	}
	sb.WriteString("\n")

	if len(b.Documents) == 0 {
		sb.WriteString("No sources could be extracted for this topic.\n")
		return sb.String()
	}

	sb.WriteString("## Sources\n\n")
	for i, d := range b.Documents {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, d.Title)
		fmt.Fprintf(&sb, "- URL: %s\n", d.URL)
		fmt.Fprintf(&sb, "- Domain: %s\n", d.SourceDomain)
		fmt.Fprintf(&sb, "- Method: %s (attempt %d)\n", d.Method, d.Attempt)
		fmt.Fprintf(&sb, "- Length: %d characters\n", d.ContentLength)
		if d.PublishDate != "" {
			fmt.Fprintf(&sb, "- Published: %s\n", d.PublishDate)
		}
		if len(d.Keywords) > 0 {
			fmt.Fprintf(&sb, "- Keywords: %s\n", strings.Join(d.Keywords, ", "))
		}
		sb.WriteString("\n")
		if d.Summary != "" {
			fmt.Fprintf(&sb, "> %s\n\n", d.Summary)
		}
		sb.WriteString(d.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## References\n\n")
	for i, d := range b.Documents {
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, d.Title, d.URL)
	}
	return sb.String()
}

// WriteMarkdown renders the bundle and writes it to path.
func WriteMarkdown(b aggregate.Bundle, path string) error {
	return os.WriteFile(path, []byte(RenderMarkdown(b)), 0o644)
}
