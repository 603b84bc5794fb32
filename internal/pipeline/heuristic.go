package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in order; the first whose text clears the
// acceptance threshold wins.
var contentSelectors = []string{
	"article",
	`[role="main"]`,
	".content",
	".post-content",
	".entry-content",
	".article-content",
	".blog-content",
	".post-body",
	".entry-body",
	"main",
	".main-content",
	"#content",
	".content-area",
	".post-text",
	".article-text",
}

const (
	selectorMinChars   = 300
	paragraphMinChars  = 50
	paragraphsMinChars = 200
)

// HeuristicStrategy scrapes the raw HTML: boilerplate elements are
// dropped, then known content containers are probed in priority order,
// falling back to paragraph concatenation and finally the whole body.
type HeuristicStrategy struct {
	Client Getter
}

func (s *HeuristicStrategy) Method() Method { return MethodHeuristic }

func (s *HeuristicStrategy) Extract(ctx context.Context, target *url.URL) (*ExtractedDocument, error) {
	body, _, err := s.Client.Get(ctx, target.String())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := normalizeText(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitle
	}

	doc.Find("script, style, nav, header, footer").Remove()

	text := mainContent(doc)
	out := &ExtractedDocument{
		URL:           target.String(),
		Title:         title,
		Content:       truncateChars(text, MaxContentChars),
		ContentLength: charLen(text),
		SourceDomain:  target.Host,
		Method:        s.Method(),
	}
	if out.ContentLength <= MinContentChars {
		return nil, fmt.Errorf("%w: %d chars", ErrTooShort, out.ContentLength)
	}
	return out, nil
}

// mainContent runs the three sub-steps in order. The final body fallback
// is accepted unconditionally; the viability floor is the caller's job.
func mainContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if text := normalizeText(el.Text()); charLen(text) > selectorMinChars {
			return text
		}
	}

	var parts []string
	doc.Find("body p").Each(func(_ int, p *goquery.Selection) {
		if t := normalizeText(p.Text()); charLen(t) > paragraphMinChars {
			parts = append(parts, t)
		}
	})
	if joined := strings.Join(parts, " "); charLen(joined) > paragraphsMinChars {
		return joined
	}

	return normalizeText(doc.Find("body").Text())
}
