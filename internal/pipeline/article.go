package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"
	trafilatura "github.com/markusmobius/go-trafilatura"
)

// ArticleStrategy treats the page as an article: boilerplate removal via
// trafilatura with a readability fallback, plus metadata (summary,
// keywords, publish date) when the page exposes it.
type ArticleStrategy struct {
	Client Getter
}

func (s *ArticleStrategy) Method() Method { return MethodArticle }

func (s *ArticleStrategy) Extract(ctx context.Context, target *url.URL) (*ExtractedDocument, error) {
	body, _, err := s.Client.Get(ctx, target.String())
	if err != nil {
		return nil, err
	}

	doc := &ExtractedDocument{
		URL:          target.String(),
		Title:        NoTitle,
		SourceDomain: target.Host,
		Method:       s.Method(),
	}

	res, terr := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		EnableFallback: true,
		OriginalURL:    target,
	})
	if terr == nil {
		text := normalizeText(res.ContentText)
		doc.Content = text
		doc.ContentLength = charLen(text)
		if t := normalizeText(res.Metadata.Title); t != "" {
			doc.Title = t
		}
		doc.Summary = normalizeText(res.Metadata.Description)
		if len(res.Metadata.Tags) > 0 {
			doc.Keywords = append([]string(nil), res.Metadata.Tags...)
		} else if len(res.Metadata.Categories) > 0 {
			doc.Keywords = append([]string(nil), res.Metadata.Categories...)
		}
		if !res.Metadata.Date.IsZero() {
			doc.PublishDate = res.Metadata.Date.Format("2006-01-02")
		}
	}

	// Readability is the second opinion when trafilatura errors out or
	// finds only a sliver of text.
	if terr != nil || doc.ContentLength <= MinContentChars {
		art, rerr := readability.FromReader(bytes.NewReader(body), target)
		if rerr != nil {
			if terr != nil {
				return nil, fmt.Errorf("article parse: %w", terr)
			}
			return nil, fmt.Errorf("%w: %d chars", ErrTooShort, doc.ContentLength)
		}
		if text := normalizeText(art.TextContent); charLen(text) > doc.ContentLength {
			doc.Content = text
			doc.ContentLength = charLen(text)
		}
		if doc.Title == NoTitle {
			if t := normalizeText(art.Title); t != "" {
				doc.Title = t
			}
		}
		if doc.Summary == "" {
			doc.Summary = normalizeText(art.Excerpt)
		}
	}

	if doc.ContentLength <= MinContentChars {
		return nil, fmt.Errorf("%w: %d chars", ErrTooShort, doc.ContentLength)
	}
	doc.Content = truncateChars(doc.Content, MaxContentChars)
	return doc, nil
}
