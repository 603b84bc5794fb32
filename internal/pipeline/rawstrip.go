package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

var (
	// Script and style payloads are cut before tag stripping so leftover
	// JS/CSS text does not pass for content.
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// RawTitle is the title used for documents produced by tag stripping,
// which never sees a parsed <title> element.
const RawTitle = "Extracted Content"

// RawStripStrategy is the last resort: drop every tag by pattern
// substitution and collapse whatever text remains.
type RawStripStrategy struct {
	Client Getter
}

func (s *RawStripStrategy) Method() Method { return MethodRaw }

func (s *RawStripStrategy) Extract(ctx context.Context, target *url.URL) (*ExtractedDocument, error) {
	body, _, err := s.Client.Get(ctx, target.String())
	if err != nil {
		return nil, err
	}
	text := scriptStyleRe.ReplaceAllString(string(body), " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = normalizeText(text)

	doc := &ExtractedDocument{
		URL:           target.String(),
		Title:         RawTitle,
		Content:       truncateChars(text, MaxRawContentChars),
		ContentLength: charLen(text),
		SourceDomain:  target.Host,
		Method:        s.Method(),
	}
	if doc.ContentLength <= MinContentChars {
		return nil, fmt.Errorf("%w: %d chars", ErrTooShort, doc.ContentLength)
	}
	return doc, nil
}
