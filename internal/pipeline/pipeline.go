package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goharvest/internal/fetch"
)

// DefaultMaxRetries is the number of attempt rounds allowed per URL.
const DefaultMaxRetries = 3

// Extractor runs the strategy chain with retry rounds and backoff. One
// Extractor is safe for concurrent use across URLs.
type Extractor struct {
	// Strategies are tried in order each round; the first success wins the
	// round. Empty uses the default article/heuristic/raw chain.
	Strategies []Strategy
	// MaxRetries is the attempt-round budget. Zero means DefaultMaxRetries.
	MaxRetries int
	// Backoff paces requests and retries. Nil uses DefaultBackoff.
	Backoff *Backoff
}

// NewExtractor wires the standard three-strategy chain over one fetch client.
func NewExtractor(client Getter) *Extractor {
	return &Extractor{
		Strategies: []Strategy{
			&ArticleStrategy{Client: client},
			&HeuristicStrategy{Client: client},
			&RawStripStrategy{Client: client},
		},
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff(),
	}
}

// Extract tries every strategy over up to MaxRetries rounds and returns the
// first viable document, or nil when the URL yields nothing. Failures are
// logged and swallowed; a nil result is the only failure signal, so one bad
// URL never aborts a topic run. A malformed URL fails immediately without
// consuming a round.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *ExtractedDocument {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || target.Scheme == "" || target.Host == "" {
		log.Warn().Str("url", rawURL).Msg("malformed url; skipping")
		return nil
	}

	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := e.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	for round := 1; round <= maxRetries; round++ {
		backoff.waitPreRequest(ctx)

		blocked := false
		for _, s := range e.Strategies {
			doc, err := s.Extract(ctx, target)
			if err == nil {
				doc.Attempt = round
				log.Debug().
					Str("url", target.String()).
					Str("method", string(doc.Method)).
					Int("chars", doc.ContentLength).
					Int("round", round).
					Msg("extracted")
				return doc
			}
			if errors.Is(err, fetch.ErrBlocked) {
				// A 403 means more requests this round would be wasted;
				// back off hard and start a fresh round instead.
				log.Warn().Err(err).Str("url", target.String()).Int("round", round).Msg("blocked")
				blocked = true
				break
			}
			log.Debug().Err(err).
				Str("url", target.String()).
				Str("method", string(s.Method())).
				Int("round", round).
				Msg("strategy failed")
		}
		if round == maxRetries {
			break
		}
		if blocked {
			backoff.waitBlocked(ctx)
		} else {
			backoff.waitRound(ctx)
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Warn().Str("url", target.String()).Int("rounds", maxRetries).Msg("extraction failed")
	return nil
}
