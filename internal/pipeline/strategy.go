package pipeline

import (
	"context"
	"errors"
	"net/url"
)

// ErrTooShort marks an extraction whose text came in at or under the
// viability floor. It retries like any transient failure.
var ErrTooShort = errors.New("extracted content too short")

// Getter is the minimal fetch surface a strategy needs. Satisfied by
// fetch.Client and by test fakes.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Strategy is one extraction technique in the chain. Extract performs its
// own request so every attempt carries freshly rotated headers, and returns
// a document without Attempt set; the controller fills that in.
type Strategy interface {
	Method() Method
	Extract(ctx context.Context, target *url.URL) (*ExtractedDocument, error)
}
