package aggregate

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/goharvest/internal/pipeline"
)

// Bundle is the read-only aggregate handed to reporting once a topic run
// completes. A bundle with zero documents is a valid outcome.
type Bundle struct {
	Topic              string                       `json:"topic"`
	Documents          []pipeline.ExtractedDocument `json:"documents"`
	TotalContentLength int                          `json:"total_content_length"`
	MethodsUsed        map[pipeline.Method]struct{} `json:"-"`
	// URLsProcessed counts the unique candidates attempted, for the
	// report summary line.
	URLsProcessed int       `json:"urls_processed"`
	Timestamp     time.Time `json:"timestamp"`
}

// Methods returns the distinct extraction methods observed, sorted for
// stable serialization by reporting.
func (b *Bundle) Methods() []string {
	out := make([]string, 0, len(b.MethodsUsed))
	for m := range b.MethodsUsed {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// Extractor is the per-URL pipeline surface the aggregator drives.
type Extractor interface {
	Extract(ctx context.Context, url string) *pipeline.ExtractedDocument
}

// Aggregator turns candidate URLs into a Bundle. URLs are deduplicated by
// exact string equality before any extraction starts, preserving first
// occurrence, so no dedup state is ever shared between in-flight tasks.
type Aggregator struct {
	Extractor Extractor
	// Concurrency bounds simultaneous extractions. Values below 2 select
	// sequential mode, which preserves input order and stops issuing
	// requests the moment the document cap is reached.
	Concurrency int
	// PerHost caps simultaneous extractions against one host in
	// concurrent mode. Zero means 2.
	PerHost int
	// PerHostRPS paces requests per host in concurrent mode. Zero means 1.
	PerHostRPS float64
	// SessionTimeout bounds each extraction in concurrent mode, retries
	// and backoff included. Zero means 30s; negative disables the bound.
	SessionTimeout time.Duration
	// Now stamps bundles; nil uses time.Now.
	Now func() time.Time

	mu       sync.Mutex
	hostSems map[string]*semaphore.Weighted
	hostLims map[string]*rate.Limiter
}

// Aggregate extracts up to maxDocuments documents for the topic from urls
// and assembles the bundle. Per-URL failures are silent drops; the bundle
// is always well formed.
func (a *Aggregator) Aggregate(ctx context.Context, topic string, urls []string, maxDocuments int) Bundle {
	if maxDocuments <= 0 {
		maxDocuments = len(urls)
	}
	unique := dedupe(urls)

	var docs []pipeline.ExtractedDocument
	if a.Concurrency >= 2 {
		docs = a.extractConcurrent(ctx, unique, maxDocuments)
	} else {
		docs = a.extractSequential(ctx, unique, maxDocuments)
	}

	now := a.Now
	if now == nil {
		now = time.Now
	}
	b := Bundle{
		Topic:         topic,
		Documents:     docs,
		MethodsUsed:   make(map[pipeline.Method]struct{}, 3),
		URLsProcessed: len(unique),
		Timestamp:     now(),
	}
	for _, d := range docs {
		b.TotalContentLength += d.ContentLength
		b.MethodsUsed[d.Method] = struct{}{}
	}
	return b
}

func (a *Aggregator) extractSequential(ctx context.Context, urls []string, max int) []pipeline.ExtractedDocument {
	docs := make([]pipeline.ExtractedDocument, 0, max)
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		if doc := a.Extractor.Extract(ctx, u); doc != nil {
			docs = append(docs, *doc)
			if len(docs) >= max {
				break
			}
		}
	}
	return docs
}

func (a *Aggregator) extractConcurrent(ctx context.Context, urls []string, max int) []pipeline.ExtractedDocument {
	results := make([]*pipeline.ExtractedDocument, len(urls))
	var successes atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			// Enough documents already; skip without issuing requests.
			if successes.Load() >= int64(max) {
				return nil
			}
			host := hostOf(u)
			sem := a.hostSemaphore(host)
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			if err := a.hostLimiter(host).Wait(gctx); err != nil {
				return nil
			}
			ectx := gctx
			if budget := a.sessionTimeout(); budget > 0 {
				var cancel context.CancelFunc
				ectx, cancel = context.WithTimeout(gctx, budget)
				defer cancel()
			}
			if doc := a.Extractor.Extract(ectx, u); doc != nil {
				results[i] = doc
				successes.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Stable ordering by original submission index, capped after the fact
	// since completions race.
	docs := make([]pipeline.ExtractedDocument, 0, max)
	for _, d := range results {
		if d == nil {
			continue
		}
		docs = append(docs, *d)
		if len(docs) >= max {
			break
		}
	}
	return docs
}

func (a *Aggregator) sessionTimeout() time.Duration {
	if a.SessionTimeout == 0 {
		return 30 * time.Second
	}
	if a.SessionTimeout < 0 {
		return 0
	}
	return a.SessionTimeout
}

func (a *Aggregator) hostSemaphore(host string) *semaphore.Weighted {
	perHost := int64(a.PerHost)
	if perHost <= 0 {
		perHost = 2
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hostSems == nil {
		a.hostSems = make(map[string]*semaphore.Weighted)
	}
	s, ok := a.hostSems[host]
	if !ok {
		s = semaphore.NewWeighted(perHost)
		a.hostSems[host] = s
	}
	return s
}

func (a *Aggregator) hostLimiter(host string) *rate.Limiter {
	rps := a.PerHostRPS
	if rps <= 0 {
		rps = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hostLims == nil {
		a.hostLims = make(map[string]*rate.Limiter)
	}
	l, ok := a.hostLims[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(rps), 1)
		a.hostLims[host] = l
	}
	return l
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// dedupe keeps the first occurrence of each exact URL string. Trailing
// slashes and query variants stay distinct on purpose.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
