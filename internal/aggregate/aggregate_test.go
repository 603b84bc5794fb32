package aggregate

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperifyio/goharvest/internal/pipeline"
)

// mapExtractor returns canned documents keyed by URL and counts attempts.
type mapExtractor struct {
	mu    sync.Mutex
	docs  map[string]*pipeline.ExtractedDocument
	tried []string
}

func (m *mapExtractor) Extract(_ context.Context, url string) *pipeline.ExtractedDocument {
	m.mu.Lock()
	m.tried = append(m.tried, url)
	m.mu.Unlock()
	d, ok := m.docs[url]
	if !ok {
		return nil
	}
	c := *d
	return &c
}

func (m *mapExtractor) attempts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tried...)
}

func doc(url string, length int, method pipeline.Method) *pipeline.ExtractedDocument {
	return &pipeline.ExtractedDocument{
		URL:           url,
		Title:         "t",
		Content:       strings.Repeat("x", 50),
		ContentLength: length,
		Method:        method,
		Attempt:       1,
	}
}

func TestAggregate_DeduplicatesByExactURL(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"https://a.com/x": doc("https://a.com/x", 500, pipeline.MethodArticle),
	}}
	a := &Aggregator{Extractor: ex}
	b := a.Aggregate(context.Background(), "t", []string{"https://a.com/x", "https://a.com/x", "https://a.com/x/"}, 10)
	if len(b.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(b.Documents))
	}
	// Exact string equality: the trailing-slash variant is still attempted.
	attempts := ex.attempts()
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts (dedup exact only), got %v", attempts)
	}
}

func TestAggregate_StopsAtMaxDocuments(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"u1": doc("u1", 200, pipeline.MethodArticle),
		"u2": doc("u2", 200, pipeline.MethodArticle),
		"u3": doc("u3", 200, pipeline.MethodArticle),
	}}
	a := &Aggregator{Extractor: ex}
	b := a.Aggregate(context.Background(), "t", []string{"u1", "u2", "u3"}, 2)
	if len(b.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(b.Documents))
	}
	// Sequential mode never touches candidates past the cap.
	if len(ex.attempts()) != 2 {
		t.Fatalf("expected extraction to stop at cap, attempts: %v", ex.attempts())
	}
}

func TestAggregate_FailuresAreSilentlyDropped(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"u2": doc("u2", 300, pipeline.MethodHeuristic),
	}}
	a := &Aggregator{Extractor: ex}
	b := a.Aggregate(context.Background(), "t", []string{"u1", "u2", "u3"}, 10)
	if len(b.Documents) != 1 || b.Documents[0].URL != "u2" {
		t.Fatalf("expected only u2, got %+v", b.Documents)
	}
	if b.TotalContentLength != 300 {
		t.Fatalf("unexpected total: %d", b.TotalContentLength)
	}
}

func TestAggregate_EmptyBundleIsValid(t *testing.T) {
	a := &Aggregator{Extractor: &mapExtractor{}}
	b := a.Aggregate(context.Background(), "nothing", []string{"u1"}, 5)
	if b.Topic != "nothing" || len(b.Documents) != 0 || b.TotalContentLength != 0 {
		t.Fatalf("expected well-formed empty bundle, got %+v", b)
	}
	if b.Timestamp.IsZero() {
		t.Fatalf("bundle must be timestamped")
	}
}

func TestAggregate_TotalsUseUntruncatedLengths(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"u1": doc("u1", 12000, pipeline.MethodArticle),
		"u2": doc("u2", 9000, pipeline.MethodRaw),
	}}
	a := &Aggregator{Extractor: ex}
	b := a.Aggregate(context.Background(), "t", []string{"u1", "u2"}, 10)
	if b.TotalContentLength != 21000 {
		t.Fatalf("expected 21000, got %d", b.TotalContentLength)
	}
}

func TestAggregate_MethodsUsedIsASet(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"u1": doc("u1", 200, pipeline.MethodArticle),
		"u2": doc("u2", 200, pipeline.MethodArticle),
		"u3": doc("u3", 200, pipeline.MethodRaw),
	}}
	a := &Aggregator{Extractor: ex}
	b := a.Aggregate(context.Background(), "t", []string{"u1", "u2", "u3"}, 10)
	got := b.Methods()
	want := []string{"article_parser", "raw_strip"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	ex := &mapExtractor{docs: map[string]*pipeline.ExtractedDocument{
		"u1": doc("u1", 100, pipeline.MethodArticle),
		"u3": doc("u3", 200, pipeline.MethodHeuristic),
	}}
	a := &Aggregator{Extractor: ex, Now: func() time.Time { return time.Unix(0, 0) }}
	urls := []string{"u1", "u2", "u3"}
	b1 := a.Aggregate(context.Background(), "t", urls, 10)
	b2 := a.Aggregate(context.Background(), "t", urls, 10)
	if !reflect.DeepEqual(b1.Documents, b2.Documents) || b1.TotalContentLength != b2.TotalContentLength {
		t.Fatalf("aggregate must be idempotent for deterministic extraction")
	}
}

func TestAggregate_ConcurrentPreservesSubmissionOrder(t *testing.T) {
	docs := map[string]*pipeline.ExtractedDocument{}
	var urls []string
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		urls = append(urls, u)
		docs[u] = doc(u, 150, pipeline.MethodHeuristic)
	}
	ex := &mapExtractor{docs: docs}
	a := &Aggregator{Extractor: ex, Concurrency: 5, PerHost: 2, PerHostRPS: 1000}
	b := a.Aggregate(context.Background(), "t", urls, 10)
	var got []string
	for _, d := range b.Documents {
		got = append(got, d.URL)
	}
	if !reflect.DeepEqual(got, urls) {
		t.Fatalf("expected submission order %v, got %v", urls, got)
	}
}

func TestAggregate_ConcurrentRespectsCap(t *testing.T) {
	docs := map[string]*pipeline.ExtractedDocument{}
	var urls []string
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		urls = append(urls, u)
		docs[u] = doc(u, 150, pipeline.MethodArticle)
	}
	a := &Aggregator{Extractor: &mapExtractor{docs: docs}, Concurrency: 4, PerHostRPS: 1000}
	b := a.Aggregate(context.Background(), "t", urls, 2)
	if len(b.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(b.Documents))
	}
	if b.Documents[0].URL != "u1" || b.Documents[1].URL != "u2" {
		t.Fatalf("cap must keep lowest submission indexes, got %+v", b.Documents)
	}
}

// deadlineExtractor records whether each extraction context carried a
// deadline and how far away it was.
type deadlineExtractor struct {
	mu        sync.Mutex
	deadlines []time.Duration // -1 when the context had none
}

func (d *deadlineExtractor) Extract(ctx context.Context, url string) *pipeline.ExtractedDocument {
	remaining := time.Duration(-1)
	if dl, ok := ctx.Deadline(); ok {
		remaining = time.Until(dl)
	}
	d.mu.Lock()
	d.deadlines = append(d.deadlines, remaining)
	d.mu.Unlock()
	return doc(url, 500, pipeline.MethodArticle)
}

func TestAggregate_ConcurrentExtractionsCarrySessionBudget(t *testing.T) {
	ext := &deadlineExtractor{}
	a := &Aggregator{Extractor: ext, Concurrency: 3}
	a.Aggregate(context.Background(), "topic", []string{
		"https://a.com/1", "https://b.com/1", "https://c.com/1",
	}, 0)

	ext.mu.Lock()
	defer ext.mu.Unlock()
	if len(ext.deadlines) != 3 {
		t.Fatalf("expected 3 extractions, got %d", len(ext.deadlines))
	}
	for _, rem := range ext.deadlines {
		if rem <= 0 {
			t.Fatalf("concurrent extraction context carried no deadline")
		}
		if rem > 30*time.Second {
			t.Fatalf("session budget exceeds 30s: %v", rem)
		}
	}
}

func TestAggregate_SequentialExtractionsHaveNoSessionBudget(t *testing.T) {
	ext := &deadlineExtractor{}
	a := &Aggregator{Extractor: ext}
	a.Aggregate(context.Background(), "topic", []string{"https://a.com/1"}, 0)

	ext.mu.Lock()
	defer ext.mu.Unlock()
	if len(ext.deadlines) != 1 || ext.deadlines[0] != -1 {
		t.Fatalf("sequential extraction should inherit the caller context, got %v", ext.deadlines)
	}
}

func TestAggregate_NegativeSessionTimeoutDisablesBudget(t *testing.T) {
	ext := &deadlineExtractor{}
	a := &Aggregator{Extractor: ext, Concurrency: 2, SessionTimeout: -1}
	a.Aggregate(context.Background(), "topic", []string{"https://a.com/1"}, 0)

	ext.mu.Lock()
	defer ext.mu.Unlock()
	if len(ext.deadlines) != 1 || ext.deadlines[0] != -1 {
		t.Fatalf("negative SessionTimeout should leave the context unbounded, got %v", ext.deadlines)
	}
}
