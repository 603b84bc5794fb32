package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/goharvest/internal/cache"
	"github.com/hyperifyio/goharvest/internal/headers"
)

func testClient() *Client {
	return &Client{
		PerRequestTimeout: 2 * time.Second,
		Rand:              rand.New(rand.NewSource(1)),
	}
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	body, ct, err := testClient().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct == "" || len(body) == 0 {
		t.Fatalf("expected content type and body")
	}
}

func TestGet_SendsRotatedBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := testClient()
	c.Headers = headers.NewPool([]string{"harvest-test/1.0"}, nil)
	if _, _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotUA != "harvest-test/1.0" {
		t.Fatalf("expected rotated agent, got %q", gotUA)
	}
	if gotLang == "" {
		t.Fatalf("expected base headers to be sent")
	}
}

// Servers that honor Accept-Encoding respond with gzip bodies. The client
// must leave encoding negotiation to the transport so the body arrives
// decoded; otherwise every strategy downstream parses compressed bytes.
func TestGet_GzipResponseIsDecoded(t *testing.T) {
	const page = "<html><head><title>Archive</title></head><body><p>Readable article text</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("transport should negotiate gzip, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(page))
		_ = gz.Close()
	}))
	defer srv.Close()

	body, _, err := testClient().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		t.Fatal("body still carries the gzip magic bytes; it was never decoded")
	}
	if !strings.Contains(string(body), "Readable article text") {
		t.Fatalf("expected decoded HTML, got %q", string(body))
	}
}

// A pool configured with an explicit Accept-Encoding must not defeat the
// transport's transparent decoding either.
func TestGet_StripsExplicitAcceptEncoding(t *testing.T) {
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := testClient()
	c.Headers = headers.NewPool(nil, map[string]string{
		"Accept-Encoding": "br",
		"Accept":          "text/html",
	})
	if _, _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("get: %v", err)
	}
	// The transport re-adds its own gzip negotiation once ours is gone.
	if strings.Contains(sent, "br") {
		t.Fatalf("explicit Accept-Encoding leaked through: %q", sent)
	}
}

// With a single-slot gate, every release must hand its token back or the
// next acquire deadlocks.
func TestGet_ConcurrencyGateRecyclesTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := testClient()
	c.MaxConcurrent = 1
	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, _, err := c.Get(context.Background(), srv.URL)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("get: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("gate deadlocked; a token was not returned")
		}
	}
}

func TestGet_403MapsToErrBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := testClient().Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestGet_5xxMapsToErrTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := testClient().Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if errors.Is(err, ErrBlocked) {
		t.Fatalf("5xx must not classify as blocked")
	}
}

func TestGet_ConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, _, err := testClient().Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestGet_RejectsNonHTTPScheme(t *testing.T) {
	_, _, err := testClient().Get(context.Background(), "ftp://example.com/file")
	if err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestGet_Conditional304ServesCachedBody(t *testing.T) {
	etag := `"abc123"`
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html")
		if calls == 1 {
			w.Header().Set("ETag", etag)
			_, _ = w.Write([]byte("first"))
			return
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = w.Write([]byte("unexpected"))
	}))
	defer srv.Close()

	c := testClient()
	c.Cache = &cache.HTTPCache{Dir: t.TempDir()}

	b1, _, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if string(b1) != "first" {
		t.Fatalf("unexpected first body: %q", b1)
	}
	b2, _, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if string(b2) != "first" {
		t.Fatalf("expected cached body on 304, got %q", b2)
	}
}

func TestGet_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient()
	c.PerRequestTimeout = 50 * time.Millisecond
	_, _, err := c.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient on timeout, got %v", err)
	}
}
