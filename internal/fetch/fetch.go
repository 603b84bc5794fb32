package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/goharvest/internal/cache"
	"github.com/hyperifyio/goharvest/internal/headers"
)

// ErrBlocked marks responses where the remote host explicitly denied the
// request (HTTP 403). Callers distinguish it from ErrTransient to apply a
// longer backoff before retrying.
var ErrBlocked = errors.New("blocked by remote host")

// ErrTransient marks failures worth retrying after a short delay: network
// errors, timeouts, 5xx responses and other non-2xx statuses.
var ErrTransient = errors.New("transient fetch failure")

// Client issues single GET attempts with rotated browser headers. It does
// not retry; the extraction pipeline owns the retry rounds so backoff is
// decided in one place.
type Client struct {
	HTTPClient *http.Client
	// Headers is the identity pool rotated per request. Nil uses the default pool.
	Headers *headers.Pool
	// PerRequestTimeout bounds each request. Zero disables the bound.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int
	// Cache is an optional on-disk store used for conditional revalidation.
	Cache *cache.HTTPCache
	// Rand seeds header rotation. Nil uses a time-seeded source.
	Rand *rand.Rand

	mu          sync.Mutex
	limiter     chan struct{}
	limiterOnce sync.Once
}

// Get fetches a URL once and returns the body and content type. A 403 maps
// to ErrBlocked; everything else retryable wraps ErrTransient.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	c.acquire()
	defer c.release()

	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	req.Header = c.pickHeaders()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, "", fmt.Errorf("%w: status 403 for %s", ErrBlocked, rawURL)
	case resp.StatusCode == http.StatusNotModified && c.Cache != nil:
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("%w: cache miss on 304", ErrTransient)
		}
		return body, resp.Header.Get("Content-Type"), nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !isAllowedContentType(ct) {
		return nil, "", fmt.Errorf("%w: unsupported content type %q", ErrTransient, ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, rawURL, ct, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body)
	}
	return body, ct, nil
}

func (c *Client) pickHeaders() http.Header {
	pool := c.Headers
	if pool == nil {
		pool = headers.DefaultPool()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	h := pool.Pick(c.Rand)
	// An explicit Accept-Encoding turns off the transport's transparent
	// gzip decoding, so it is stripped even from custom pools.
	h.Del("Accept-Encoding")
	return h
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

func isAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Pages without a declared type are still worth a parse attempt.
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml") ||
		strings.HasPrefix(ct, "text/plain")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	// acquire always deposited our token, so the receive cannot block.
	<-c.limiter
}
