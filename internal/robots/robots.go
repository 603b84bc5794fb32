package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Manager fetches and caches per-host robots.txt rules. The gate is
// optional in the pipeline; callers that skip it mirror the permissive
// behavior of plain scraping.
type Manager struct {
	HTTPClient *http.Client
	UserAgent  string
	// EntryExpiry bounds how long cached rules are trusted. Zero means 1h.
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Allowed reports whether the URL may be fetched under the host's
// robots.txt. Missing or unreachable robots files allow everything, the
// conventional crawler default.
func (m *Manager) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	data, err := m.rulesFor(ctx, u)
	if err != nil || data == nil {
		return true
	}
	agent := m.UserAgent
	if agent == "" {
		agent = "goharvest"
	}
	return data.FindGroup(agent).Test(u.Path)
}

func (m *Manager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Manager) rulesFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	expiry := m.EntryExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	host := u.Scheme + "://" + u.Host

	m.mu.Lock()
	if ent, ok := m.mem[host]; ok && m.clock().Before(ent.expiry) {
		m.mu.Unlock()
		return ent.data, nil
	}
	m.mu.Unlock()

	data, err := m.fetch(ctx, host+"/robots.txt")
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	m.mem[host] = memEntry{data: data, expiry: m.clock().Add(expiry)}
	m.mu.Unlock()
	return data, nil
}

func (m *Manager) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	hc := m.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
