package headers

import (
	"math/rand"
	"net/http"
)

// Pool is an immutable set of browser User-Agent strings plus the base
// header set sent with every request. Rotation is a pure function of the
// pool and the supplied rng, so tests can seed it for reproducibility.
type Pool struct {
	userAgents []string
	base       map[string]string
}

// DefaultPool returns the stock pool of desktop browser identities.
func DefaultPool() *Pool {
	return &Pool{
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0",
		},
		// Accept-Encoding is deliberately absent: setting it explicitly
		// disables net/http's transparent gzip negotiation and decoding,
		// leaving compressed bytes in the body.
		base: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"DNT":                       "1",
			"Connection":                "keep-alive",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Cache-Control":             "max-age=0",
		},
	}
}

// NewPool builds a pool from custom identities. Empty slices fall back to
// the defaults so a zero-config caller still rotates something plausible.
func NewPool(userAgents []string, base map[string]string) *Pool {
	p := DefaultPool()
	if len(userAgents) > 0 {
		p.userAgents = append([]string(nil), userAgents...)
	}
	if len(base) > 0 {
		m := make(map[string]string, len(base))
		for k, v := range base {
			m[k] = v
		}
		p.base = m
	}
	return p
}

// Size reports how many User-Agent identities the pool rotates over.
func (p *Pool) Size() int { return len(p.userAgents) }

// Pick assembles a fresh header set with a randomly chosen User-Agent.
// The pool itself is never mutated; a new http.Header is returned each call.
func (p *Pool) Pick(rng *rand.Rand) http.Header {
	h := make(http.Header, len(p.base)+1)
	for k, v := range p.base {
		h.Set(k, v)
	}
	if len(p.userAgents) > 0 {
		h.Set("User-Agent", p.userAgents[rng.Intn(len(p.userAgents))])
	}
	return h
}
