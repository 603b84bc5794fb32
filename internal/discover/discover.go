package discover

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Provider is a single search source yielding candidate URLs for a topic.
type Provider interface {
	Discover(ctx context.Context, topic string, max int) ([]string, error)
	Name() string
}

// Director queries providers in order and merges their URLs. The first
// provider is asked for half the budget and later ones fill the remainder,
// so one engine never crowds out the rest. Provider failures are logged
// and skipped; when every provider fails or returns nothing, the static
// fallback table supplies URLs so a topic run never starts empty.
type Director struct {
	Providers []Provider
	// Fallback serves the per-topic table and generic templates. Nil
	// disables fallback, in which case an empty result is possible.
	Fallback *Table
}

// URLs returns up to max deduplicated candidate URLs for the topic, in
// order of first occurrence across providers.
func (d *Director) URLs(ctx context.Context, topic string, max int) []string {
	if max <= 0 {
		max = 10
	}
	var all []string
	for i, p := range d.Providers {
		budget := max - len(all)
		if budget <= 0 {
			break
		}
		if i == 0 && len(d.Providers) > 1 {
			budget = max / 2
		}
		urls, err := p.Discover(ctx, topic, budget)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Str("topic", topic).Msg("discovery failed")
			continue
		}
		all = append(all, urls...)
	}

	unique := dedupe(all, max)
	if len(unique) == 0 && d.Fallback != nil {
		log.Info().Str("topic", topic).Msg("no discovery results; using fallback urls")
		unique = d.Fallback.URLs(topic)
		if len(unique) > max {
			unique = unique[:max]
		}
	}
	return unique
}

// dedupe keeps the first occurrence of each exact URL string, capped at max.
func dedupe(urls []string, max int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) >= max {
			break
		}
	}
	return out
}
