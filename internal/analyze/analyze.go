package analyze

import (
	"sort"
	"strings"

	"github.com/hyperifyio/goharvest/internal/aggregate"
	"github.com/hyperifyio/goharvest/internal/pipeline"
)

// Report summarizes a bundle along three axes: raw content volume, how
// directly the sources speak to the topic, and how spread out they are
// across domains and extraction methods.
type Report struct {
	Metrics   ContentMetrics  `json:"content_metrics"`
	Coverage  TopicCoverage   `json:"topic_coverage"`
	Diversity SourceDiversity `json:"source_diversity"`
}

type ContentMetrics struct {
	TotalSources  int `json:"total_sources"`
	TotalContent  int `json:"total_content"`
	AverageLength int `json:"average_length"`
	MaxLength     int `json:"max_length"`
	MinLength     int `json:"min_length"`
	// Distribution buckets by untruncated length: <1000, 1000-4999, >=5000.
	Short  int `json:"short"`
	Medium int `json:"medium"`
	Long   int `json:"long"`
}

type TopicCoverage struct {
	// AverageScore weighs topic words found in titles double against
	// occurrences in content.
	AverageScore float64 `json:"average_score"`
	HighCoverage int     `json:"high_coverage_sources"`
}

type SourceDiversity struct {
	UniqueDomains int            `json:"unique_domains"`
	DomainCounts  map[string]int `json:"domain_counts"`
	MethodCounts  map[string]int `json:"method_counts"`
	TopDomains    []string       `json:"top_domains"`
}

// Analyze computes the full report for a bundle. An empty bundle yields a
// zero report rather than an error.
func Analyze(b aggregate.Bundle) Report {
	return Report{
		Metrics:   contentMetrics(b.Documents),
		Coverage:  topicCoverage(b.Documents, b.Topic),
		Diversity: sourceDiversity(b.Documents),
	}
}

func contentMetrics(docs []pipeline.ExtractedDocument) ContentMetrics {
	m := ContentMetrics{TotalSources: len(docs)}
	if len(docs) == 0 {
		return m
	}
	m.MinLength = docs[0].ContentLength
	for _, d := range docs {
		n := d.ContentLength
		m.TotalContent += n
		if n > m.MaxLength {
			m.MaxLength = n
		}
		if n < m.MinLength {
			m.MinLength = n
		}
		switch {
		case n < 1000:
			m.Short++
		case n < 5000:
			m.Medium++
		default:
			m.Long++
		}
	}
	m.AverageLength = m.TotalContent / len(docs)
	return m
}

func topicCoverage(docs []pipeline.ExtractedDocument, topic string) TopicCoverage {
	words := strings.Fields(strings.ToLower(topic))
	if len(docs) == 0 || len(words) == 0 {
		return TopicCoverage{}
	}
	total := 0
	high := 0
	for _, d := range docs {
		title := strings.ToLower(d.Title)
		content := strings.ToLower(d.Content)
		score := 0
		for _, w := range words {
			if strings.Contains(title, w) {
				score += 2
			}
			if strings.Contains(content, w) {
				score++
			}
		}
		total += score
		if score >= 3 {
			high++
		}
	}
	return TopicCoverage{
		AverageScore: float64(total) / float64(len(docs)),
		HighCoverage: high,
	}
}

func sourceDiversity(docs []pipeline.ExtractedDocument) SourceDiversity {
	d := SourceDiversity{
		DomainCounts: map[string]int{},
		MethodCounts: map[string]int{},
	}
	for _, doc := range docs {
		if doc.SourceDomain != "" {
			d.DomainCounts[doc.SourceDomain]++
		}
		d.MethodCounts[string(doc.Method)]++
	}
	d.UniqueDomains = len(d.DomainCounts)

	domains := make([]string, 0, len(d.DomainCounts))
	for dom := range d.DomainCounts {
		domains = append(domains, dom)
	}
	sort.Slice(domains, func(i, j int) bool {
		if d.DomainCounts[domains[i]] != d.DomainCounts[domains[j]] {
			return d.DomainCounts[domains[i]] > d.DomainCounts[domains[j]]
		}
		return domains[i] < domains[j]
	})
	if len(domains) > 5 {
		domains = domains[:5]
	}
	d.TopDomains = domains
	return d
}
