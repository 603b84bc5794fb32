package discover

import (
	"sort"
	"strings"
)

// Table is the hand-maintained per-topic URL fallback used when search
// providers fail. Unknown topics synthesize three generic reference URLs
// from fixed templates instead.
type Table struct {
	topics map[string][]string
}

// DefaultTable returns the stock fallback table.
func DefaultTable() *Table {
	return &Table{topics: map[string][]string{
		"artificial intelligence": {
			"https://en.wikipedia.org/wiki/Artificial_intelligence",
			"https://www.ibm.com/topics/artificial-intelligence",
			"https://www.mit.edu/~echeng/artificial-intelligence/",
		},
		"machine learning": {
			"https://en.wikipedia.org/wiki/Machine_learning",
			"https://www.coursera.org/articles/what-is-machine-learning",
			"https://www.ibm.com/topics/machine-learning",
		},
		"weight loss": {
			"https://www.mayoclinic.org/healthy-lifestyle/weight-loss/basics/weightloss-basics/hlv-20049483",
			"https://www.healthline.com/nutrition/how-to-lose-weight-as-fast-as-possible",
			"https://www.webmd.com/diet/obesity/features/10-ways-to-lose-weight-without-dieting",
		},
		"meditation": {
			"https://www.mayoclinic.org/tests-procedures/meditation/in-depth/meditation/art-20045858",
			"https://www.mindful.org/how-to-meditate/",
			"https://en.wikipedia.org/wiki/Meditation",
		},
		"yoga": {
			"https://www.mayoclinic.org/healthy-lifestyle/stress-management/in-depth/yoga/art-20044733",
			"https://www.yogajournal.com/poses/",
			"https://en.wikipedia.org/wiki/Yoga",
		},
		"climate change": {
			"https://climate.nasa.gov/what-is-climate-change/",
			"https://www.un.org/en/climatechange/what-is-climate-change",
			"https://en.wikipedia.org/wiki/Climate_change",
		},
		"nutrition": {
			"https://www.nutrition.gov/topics/basic-nutrition",
			"https://www.mayoclinic.org/healthy-lifestyle/nutrition-and-healthy-eating/basics/nutrition-basics/hlv-20049477",
			"https://en.wikipedia.org/wiki/Nutrition",
		},
	}}
}

// URLs resolves a topic against the table: exact key match first, then a
// word-overlap match against table keys, then three synthesized generic
// reference URLs.
func (t *Table) URLs(topic string) []string {
	q := strings.ToLower(strings.TrimSpace(topic))
	if urls, ok := t.topics[q]; ok {
		return append([]string(nil), urls...)
	}

	// Word-overlap match, walked in sorted key order for determinism.
	keys := make([]string, 0, len(t.topics))
	for k := range t.topics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, word := range strings.Fields(k) {
			if strings.Contains(q, word) {
				urls := t.topics[k]
				if len(urls) > 3 {
					urls = urls[:3]
				}
				return append([]string(nil), urls...)
			}
		}
	}

	return GenericURLs(topic)
}

// GenericURLs builds the three template-based reference URLs for a topic
// with no table entry: an encyclopedia article, a web search, and a
// reference-site search.
func GenericURLs(topic string) []string {
	topic = strings.TrimSpace(topic)
	underscored := strings.ReplaceAll(topic, " ", "_")
	plussed := strings.ReplaceAll(topic, " ", "+")
	return []string{
		"https://en.wikipedia.org/wiki/" + underscored,
		"https://www.google.com/search?q=" + plussed,
		"https://www.britannica.com/search?query=" + plussed,
	}
}
