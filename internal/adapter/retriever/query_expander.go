package retriever

import (
	"sort"
	"strings"
)

// DefaultSynonyms are the phrase expansions used when none are configured.
var DefaultSynonyms = map[string][]string{
	"llm":                    {"large language model"},
	"rag":                    {"retrieval augmented generation"},
	"nlp":                    {"natural language processing"},
	"transformer":            {"attention", "self-attention"},
	"neural net":             {"neural network", "deep learning"},
	"embedding":              {"vector representation"},
	"fine-tun":               {"fine-tuning", "transfer learning"},
	"reinforcement learning": {"rl", "reward", "policy"},
}

// QueryExpander appends configured synonyms to a query. Keys are matched
// as substrings of the lower-cased query.
type QueryExpander struct {
	synonyms map[string][]string
	keys     []string
}

// NewQueryExpander creates an expander. A nil map uses DefaultSynonyms.
func NewQueryExpander(synonyms map[string][]string) *QueryExpander {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	keys := make([]string, 0, len(synonyms))
	normalized := make(map[string][]string, len(synonyms))
	for k, v := range synonyms {
		k = strings.ToLower(k)
		keys = append(keys, k)
		normalized[k] = v
	}
	sort.Strings(keys)
	return &QueryExpander{synonyms: normalized, keys: keys}
}

// Expand returns query followed by the synonyms of every matching key.
// The original query is always a prefix of the result, and a synonym that
// already occurs in the query is not appended again, so expanding twice
// gives the same result as expanding once.
func (e *QueryExpander) Expand(query string) string {
	lower := strings.ToLower(query)

	// Synonyms may themselves contain keys, so repeat until nothing changes.
	var extra []string
	for changed := true; changed; {
		changed = false
		for _, key := range e.keys {
			if !strings.Contains(lower, key) {
				continue
			}
			for _, syn := range e.synonyms[key] {
				s := strings.ToLower(strings.TrimSpace(syn))
				if s == "" || strings.Contains(lower, s) {
					continue
				}
				extra = append(extra, strings.TrimSpace(syn))
				lower += " " + s
				changed = true
			}
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
