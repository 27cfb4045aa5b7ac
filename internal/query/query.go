package query

import (
	"sort"
	"strings"

	"github.com/searchlab/ranksearch/internal/stopwords"
	"github.com/searchlab/ranksearch/internal/tokenizer"
)

// Query is the parsed form of a raw query string: plus terms contribute to
// relevance, minus terms exclude any document containing them. Both sets
// are deduplicated and stop-word-filtered.
type Query struct {
	Plus  map[string]struct{}
	Minus map[string]struct{}
	Raw   string
}

// Parse classifies each query token. A leading '-' marks a minus term and
// is stripped; the stop-word check applies to the stripped term. Tokens
// that strip to nothing are dropped.
func Parse(raw string, stop *stopwords.Set) Query {
	q := Query{
		Plus:  make(map[string]struct{}),
		Minus: make(map[string]struct{}),
		Raw:   raw,
	}
	for _, word := range tokenizer.Split(raw) {
		term := word
		negated := strings.HasPrefix(word, "-")
		if negated {
			term = word[1:]
		}
		if term == "" || stop.Contains(term) {
			continue
		}
		if negated {
			q.Minus[term] = struct{}{}
		} else {
			q.Plus[term] = struct{}{}
		}
	}
	return q
}

func (q Query) PlusTerms() []string {
	return sortedTerms(q.Plus)
}

func (q Query) MinusTerms() []string {
	return sortedTerms(q.Minus)
}

func sortedTerms(set map[string]struct{}) []string {
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
