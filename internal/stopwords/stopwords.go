// Package stopwords implements the fixed set of terms excluded from both
// indexing and querying. The set is built once, at engine construction.
package stopwords

import (
	"sort"

	"github.com/searchlab/ranksearch/internal/tokenizer"
)

// Set is an immutable stop-word set. A nil *Set behaves as an empty set.
type Set struct {
	words map[string]struct{}
}

// New builds a Set from a raw line of space-separated words.
func New(text string) *Set {
	return FromWords(tokenizer.Split(text))
}

// FromWords builds a Set from individual words, skipping empties.
func FromWords(words []string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w == "" {
			continue
		}
		s.words[w] = struct{}{}
	}
	return s
}

func (s *Set) Contains(term string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[term]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the set contents sorted, for logging and inspection.
func (s *Set) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
