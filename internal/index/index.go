package index

import (
	"fmt"
	"sync"

	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/stopwords"
	"github.com/searchlab/ranksearch/internal/tokenizer"
	apperrors "github.com/searchlab/ranksearch/pkg/errors"
)

// Index is the in-memory inverted index: each term maps to the documents
// containing it and the term's frequency within each. Document metadata is
// stored alongside. Writers are exclusive, readers share.
type Index struct {
	mu    sync.RWMutex
	terms map[string]map[int]float64
	docs  map[int]document.Meta
	stop  *stopwords.Set
	size  int64
}

func New(stop *stopwords.Set) *Index {
	return &Index{
		terms: make(map[string]map[int]float64),
		docs:  make(map[int]document.Meta),
		stop:  stop,
	}
}

// Add tokenizes text, drops stop words, and merges the document's term
// frequencies into the index. The frequency of a term is its occurrence
// count divided by the document's total indexable term count. A document
// with no indexable terms stores metadata only. Duplicate ids are rejected
// without mutating the index.
func (x *Index) Add(id int, text string, status document.Status, ratings []int) error {
	counts := make(map[string]int)
	total := 0
	for _, term := range tokenizer.Split(text) {
		if x.stop.Contains(term) {
			continue
		}
		counts[term]++
		total++
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.docs[id]; exists {
		return fmt.Errorf("adding document %d: %w", id, apperrors.ErrDuplicateDocument)
	}

	for term, count := range counts {
		postings, ok := x.terms[term]
		if !ok {
			postings = make(map[int]float64)
			x.terms[term] = postings
		}
		postings[id] = float64(count) / float64(total)
		x.size += int64(len(term)) + 24
	}
	x.docs[id] = document.Meta{
		Rating: document.AverageRating(ratings),
		Status: status,
	}
	x.size += 32
	return nil
}

// TermFrequencies returns a copy of the (doc id → frequency) postings for
// term, or nil if the term was never indexed.
func (x *Index) TermFrequencies(term string) map[int]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	postings, ok := x.terms[term]
	if !ok {
		return nil
	}
	out := make(map[int]float64, len(postings))
	for id, tf := range postings {
		out[id] = tf
	}
	return out
}

// TermFrequency reports the frequency of term within document id.
func (x *Index) TermFrequency(term string, id int) (float64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	tf, ok := x.terms[term][id]
	return tf, ok
}

func (x *Index) Meta(id int) (document.Meta, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	meta, ok := x.docs[id]
	if !ok {
		return document.Meta{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	return meta, nil
}

func (x *Index) Has(id int) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.docs[id]
	return ok
}

// Count reports the number of distinct documents added, including those
// with no indexable terms.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// TermCount reports the number of distinct indexed terms.
func (x *Index) TermCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.terms)
}

// Size is an approximate memory footprint in bytes, for reporting only.
func (x *Index) Size() int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.terms = make(map[string]map[int]float64)
	x.docs = make(map[int]document.Meta)
	x.size = 0
}
