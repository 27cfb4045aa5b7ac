// Package engine ties the tokenizer, stop-word set, inverted index, query
// parser, and ranker into the search façade the service layers consume.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/index"
	"github.com/searchlab/ranksearch/internal/query"
	"github.com/searchlab/ranksearch/internal/ranker"
	"github.com/searchlab/ranksearch/internal/stopwords"
	"github.com/searchlab/ranksearch/pkg/config"
	apperrors "github.com/searchlab/ranksearch/pkg/errors"
)

// SearchResult is the service-facing result of one query: the ranked
// documents plus the surviving candidate count before top-K truncation.
// Terms lists the plus terms the ranker actually scored against.
type SearchResult struct {
	Query     string                  `json:"query"`
	Terms     []string                `json:"terms,omitempty"`
	TotalHits int                     `json:"total_hits"`
	Results   []ranker.ScoredDocument `json:"results"`
}

// MatchResult reports which plus terms of a query occur in one document.
// Terms is empty when a minus term matched; Status is always populated.
type MatchResult struct {
	Terms  []string        `json:"matched_terms"`
	Status document.Status `json:"status"`
}

// Engine is one independently configured search instance. Insertion is
// exclusive, queries share; both may interleave freely.
type Engine struct {
	cfg    config.EngineConfig
	stop   *stopwords.Set
	idx    *index.Index
	logger *slog.Logger
}

func New(cfg config.EngineConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = config.DefaultTopK
	}
	if cfg.TieEpsilon <= 0 {
		cfg.TieEpsilon = config.DefaultTieEpsilon
	}
	stop := stopwords.FromWords(cfg.StopWords)
	return &Engine{
		cfg:    cfg,
		stop:   stop,
		idx:    index.New(stop),
		logger: slog.Default().With("component", "engine"),
	}
}

// AddDocument indexes one document under a caller-assigned id. Ids are
// non-negative and single-use; the status must be a known value. A text
// consisting only of stop words (or nothing) stores metadata without
// postings.
func (e *Engine) AddDocument(id int, text string, status document.Status, ratings []int) error {
	if id < 0 {
		return fmt.Errorf("document id %d is negative: %w", id, apperrors.ErrInvalidInput)
	}
	if !status.Valid() {
		return fmt.Errorf("document %d status %q: %w", id, status, apperrors.ErrInvalidInput)
	}
	if err := e.idx.Add(id, text, status, ratings); err != nil {
		return err
	}
	e.logger.Debug("document added",
		"doc_id", id,
		"status", status,
		"index_size", e.idx.Size(),
	)
	return nil
}

func (e *Engine) DocumentCount() int {
	return e.idx.Count()
}

func (e *Engine) DocumentMeta(id int) (document.Meta, error) {
	return e.idx.Meta(id)
}

// IndexStats summarizes the index for health and metrics reporting.
func (e *Engine) IndexStats() (docs int, terms int, bytes int64) {
	return e.idx.Count(), e.idx.TermCount(), e.idx.Size()
}

// FindTopDocuments ranks with the default filter (status ACTUAL).
func (e *Engine) FindTopDocuments(rawQuery string) []ranker.ScoredDocument {
	return e.Search(rawQuery, nil).Results
}

// FindTopDocumentsWithStatus ranks documents carrying exactly st.
func (e *Engine) FindTopDocumentsWithStatus(rawQuery string, st document.Status) []ranker.ScoredDocument {
	return e.Search(rawQuery, StatusFilter(st)).Results
}

// FindTopDocumentsFiltered ranks documents accepted by f.
func (e *Engine) FindTopDocumentsFiltered(rawQuery string, f DocumentFilter) []ranker.ScoredDocument {
	return e.Search(rawQuery, f).Results
}

// Search runs the full query pipeline: parse, gather postings per plus
// term, collect exclusions from minus terms, then rank. A query with no
// plus terms returns an empty result.
func (e *Engine) Search(rawQuery string, f DocumentFilter) *SearchResult {
	return e.SearchWithLimit(rawQuery, f, 0)
}

// SearchWithLimit is Search with a per-call result cap. A non-positive
// limit falls back to the engine's configured top-K.
func (e *Engine) SearchWithLimit(rawQuery string, f DocumentFilter, limit int) *SearchResult {
	if f == nil {
		f = defaultFilter
	}
	if limit <= 0 {
		limit = e.cfg.TopK
	}
	q := query.Parse(rawQuery, e.stop)
	res := &SearchResult{
		Query:   rawQuery,
		Terms:   q.PlusTerms(),
		Results: []ranker.ScoredDocument{},
	}
	if len(q.Plus) == 0 {
		return res
	}

	termFreqs := make(map[string]map[int]float64, len(q.Plus))
	for term := range q.Plus {
		if postings := e.idx.TermFrequencies(term); len(postings) > 0 {
			termFreqs[term] = postings
		}
	}
	excluded := make(map[int]struct{})
	for term := range q.Minus {
		for id := range e.idx.TermFrequencies(term) {
			excluded[id] = struct{}{}
		}
	}

	docs, total := ranker.Rank(ranker.Params{
		TermFrequencies: termFreqs,
		DocumentCount:   e.idx.Count(),
		Excluded:        excluded,
		Accepts: func(id int) bool {
			meta, err := e.idx.Meta(id)
			if err != nil {
				return false
			}
			return f.Accepts(id, meta.Status, meta.Rating)
		},
		RatingOf: func(id int) int {
			meta, _ := e.idx.Meta(id)
			return meta.Rating
		},
		TopK:       limit,
		TieEpsilon: e.cfg.TieEpsilon,
	})
	res.Results = docs
	res.TotalHits = total

	e.logger.Debug("query executed",
		"query", rawQuery,
		"plus_terms", len(q.Plus),
		"minus_terms", len(q.Minus),
		"total_hits", total,
		"returned", len(docs),
	)
	return res
}

// MatchDocument reports the plus terms of rawQuery occurring in document
// id, sorted. Any minus-term hit empties the list; the document's status
// is returned either way. Unknown ids fail with ErrDocumentNotFound.
func (e *Engine) MatchDocument(rawQuery string, id int) (MatchResult, error) {
	meta, err := e.idx.Meta(id)
	if err != nil {
		return MatchResult{}, err
	}
	q := query.Parse(rawQuery, e.stop)
	for term := range q.Minus {
		if _, ok := e.idx.TermFrequency(term, id); ok {
			return MatchResult{Terms: []string{}, Status: meta.Status}, nil
		}
	}
	matched := make([]string, 0, len(q.Plus))
	for term := range q.Plus {
		if _, ok := e.idx.TermFrequency(term, id); ok {
			matched = append(matched, term)
		}
	}
	sort.Strings(matched)
	return MatchResult{Terms: matched, Status: meta.Status}, nil
}
