package engine

import "github.com/searchlab/ranksearch/internal/document"

// DocumentFilter decides whether a document may appear in search results.
// Filtering happens during relevance accumulation; minus-term exclusion is
// applied independently of any filter.
type DocumentFilter interface {
	Accepts(id int, status document.Status, rating int) bool
}

// StatusFilter accepts exactly the documents carrying one status.
type StatusFilter document.Status

func (f StatusFilter) Accepts(id int, status document.Status, rating int) bool {
	return status == document.Status(f)
}

// FilterFunc adapts a plain predicate to a DocumentFilter.
type FilterFunc func(id int, status document.Status, rating int) bool

func (f FilterFunc) Accepts(id int, status document.Status, rating int) bool {
	return f(id, status, rating)
}

// defaultFilter is used when the caller passes no filter.
var defaultFilter DocumentFilter = StatusFilter(document.StatusActual)
