// Package httpapi exposes the search engine over HTTP: querying, document
// submission, per-document matching, and operational endpoints.
package httpapi

import "github.com/searchlab/ranksearch/internal/ranker"

// AddDocumentRequest is the JSON body accepted by POST /api/v1/documents.
// ID is a pointer so a missing id can be told apart from id 0. An empty
// Status defaults to ACTUAL; an empty Text indexes metadata only.
type AddDocumentRequest struct {
	ID      *int   `json:"document_id"`
	Text    string `json:"text"`
	Status  string `json:"status,omitempty"`
	Ratings []int  `json:"ratings,omitempty"`
}

// AddDocumentResponse confirms an indexed document.
type AddDocumentResponse struct {
	ID     int    `json:"document_id"`
	Status string `json:"status"`
}

// SearchResponse wraps the ranked results with request-scoped details.
type SearchResponse struct {
	Query     string                  `json:"query"`
	Status    string                  `json:"status"`
	Terms     []string                `json:"terms,omitempty"`
	TotalHits int                     `json:"total_hits"`
	Results   []ranker.ScoredDocument `json:"results"`
	LatencyMs int64                   `json:"latency_ms"`
	CacheHit  bool                    `json:"cache_hit"`
}

// DocumentResponse describes one indexed document's metadata.
type DocumentResponse struct {
	ID     int    `json:"document_id"`
	Rating int    `json:"rating"`
	Status string `json:"status"`
}

// MatchResponse lists the query's plus terms found in one document. The
// list is empty when a minus term matched.
type MatchResponse struct {
	DocumentID   int      `json:"document_id"`
	MatchedTerms []string `json:"matched_terms"`
	Status       string   `json:"status"`
}

// CountResponse reports the number of indexed documents.
type CountResponse struct {
	Count int `json:"count"`
}

// StatsResponse reports index size statistics.
type StatsResponse struct {
	Documents int   `json:"documents"`
	Terms     int   `json:"terms"`
	SizeBytes int64 `json:"size_bytes"`
}
