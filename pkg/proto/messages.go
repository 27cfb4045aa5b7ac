// Package proto defines the shared message types used for internal RPC
// communication between the search and analytics services.
//
// The types are hand-written with JSON struct tags for serialization over
// the lightweight JSON-over-TCP RPC layer (see pkg/rpc).
package proto

// ---------- Common ----------

// HealthCheckResponse reports whether a service is able to serve requests.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}

// ---------- Search ----------

// SearchRequest is the input to the Search.Query RPC. Status is the document
// status to filter by; empty means the server default. Limit caps the number
// of returned results; zero means the server default.
type SearchRequest struct {
	Query  string `json:"query"`
	Status string `json:"status,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

// ScoredDocument is a single ranked document in a search result set.
type ScoredDocument struct {
	DocumentID int     `json:"document_id"`
	Relevance  float64 `json:"relevance"`
	Rating     int     `json:"rating"`
}

// SearchResponse is the output of the Search.Query RPC.
type SearchResponse struct {
	Query     string           `json:"query"`
	TotalHits int32            `json:"total_hits"`
	Results   []ScoredDocument `json:"results"`
	LatencyMs int64            `json:"latency_ms"`
}

// ---------- Documents ----------

// AddDocumentRequest is the input to the Search.AddDocument RPC.
type AddDocumentRequest struct {
	DocumentID int    `json:"document_id"`
	Text       string `json:"text"`
	Status     string `json:"status"`
	Ratings    []int  `json:"ratings,omitempty"`
}

// AddDocumentResponse confirms an indexed document.
type AddDocumentResponse struct {
	DocumentID int  `json:"document_id"`
	Success    bool `json:"success"`
}

// MatchRequest is the input to the Search.Match RPC.
type MatchRequest struct {
	DocumentID int    `json:"document_id"`
	Query      string `json:"query"`
}

// MatchResponse lists the query terms found in a document together with the
// document's status. Terms is empty when a minus term of the query occurs in
// the document.
type MatchResponse struct {
	DocumentID int      `json:"document_id"`
	Terms      []string `json:"matched_terms"`
	Status     string   `json:"status"`
}

// CountResponse is the output of the Search.Count RPC.
type CountResponse struct {
	Count int64 `json:"count"`
}

// StatsResponse contains index-level statistics.
type StatsResponse struct {
	Documents int64 `json:"documents"`
	Terms     int64 `json:"terms"`
	SizeBytes int64 `json:"size_bytes"`
}
