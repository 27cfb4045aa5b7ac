// Package analytics defines the search service's event stream and the
// in-memory aggregation of those events into dashboard statistics. Events
// flow from the search service through Kafka to the analytics service.
package analytics

import "time"

type EventType string

const (
	EventSearch      EventType = "search"
	EventAddDocument EventType = "add_document"
	EventMatch       EventType = "match"
)

// TypedEvent is implemented by every event published to the analytics
// stream. Kind drives both Kafka partitioning and aggregator dispatch.
type TypedEvent interface {
	Kind() EventType
}

// SearchEvent records one executed search. CacheHit reports whether the
// result came from the query cache, and TotalHits counts matches before
// the result list was truncated.
type SearchEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms,omitempty"`
	Status    string    `json:"status,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

func (e SearchEvent) Kind() EventType { return EventSearch }

// IndexEvent records one document added to the index.
type IndexEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	DocumentID int       `json:"document_id"`
	Status     string    `json:"status"`
	TermCount  int       `json:"term_count"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e IndexEvent) Kind() EventType { return EventAddDocument }

// MatchEvent records one per-document match inspection.
type MatchEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	DocumentID   int       `json:"document_id"`
	Query        string    `json:"query"`
	MatchedTerms int       `json:"matched_terms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

func (e MatchEvent) Kind() EventType { return EventMatch }
