// Package rpcapi binds the search engine to the internal JSON-over-TCP RPC
// surface consumed by sibling services and operational tooling.
package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/pkg/proto"
	"github.com/searchlab/ranksearch/pkg/rpc"
)

// Register installs the Search.* methods on srv.
func Register(srv *rpc.Server, eng *engine.Engine) {
	srv.Register("Search.Query", queryHandler(eng))
	srv.Register("Search.AddDocument", addDocumentHandler(eng))
	srv.Register("Search.Match", matchHandler(eng))
	srv.Register("Search.Count", countHandler(eng))
	srv.Register("Search.Stats", statsHandler(eng))
	srv.Register("Search.Health", healthHandler())
}

func queryHandler(eng *engine.Engine) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		start := time.Now()
		var req proto.SearchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding search request: %w", err)
		}
		if req.Query == "" {
			return nil, fmt.Errorf("query is required")
		}

		var filter engine.DocumentFilter
		if req.Status != "" {
			st, err := document.ParseStatus(req.Status)
			if err != nil {
				return nil, err
			}
			filter = engine.StatusFilter(st)
		}

		res := eng.SearchWithLimit(req.Query, filter, int(req.Limit))
		out := &proto.SearchResponse{
			Query:     res.Query,
			TotalHits: int32(res.TotalHits),
			Results:   make([]proto.ScoredDocument, 0, len(res.Results)),
			LatencyMs: time.Since(start).Milliseconds(),
		}
		for _, d := range res.Results {
			out.Results = append(out.Results, proto.ScoredDocument{
				DocumentID: d.ID,
				Relevance:  d.Relevance,
				Rating:     d.Rating,
			})
		}
		return out, nil
	}
}

func addDocumentHandler(eng *engine.Engine) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.AddDocumentRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding add-document request: %w", err)
		}

		status := document.StatusActual
		if req.Status != "" {
			parsed, err := document.ParseStatus(req.Status)
			if err != nil {
				return nil, err
			}
			status = parsed
		}

		if err := eng.AddDocument(req.DocumentID, req.Text, status, req.Ratings); err != nil {
			return nil, err
		}
		return &proto.AddDocumentResponse{DocumentID: req.DocumentID, Success: true}, nil
	}
}

func matchHandler(eng *engine.Engine) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req proto.MatchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding match request: %w", err)
		}
		if req.Query == "" {
			return nil, fmt.Errorf("query is required")
		}

		res, err := eng.MatchDocument(req.Query, req.DocumentID)
		if err != nil {
			return nil, err
		}
		return &proto.MatchResponse{
			DocumentID: req.DocumentID,
			Terms:      res.Terms,
			Status:     res.Status.String(),
		}, nil
	}
}

func countHandler(eng *engine.Engine) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		return &proto.CountResponse{Count: int64(eng.DocumentCount())}, nil
	}
}

func statsHandler(eng *engine.Engine) rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		docs, terms, bytes := eng.IndexStats()
		return &proto.StatsResponse{
			Documents: int64(docs),
			Terms:     int64(terms),
			SizeBytes: bytes,
		}, nil
	}
}

func healthHandler() rpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		return &proto.HealthCheckResponse{Status: "SERVING"}, nil
	}
}
