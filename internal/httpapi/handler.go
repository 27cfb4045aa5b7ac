package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/searchlab/ranksearch/internal/analytics"
	"github.com/searchlab/ranksearch/internal/cache"
	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/tokenizer"
	"github.com/searchlab/ranksearch/pkg/config"
	apperrors "github.com/searchlab/ranksearch/pkg/errors"
	"github.com/searchlab/ranksearch/pkg/logger"
	"github.com/searchlab/ranksearch/pkg/metrics"
	"github.com/searchlab/ranksearch/pkg/middleware"
	"github.com/searchlab/ranksearch/pkg/tracing"
)

// maxResults caps the per-request limit parameter.
const maxResults = 100

// Handler serves the versioned search API. The cache, collector, and
// metrics collaborators are optional; passing nil disables that concern.
type Handler struct {
	engine    *engine.Engine
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	tracing   config.TracingConfig
	logger    *slog.Logger
}

func New(eng *engine.Engine, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, tracingCfg config.TracingConfig) *Handler {
	return &Handler{
		engine:    eng,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		tracing:   tracingCfg,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

// Search handles GET /api/v1/search?q=...&status=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.countSearch("invalid")
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	status := document.StatusActual
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		parsed, err := document.ParseStatus(statusStr)
		if err != nil {
			h.countSearch("invalid")
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.countSearch("invalid")
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxResults {
			parsed = maxResults
		}
		limit = parsed
	}

	var span *tracing.Span
	if h.tracing.Enabled && tracing.Sampled(h.tracing.SampleRate) {
		ctx, span = tracing.StartSpan(ctx, "http.search", middleware.GetRequestID(ctx))
		span.SetAttr("query", query)
	}

	var result *engine.SearchResult
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, status.String(), limit, func() (*engine.SearchResult, error) {
			return h.runSearch(ctx, query, status, limit), nil
		})
	} else {
		result = h.runSearch(ctx, query, status, limit)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	latency := time.Since(start)
	latencyMs := latency.Milliseconds()

	cacheStatus := "bypass"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	}
	outcome := "ok"
	if result.TotalHits == 0 {
		outcome = "zero_results"
	}
	if h.metrics != nil {
		h.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}
	if span != nil {
		span.SetAttr("total_hits", result.TotalHits)
		span.SetAttr("cache_hit", cacheHit)
		span.End()
		span.Log()
	}

	log.Info("search completed",
		"query", query,
		"status", status,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			ID:        uuid.NewString(),
			Type:      analytics.EventSearch,
			Query:     query,
			Terms:     result.Terms,
			Status:    status.String(),
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:     result.Query,
		Status:    status.String(),
		Terms:     result.Terms,
		TotalHits: result.TotalHits,
		Results:   result.Results,
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
	})
}

func (h *Handler) runSearch(ctx context.Context, query string, st document.Status, limit int) *engine.SearchResult {
	if tracing.SpanFromContext(ctx) != nil {
		_, span := tracing.StartChildSpan(ctx, "engine.search")
		defer span.End()
	}
	return h.engine.SearchWithLimit(query, engine.StatusFilter(st), limit)
}

// AddDocument handles POST /api/v1/documents.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.countAdd("invalid")
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, err := validateAddDocument(&req)
	if err != nil {
		h.countAdd("invalid")
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.AddDocument(*req.ID, req.Text, status, req.Ratings); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode == http.StatusConflict {
			h.countAdd("duplicate")
		} else {
			h.countAdd("invalid")
		}
		log.Error("add document failed",
			"doc_id", *req.ID,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, err.Error())
		return
	}
	h.countAdd("ok")

	docs, terms, bytes := h.engine.IndexStats()
	h.metrics.SetIndexStats(docs, terms, bytes)

	// Every cached score embeds corpus-wide IDF, so any insert stales the
	// whole cache.
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("cache invalidation after insert failed", "error", err)
		}
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("document indexed",
		"doc_id", *req.ID,
		"status", status,
		"latency_ms", latencyMs,
	)

	if h.collector != nil {
		h.collector.Track(analytics.IndexEvent{
			ID:         uuid.NewString(),
			Type:       analytics.EventAddDocument,
			DocumentID: *req.ID,
			Status:     status.String(),
			TermCount:  len(tokenizer.Split(req.Text)),
			LatencyMs:  latencyMs,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusCreated, AddDocumentResponse{ID: *req.ID, Status: status.String()})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		h.writeError(w, http.StatusBadRequest, "document id must be a non-negative integer")
		return
	}
	meta, err := h.engine.DocumentMeta(id)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, DocumentResponse{
		ID:     id,
		Rating: meta.Rating,
		Status: meta.Status.String(),
	})
}

// Match handles GET /api/v1/documents/{id}/match?q=...
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		h.writeError(w, http.StatusBadRequest, "document id must be a non-negative integer")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	res, err := h.engine.MatchDocument(query, id)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	if h.collector != nil {
		h.collector.Track(analytics.MatchEvent{
			ID:           uuid.NewString(),
			Type:         analytics.EventMatch,
			DocumentID:   id,
			Query:        query,
			MatchedTerms: len(res.Terms),
			Timestamp:    time.Now().UTC(),
			RequestID:    middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, MatchResponse{
		DocumentID:   id,
		MatchedTerms: res.Terms,
		Status:       res.Status.String(),
	})
}

// Count handles GET /api/v1/documents/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, CountResponse{Count: h.engine.DocumentCount()})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	docs, terms, bytes := h.engine.IndexStats()
	h.writeJSON(w, http.StatusOK, StatsResponse{
		Documents: docs,
		Terms:     terms,
		SizeBytes: bytes,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) countSearch(outcome string) {
	if h.metrics != nil {
		h.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countAdd(status string) {
	if h.metrics != nil {
		h.metrics.DocumentsAddedTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
