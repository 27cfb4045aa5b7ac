// Package integration contains tests that verify how the search service's
// components behave when wired together: the real engine, HTTP handler, and
// middleware chain, with API keys backed by a real PostgreSQL database.
// Kafka and Redis are not required.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/searchlab/ranksearch/internal/auth"
	"github.com/searchlab/ranksearch/internal/auth/apikey"
	"github.com/searchlab/ranksearch/internal/auth/ratelimit"
	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/httpapi"
	"github.com/searchlab/ranksearch/pkg/config"
	"github.com/searchlab/ranksearch/pkg/health"
	"github.com/searchlab/ranksearch/pkg/middleware"
	"github.com/searchlab/ranksearch/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "ranksearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "ranksearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// newSearchServer assembles the same stack cmd/searchd does with auth
// enabled: engine, HTTP handler, and the full middleware chain.
func newSearchServer(t *testing.T, db *postgres.Client) (*httptest.Server, *apikey.Validator) {
	t.Helper()

	validator := apikey.NewValidator(db)
	if err := validator.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("ensuring api key schema: %v", err)
	}
	limiter := ratelimit.New(time.Minute)

	eng := engine.New(config.EngineConfig{
		StopWords: []string{"in", "the", "on"},
	})
	seed := []struct {
		id      int
		text    string
		ratings []int
	}{
		{0, "white cat in the white hat", []int{8, -3}},
		{1, "fluffy cat fluffy tail", []int{7, 2, 7}},
		{2, "groomed dog expressive eyes", []int{5, -12, 2, 1}},
	}
	for _, d := range seed {
		if err := eng.AddDocument(d.id, d.text, document.StatusActual, d.ratings); err != nil {
			t.Fatalf("seeding document %d: %v", d.id, err)
		}
	}

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := httpapi.New(eng, nil, nil, nil, config.TracingConfig{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents/count", h.Count)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/match", h.Match)
	mux.HandleFunc("GET /api/v1/index/stats", h.Stats)
	mux.HandleFunc("GET /health", checker.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())

	var chain http.Handler = mux
	chain = auth.RateLimit(limiter)(chain)
	chain = auth.Auth(validator)(chain)
	chain = middleware.Timeout(10 * time.Second)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)

	srv := httptest.NewServer(chain)
	t.Cleanup(srv.Close)
	return srv, validator
}

// TestHealthBypassesAuth verifies health checks are accessible without a key.
func TestHealthBypassesAuth(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, _ := newSearchServer(t, db)

	for _, path := range []string{"/health", "/health/live"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

// TestUnauthenticatedRequestsRejected verifies API endpoints require a key.
func TestUnauthenticatedRequestsRejected(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, _ := newSearchServer(t, db)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/search?q=cat"},
		{"POST", "/api/v1/documents"},
		{"GET", "/api/v1/documents/count"},
		{"GET", "/api/v1/index/stats"},
	}

	for _, ep := range endpoints {
		req, _ := http.NewRequest(ep.method, srv.URL+ep.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: request failed: %v", ep.method, ep.path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", ep.method, ep.path, resp.StatusCode)
		}
	}
}

// TestAPIKeyLifecycle creates a key, searches with it, revokes it, and
// verifies the revoked key is rejected.
func TestAPIKeyLifecycle(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, validator := newSearchServer(t, db)

	rawKey, err := validator.CreateKey(t.Context(), "integration-test", 100, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}

	req, _ := http.NewRequest("GET", srv.URL+"/api/v1/search?q=fluffy+cat", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result struct {
		TotalHits int `json:"total_hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if result.TotalHits != 2 {
		t.Errorf("total_hits = %d, want 2", result.TotalHits)
	}

	if err := validator.RevokeKey(t.Context(), rawKey); err != nil {
		t.Fatalf("revoking key: %v", err)
	}

	req2, _ := http.NewRequest("GET", srv.URL+"/api/v1/search?q=fluffy+cat", nil)
	req2.Header.Set("Authorization", "Bearer "+rawKey)
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("search request after revoke failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after revoke, got %d", resp2.StatusCode)
	}
}

// TestKeyInQueryParameter verifies the api_key query parameter works as an
// alternative to the headers.
func TestKeyInQueryParameter(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, validator := newSearchServer(t, db)

	rawKey, err := validator.CreateKey(t.Context(), "query-param-test", 100, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/documents/count?api_key=" + rawKey)
	if err != nil {
		t.Fatalf("count request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var count struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		t.Fatalf("decoding count response: %v", err)
	}
	if count.Count != 3 {
		t.Errorf("count = %d, want 3", count.Count)
	}
}

// TestAddAndSearchThroughChain adds a document through the full middleware
// chain and immediately finds it.
func TestAddAndSearchThroughChain(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, validator := newSearchServer(t, db)

	rawKey, err := validator.CreateKey(t.Context(), "add-test", 100, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}

	payload := `{"document_id":42,"text":"nimble wombat digs at dusk","ratings":[3,6]}`
	req, _ := http.NewRequest("POST", srv.URL+"/api/v1/documents", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", rawKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("add request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	searchReq, _ := http.NewRequest("GET", srv.URL+"/api/v1/search?q=wombat", nil)
	searchReq.Header.Set("X-API-Key", rawKey)
	searchResp, err := http.DefaultClient.Do(searchReq)
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	defer searchResp.Body.Close()

	var result struct {
		TotalHits int `json:"total_hits"`
		Results   []struct {
			DocumentID int `json:"document_id"`
			Rating     int `json:"rating"`
		} `json:"results"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if result.TotalHits != 1 || len(result.Results) != 1 {
		t.Fatalf("expected one hit, got %+v", result)
	}
	if result.Results[0].DocumentID != 42 || result.Results[0].Rating != 4 {
		t.Errorf("hit = %+v, want document 42 with rating 4", result.Results[0])
	}
}

// TestPerKeyRateLimiting verifies the chain enforces per-key rate limits.
func TestPerKeyRateLimiting(t *testing.T) {
	db := skipIfNoPostgres(t)
	srv, validator := newSearchServer(t, db)

	rawKey, err := validator.CreateKey(t.Context(), "ratelimit-test", 2, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("GET", srv.URL+"/api/v1/search?q=cat", nil)
		req.Header.Set("X-API-Key", rawKey)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest("GET", srv.URL+"/api/v1/search?q=cat", nil)
	req.Header.Set("X-API-Key", rawKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("rate limited request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got == "" {
		t.Error("expected a Retry-After header on the 429 response")
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
