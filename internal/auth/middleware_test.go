package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/searchlab/ranksearch/internal/auth/apikey"
	"github.com/searchlab/ranksearch/internal/auth/ratelimit"
)

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{"bearer header", "/api/v1/search", map[string]string{"Authorization": "Bearer sk-abc"}, "sk-abc"},
		{"x-api-key header", "/api/v1/search", map[string]string{"X-API-Key": "sk-def"}, "sk-def"},
		{"query parameter", "/api/v1/search?api_key=sk-ghi", nil, "sk-ghi"},
		{"bearer wins over x-api-key", "/api/v1/search", map[string]string{
			"Authorization": "Bearer first",
			"X-API-Key":     "second",
		}, "first"},
		{"header wins over query", "/api/v1/search?api_key=second", map[string]string{"X-API-Key": "first"}, "first"},
		{"non-bearer authorization ignored", "/api/v1/search", map[string]string{"Authorization": "Basic dXNlcg=="}, ""},
		{"no key", "/api/v1/search", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := extractAPIKey(r); got != tt.want {
				t.Errorf("extractAPIKey = %q, want %q", got, tt.want)
			}
		})
	}
}

// Health requests and keyless requests are decided before the validator is
// consulted, so these paths are exercised without a database.
func TestAuthExemptsHealthEndpoints(t *testing.T) {
	called := false
	h := Auth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		called = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if !called {
			t.Errorf("%s did not reach the handler", path)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthRejectsMissingKey(t *testing.T) {
	called := false
	h := Auth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("keyless request reached the handler")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRateLimitEnforcesPerKey(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(keyID string) *httptest.ResponseRecorder {
		info := &apikey.KeyInfo{ID: keyID, RateLimit: 2}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil)
		req = req.WithContext(context.WithValue(req.Context(), contextKey{}, info))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("key-1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := send("key-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after the limit", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}

	// Another key has its own bucket.
	if rec := send("key-2"); rec.Code != http.StatusOK {
		t.Errorf("key-2 status = %d, want 200", rec.Code)
	}
}

func TestRateLimitPassesRequestsWithoutKeyInfo(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	called := false
	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("request without key info: called = %v, status = %d", called, rec.Code)
	}
}

func TestGetKeyInfo(t *testing.T) {
	if info := GetKeyInfo(context.Background()); info != nil {
		t.Errorf("GetKeyInfo on empty context = %+v, want nil", info)
	}

	want := &apikey.KeyInfo{ID: "key-9", Name: "reporting"}
	ctx := context.WithValue(context.Background(), contextKey{}, want)
	if got := GetKeyInfo(ctx); got != want {
		t.Errorf("GetKeyInfo = %+v, want %+v", got, want)
	}
}
