// Command loadtest drives sustained load against a running search service
// and reports throughput, latency percentiles, status-code distribution,
// and the observed cache-hit ratio. With -seed it first populates the index
// so queries return real results; -write-ratio mixes add-document requests
// into the run.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m -seed 500 -write-ratio 0.05
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Concurrency int
	Duration    time.Duration
	Seed        int
	WriteRatio  float64
	Queries     []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	searchBodies  atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

// RecordCacheHit tracks the cache_hit flag decoded from a search response.
func (s *Stats) RecordCacheHit(hit bool) {
	s.searchBodies.Add(1)
	if hit {
		s.cacheHits.Add(1)
	}
}

// seedTexts is the vocabulary pool for -seed; the query list below is drawn
// from the same words so load-test searches produce hits.
var seedTexts = []string{
	"fluffy cat with a shaggy tail",
	"brown dog chased the nimble fox",
	"white cat in a white hat",
	"groomed dog with expressive eyes",
	"quiet owl hunts at midnight",
	"river stone worn smooth by water",
	"bright lantern over the harbor",
	"swift falcon dive at dawn",
	"sleepy cat on a warm stone",
	"barking dog guards the gate",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	apiKey := flag.String("api-key", "", "API key sent as X-API-Key (when auth is enabled)")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 0, "documents to index before the run (0 skips seeding)")
	writeRatio := flag.Float64("write-ratio", 0, "fraction of requests that add documents (0..1)")
	flag.Parse()

	if *writeRatio < 0 || *writeRatio > 1 {
		fmt.Fprintln(os.Stderr, "write-ratio must be between 0 and 1")
		os.Exit(1)
	}

	queries := []string{
		"fluffy cat",
		"brown dog -fox",
		"white cat hat",
		"expressive eyes",
		"groomed dog",
		"cat -dog",
		"nimble fox",
		"shaggy tail",
		"quiet owl midnight",
		"river stone",
		"bright lantern harbor",
		"swift falcon dive",
		"warm stone cat",
		"dog -cat",
	}

	cfg := Config{
		BaseURL:     *baseURL,
		APIKey:      *apiKey,
		Concurrency: *concurrency,
		Duration:    *duration,
		Seed:        *seed,
		WriteRatio:  *writeRatio,
		Queries:     queries,
	}

	fmt.Println("=== Search Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	if cfg.WriteRatio > 0 {
		fmt.Printf("Write Ratio: %.0f%%\n", cfg.WriteRatio*100)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.Seed > 0 {
		seedDocuments(client, cfg)
	}
	fmt.Println()

	stats := runLoadTest(client, cfg)
	printReport(stats, cfg.Duration)
}

// seedDocuments indexes Seed documents drawn from seedTexts. Conflicts from
// a previously seeded index count as already present, not failures.
func seedDocuments(client *http.Client, cfg Config) {
	seeded := 0
	for id := 0; id < cfg.Seed; id++ {
		body := fmt.Sprintf(`{"document_id":%d,"text":%q,"ratings":[%d,%d]}`,
			id, seedTexts[id%len(seedTexts)], id%11-3, (id*7)%10)

		req, err := http.NewRequest(http.MethodPost, cfg.BaseURL+"/api/v1/documents", strings.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed request: %v\n", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if cfg.APIKey != "" {
			req.Header.Set("X-API-Key", cfg.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seeding aborted: %v\n", err)
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
			seeded++
		}
	}
	fmt.Printf("Seeded:      %d/%d documents\n", seeded, cfg.Seed)
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	// Every writeEvery-th request becomes an add-document; ids continue
	// past the seeded range so writes never conflict.
	writeEvery := 0
	if cfg.WriteRatio > 0 {
		writeEvery = int(math.Round(1 / cfg.WriteRatio))
	}
	var nextDocID atomic.Int64
	nextDocID.Store(int64(cfg.Seed))

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				reqNum := queryIdx
				queryIdx++

				if writeEvery > 0 && reqNum%writeEvery == 0 {
					id := int(nextDocID.Add(1)) - 1
					body := fmt.Sprintf(`{"document_id":%d,"text":%q,"ratings":[%d,%d]}`,
						id, seedTexts[id%len(seedTexts)], id%11-3, (id*7)%10)
					req, err := http.NewRequestWithContext(ctx, http.MethodPost,
						cfg.BaseURL+"/api/v1/documents", strings.NewReader(body))
					if err != nil {
						stats.RecordRequest(0, 0, err)
						continue
					}
					req.Header.Set("Content-Type", "application/json")
					if cfg.APIKey != "" {
						req.Header.Set("X-API-Key", cfg.APIKey)
					}
					start := time.Now()
					resp, err := client.Do(req)
					duration := time.Since(start)
					if err != nil {
						stats.RecordRequest(duration, 0, err)
						continue
					}
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
					stats.RecordRequest(duration, resp.StatusCode, nil)
					continue
				}

				query := cfg.Queries[reqNum%len(cfg.Queries)]

				searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10",
					cfg.BaseURL, url.QueryEscape(query))

				start := time.Now()
				resp, err := client.Do(mustNewRequest(ctx, searchURL, cfg.APIKey))
				duration := time.Since(start)

				if err != nil {
					stats.RecordRequest(duration, 0, err)
					continue
				}
				if resp.StatusCode == http.StatusOK {
					var sr struct {
						CacheHit bool `json:"cache_hit"`
					}
					if decErr := json.NewDecoder(resp.Body).Decode(&sr); decErr == nil {
						stats.RecordCacheHit(sr.CacheHit)
					}
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(duration, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mustNewRequest(ctx context.Context, rawURL, apiKey string) *http.Request {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return req
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	if bodies := stats.searchBodies.Load(); bodies > 0 {
		hits := stats.cacheHits.Load()
		fmt.Printf("Cache Hits:      %d/%d (%.2f%%)\n", hits, bodies, float64(hits)/float64(bodies)*100)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
		fmt.Printf("StdDev: %s\n", stddev)
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
