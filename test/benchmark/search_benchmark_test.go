package benchmark

import (
	"fmt"
	"testing"

	"github.com/searchlab/ranksearch/internal/document"
	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/query"
	"github.com/searchlab/ranksearch/internal/ranker"
	"github.com/searchlab/ranksearch/pkg/config"
)

// BenchmarkQueryParse measures query parsing latency for queries of varying
// shape.
func BenchmarkQueryParse(b *testing.B) {
	stop := benchStopWords()
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "fluffy cat"},
		{"with_minus", "fluffy cat -dog"},
		{"stop_heavy", "the cat in the hat on a mat"},
		{"repeated", "cat cat cat cat dog dog"},
		{"long", "fluffy groomed expressive shaggy brown nimble cat dog fox tail collar"},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				parsed := query.Parse(q.query, stop)
				_ = parsed
			}
		})
	}
}

// BenchmarkRank measures tf-idf scoring and sorting for different
// posting-list sizes.
func BenchmarkRank(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			postings := make(map[int]float64, numDocs)
			for i := 0; i < numDocs; i++ {
				postings[i] = 1.0 / float64((i%10)+1)
			}
			params := ranker.Params{
				TermFrequencies: map[string]map[int]float64{"search": postings},
				DocumentCount:   numDocs * 2,
				Accepts:         func(id int) bool { return true },
				RatingOf:        func(id int) int { return id % 7 },
				TopK:            10,
				TieEpsilon:      config.DefaultTieEpsilon,
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranked, hits := ranker.Rank(params)
				_, _ = ranked, hits
			}
		})
	}
}

// BenchmarkRankMultiTerm measures ranking with an increasing number of
// query terms.
func BenchmarkRankMultiTerm(b *testing.B) {
	termCounts := []int{1, 3, 5, 10}
	for _, tc := range termCounts {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			freqs := make(map[string]map[int]float64, tc)
			for t := 0; t < tc; t++ {
				postings := make(map[int]float64, 500)
				for i := 0; i < 500; i++ {
					postings[i] = 1.0 / float64((i%5)+1)
				}
				freqs[fmt.Sprintf("term%d", t)] = postings
			}
			params := ranker.Params{
				TermFrequencies: freqs,
				DocumentCount:   5000,
				Accepts:         func(id int) bool { return true },
				RatingOf:        func(id int) int { return id % 5 },
				TopK:            10,
				TieEpsilon:      config.DefaultTieEpsilon,
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ranked, hits := ranker.Rank(params)
				_, _ = ranked, hits
			}
		})
	}
}

func seedEngine(b *testing.B, numDocs int) *engine.Engine {
	b.Helper()
	eng := engine.New(config.EngineConfig{
		TopK:      10,
		StopWords: []string{"the", "a", "an", "in", "on", "with"},
	})
	terms := []string{"fluffy", "groomed", "cat", "dog", "tail", "collar", "fox", "sparrow"}
	for i := 0; i < numDocs; i++ {
		text := fmt.Sprintf("a %s %s with the %s in view",
			terms[i%len(terms)], terms[(i+1)%len(terms)], terms[(i+3)%len(terms)])
		if err := eng.AddDocument(i, text, document.StatusActual, []int{i % 9, -2, 4}); err != nil {
			b.Fatal(err)
		}
	}
	return eng
}

// BenchmarkEngineSearch measures end-to-end search latency at various
// corpus sizes.
func BenchmarkEngineSearch(b *testing.B) {
	sizes := []int{1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			eng := seedEngine(b, numDocs)
			queries := []string{"fluffy cat", "groomed dog -fox", "sparrow tail collar"}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result := eng.Search(queries[i%len(queries)], nil)
				_ = result
			}
		})
	}
}

// BenchmarkEngineSearchParallel measures concurrent search throughput over
// 10 000 documents.
func BenchmarkEngineSearchParallel(b *testing.B) {
	eng := seedEngine(b, 10000)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			result := eng.Search("fluffy cat -fox", nil)
			_ = result
		}
	})
}

// BenchmarkEngineMatch measures per-document match latency.
func BenchmarkEngineMatch(b *testing.B) {
	eng := seedEngine(b, 10000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := eng.MatchDocument("fluffy groomed cat dog", i%10000)
		if err != nil {
			b.Fatal(err)
		}
		_ = res
	}
}
