package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/searchlab/ranksearch/internal/tokenizer"
)

var sampleTexts = map[string]string{
	"short":  "the quick brown fox jumps over the lazy dog",
	"medium": strings.Repeat("fluffy cat with an expressive tail chased a groomed dog across the yard ", 8),
	"long":   strings.Repeat("inverted indexes map every term to the documents containing it while ranking weighs term frequency against corpus rarity ", 40),
}

func BenchmarkSplit(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				terms := tokenizer.Split(text)
				_ = terms
			}
		})
	}
}

func BenchmarkSplitParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			terms := tokenizer.Split(text)
			_ = terms
		}
	})
}

func BenchmarkSplitVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWords := "ranked search over an in memory inverted index "
	for _, size := range sizes {
		text := strings.Repeat(baseWords, size/len(baseWords)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				terms := tokenizer.Split(text)
				_ = terms
			}
		})
	}
}
