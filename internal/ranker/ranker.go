package ranker

import (
	"math"
	"sort"
)

// ScoredDocument is one ranked result: a snapshot of the document's id,
// its TF-IDF relevance for the query, and its rating at score time.
type ScoredDocument struct {
	ID        int     `json:"document_id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// Params carries everything Rank needs: the postings of each plus term
// present in the index, the corpus size, the ids excluded by minus terms,
// the filter predicate, and the instance's ranking configuration.
type Params struct {
	TermFrequencies map[string]map[int]float64
	DocumentCount   int
	Excluded        map[int]struct{}
	Accepts         func(id int) bool
	RatingOf        func(id int) int
	TopK            int
	TieEpsilon      float64
}

// Rank accumulates tf·idf relevance over the plus terms for every document
// accepted by the filter, removes excluded documents afterwards (exclusion
// is filter-independent and always wins), sorts, and truncates to TopK.
// It returns the ranked slice and the number of surviving candidates
// before truncation.
func Rank(p Params) ([]ScoredDocument, int) {
	if p.DocumentCount == 0 || len(p.TermFrequencies) == 0 {
		return []ScoredDocument{}, 0
	}

	relevance := make(map[int]float64)
	for _, postings := range p.TermFrequencies {
		if len(postings) == 0 {
			continue
		}
		idf := math.Log(float64(p.DocumentCount) / float64(len(postings)))
		for id, tf := range postings {
			if p.Accepts != nil && !p.Accepts(id) {
				continue
			}
			relevance[id] += tf * idf
		}
	}
	for id := range p.Excluded {
		delete(relevance, id)
	}

	result := make([]ScoredDocument, 0, len(relevance))
	for id, rel := range relevance {
		rating := 0
		if p.RatingOf != nil {
			rating = p.RatingOf(id)
		}
		result = append(result, ScoredDocument{
			ID:        id,
			Relevance: rel,
			Rating:    rating,
		})
	}
	total := len(result)

	sort.Slice(result, func(i, j int) bool {
		return less(result[i], result[j], p.TieEpsilon)
	})
	if p.TopK > 0 && len(result) > p.TopK {
		result = result[:p.TopK]
	}
	return result, total
}

// less orders by relevance descending; relevance within eps of equal falls
// back to rating descending, then id ascending for a deterministic order.
func less(a, b ScoredDocument, eps float64) bool {
	if math.Abs(a.Relevance-b.Relevance) < eps {
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	}
	return a.Relevance > b.Relevance
}
