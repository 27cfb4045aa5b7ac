package analytics

import "container/heap"

// TopN returns the n highest-count queries ordered by count descending,
// breaking ties by query string ascending. It keeps a bounded min-heap so
// the cost is O(len(counts) * log n) regardless of map size.
func TopN(counts map[string]int64, n int) []QueryCount {
	if n <= 0 {
		n = 10
	}
	h := &queryCountHeap{}
	heap.Init(h)
	for query, count := range counts {
		heap.Push(h, QueryCount{Query: query, Count: count})
		if h.Len() > n {
			heap.Pop(h)
		}
	}
	result := make([]QueryCount, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(QueryCount)
	}
	return result
}

// queryCountHeap is a min-heap whose root is the entry that would sort last:
// lowest count first, and for equal counts the lexically larger query.
type queryCountHeap []QueryCount

func (h queryCountHeap) Len() int { return len(h) }

func (h queryCountHeap) Less(i, j int) bool {
	if h[i].Count != h[j].Count {
		return h[i].Count < h[j].Count
	}
	return h[i].Query > h[j].Query
}

func (h queryCountHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *queryCountHeap) Push(x interface{}) {
	*h = append(*h, x.(QueryCount))
}

func (h *queryCountHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
