// Package retrieval implements similarity search over an in-memory record
// snapshot: brute-force cosine scoring with a bounded min-heap for top-K
// selection.
package retrieval

import (
	"container/heap"
	"math"
	"sort"

	"github.com/kalvix/mailrag/internal/record"
)

// DefaultTopK is the retrieval breadth used when a query doesn't specify one.
const DefaultTopK = 20

// Retrieve scores every in-scope record against the query vector and
// returns the topK highest, ordered by descending score with ties broken
// by ascending ID. Records belonging to other users are never scored.
// An empty in-scope set yields an empty result, not an error.
func Retrieve(queryVec []float32, records []record.Record, userID string, topK int) []record.Scored {
	if topK < 1 {
		topK = DefaultTopK
	}

	queryNorm := norm(queryVec)
	if queryNorm == 0 {
		return nil
	}

	h := &scoredHeap{}
	heap.Init(h)

	for _, r := range records {
		// Hard privacy boundary: out-of-scope records are skipped before scoring.
		if r.UserID != userID {
			continue
		}

		score := cosine(queryVec, r.Embedding, queryNorm)
		cand := record.Scored{Record: r, Score: score}
		if h.Len() < topK {
			heap.Push(h, cand)
		} else if better(cand, (*h)[0]) {
			(*h)[0] = cand
			heap.Fix(h, 0)
		}
	}

	if h.Len() == 0 {
		return nil
	}

	results := make([]record.Scored, h.Len())
	copy(results, *h)
	sort.Slice(results, func(i, j int) bool { return better(results[i], results[j]) })
	return results
}

// better reports whether a ranks above b: higher score first, equal
// scores ordered by ascending ID so results are deterministic.
func better(a, b record.Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * |b|).
// aNorm is the precomputed L2 norm of vector a. Mismatched lengths
// score zero.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// scoredHeap is a min-heap keeping the current top-K candidates; the root
// is the candidate that ranks lowest and is evicted first.
type scoredHeap []record.Scored

func (h scoredHeap) Len() int           { return len(h) }
func (h scoredHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)        { *h = append(*h, x.(record.Scored)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
