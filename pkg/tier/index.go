package tier

import (
	"math"
	"sort"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// Hit is one search result: a copy of the stored item plus its similarity
// score against the query.
type Hit struct {
	Item  memory.Item
	Score float64
}

// Index is a search strategy for ranking a tier's items against a query.
//
// The contract is top-k-by-cosine-similarity semantics only; implementations
// may be exact or approximate. Items must not be retained past the call:
// the slice is only valid while the caller holds the tier's read lock.
type Index interface {
	// Search returns up to k hits, descending by score.
	Search(items []memory.Item, query []float64, k int) []Hit
}

// FlatIndex is an exact linear-scan index. Used by the hot tier, where
// recall must not degrade.
type FlatIndex struct{}

// NewFlatIndex creates an exact linear-scan index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Search computes cosine similarity against every item and returns the
// top-k, descending.
func (ix *FlatIndex) Search(items []memory.Item, query []float64, k int) []Hit {
	return scan(items, query, k, 1.0)
}

// QuantizedIndex is a linear-scan index that applies a fixed quality
// discount to every score, modeling the recall loss of a coarser
// quantized index. Used by the warm tier.
type QuantizedIndex struct {
	// Discount multiplies every similarity score; typically just below 1.
	Discount float64
}

// NewQuantizedIndex creates an index with the given quality discount.
func NewQuantizedIndex(discount float64) *QuantizedIndex {
	return &QuantizedIndex{Discount: discount}
}

// Search computes discounted cosine similarity against every item and
// returns the top-k, descending.
func (ix *QuantizedIndex) Search(items []memory.Item, query []float64, k int) []Hit {
	return scan(items, query, k, ix.Discount)
}

// scan scores all items and keeps the k best.
func scan(items []memory.Item, query []float64, k int, discount float64) []Hit {
	if k < 1 || len(items) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(items))
	for i := range items {
		score := CosineSimilarity(query, items[i].Embedding) * discount
		hits = append(hits, Hit{Item: items[i], Score: score})
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// clamped to [-1, 1]. Mismatched dimensions or zero-norm vectors score 0
// rather than dividing by zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA < 1e-20 || normB < 1e-20 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}
