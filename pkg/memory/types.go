// Package memory defines the record types shared by all cache layers.
//
// The types live in a leaf package so that tier storage, scoring, retrieval,
// and the facade can all depend on them without import cycles.
package memory

import (
	"time"

	"github.com/brainkit/tieredmem-go/pkg/dedup"
)

// Tier identifies one of the three storage levels.
type Tier string

const (
	// TierHot is the fastest, smallest tier; all new items land here.
	TierHot Tier = "hot"

	// TierWarm is the larger, coarser-search tier fed by hot-tier eviction.
	TierWarm Tier = "warm"

	// TierCold is the archival tier; items here are not decayed or searched
	// during retrieval.
	TierCold Tier = "cold"
)

// Valid reports whether t names a known tier.
func (t Tier) Valid() bool {
	return t == TierHot || t == TierWarm || t == TierCold
}

// Rank orders tiers from fastest (0) to slowest (2). Unknown tiers rank
// below cold.
func (t Tier) Rank() int {
	switch t {
	case TierHot:
		return 0
	case TierWarm:
		return 1
	case TierCold:
		return 2
	default:
		return 3
	}
}

// Item is a single embedding-addressable memory record.
//
// An item is uniquely keyed by SourceDocID and owned by exactly one tier's
// storage at any instant. The Embedding slice is treated as immutable after
// admission; mutable lifecycle fields (Importance, AccessCount, LastAccess)
// are only written under the owning tier's exclusive lock.
//
// Example:
//
//	item := memory.NewItem("doc_0001", embedding)
//	item.Reward = 0.8
//	item.ProvenanceScore = 0.9
type Item struct {
	// SourceDocID uniquely identifies the item across all tiers.
	SourceDocID string `json:"source_doc_id"`

	// Embedding is the fixed-dimension vector used for similarity search.
	// Must be non-empty.
	Embedding []float64 `json:"embedding"`

	// Content is the optional raw text the item was derived from. When
	// present it is preferred over the embedding for signature computation.
	Content string `json:"content,omitempty"`

	// State is an opaque auxiliary vector carried through unchanged
	// (e.g. workspace state from the producing simulation).
	State []float64 `json:"state,omitempty"`

	// Action is an opaque application-specific action identifier.
	Action int `json:"action,omitempty"`

	// Reward is the task reward associated with this item, used by the
	// promotion/demotion scorer.
	Reward float64 `json:"reward"`

	// Importance is the consolidation weight in [0, 1]. It decays over time
	// and is never restored by decay alone.
	Importance float64 `json:"importance"`

	// ProvenanceScore is a static trust multiplier in [0, 1] applied at
	// retrieval time and in scoring. It never decays.
	ProvenanceScore float64 `json:"provenance_score"`

	// AccessCount counts retrieval hits.
	AccessCount int64 `json:"access_count"`

	// CreatedAt is when the item was admitted.
	CreatedAt time.Time `json:"created_at"`

	// LastAccess is when the item was last returned by a retrieval.
	LastAccess time.Time `json:"last_access"`

	// Signature is the MinHash fingerprint computed once at admission.
	Signature dedup.Signature `json:"-"`

	// Tier is the storage level currently owning the item.
	Tier Tier `json:"tier"`

	// Metadata carries additional opaque attributes.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewItem creates an item with the defaults a fresh record carries before
// admission: importance 0.5, full provenance trust, and creation timestamps.
func NewItem(sourceDocID string, embedding []float64) *Item {
	now := time.Now()
	return &Item{
		SourceDocID:     sourceDocID,
		Embedding:       embedding,
		Importance:      0.5,
		ProvenanceScore: 1.0,
		CreatedAt:       now,
		LastAccess:      now,
		Tier:            TierHot,
	}
}

// Valid reports whether the item satisfies the admission invariants:
// non-empty SourceDocID, non-empty embedding, and Importance and
// ProvenanceScore within [0, 1].
func (it *Item) Valid() bool {
	return it.SourceDocID != "" &&
		len(it.Embedding) > 0 &&
		it.Importance >= 0.0 && it.Importance <= 1.0 &&
		it.ProvenanceScore >= 0.0 && it.ProvenanceScore <= 1.0
}

// RetrievalResult is the outcome of a top-k similarity query.
//
// Items, Scores, and Tiers are parallel lists of equal length, at most k
// entries. Items are copies; mutating them does not affect stored records.
type RetrievalResult struct {
	// Items holds the matched records, best first.
	Items []Item

	// Scores holds the similarity score of each item after the warm-tier
	// quality discount and provenance rescaling.
	Scores []float64

	// Tiers records which tier each item was served from.
	Tiers []Tier

	// Latency is the observed wall-clock duration of the query.
	Latency time.Duration
}
