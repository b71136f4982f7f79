// Package retrieval routes top-k similarity queries across the hot and warm
// tiers, backfilling from warm when hot comes up short.
package retrieval

import (
	"time"

	"github.com/brainkit/tieredmem-go/pkg/memory"
	"github.com/brainkit/tieredmem-go/pkg/tier"
)

// Timing reports the per-phase latency of one routed query.
type Timing struct {
	// Hot is the duration of the hot-tier search phase.
	Hot time.Duration

	// Warm is the duration of the warm-tier backfill phase, zero if the
	// warm tier was not queried.
	Warm time.Duration

	// WarmQueried reports whether a backfill search ran.
	WarmQueried bool
}

// Router answers retrieval queries against a hot and a warm store.
//
// The query flow is: search hot (shared lock) for up to the hot budget,
// backfill the shortfall from warm, record access touches on the stored
// items (brief exclusive lock per tier, taken only after the search lock is
// released), then rescale every score by the item's provenance trust.
//
// The warm store's index applies its quality discount itself, so backfilled
// scores already model coarse-index recall loss.
type Router struct {
	hot  *tier.Store
	warm *tier.Store

	// hotK caps how many results the hot phase may contribute before the
	// warm tier backfills the remainder. Zero means no cap.
	hotK int

	now func() time.Time
}

// NewRouter creates a router over the given stores.
//
// now supplies timestamps for access touches; pass nil for time.Now.
func NewRouter(hot, warm *tier.Store, hotK int, now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{hot: hot, warm: warm, hotK: hotK, now: now}
}

// Retrieve answers a top-k query. The query must be non-empty and k >= 1;
// argument validation is the caller's responsibility.
//
// The returned result carries parallel item/score/tier lists of equal
// length, at most k entries, plus the total observed latency.
func (r *Router) Retrieve(query []float64, k int) (*memory.RetrievalResult, Timing) {
	start := time.Now()
	var timing Timing

	hotBudget := k
	if r.hotK > 0 && r.hotK < hotBudget {
		hotBudget = r.hotK
	}

	hotStart := time.Now()
	hits := r.hot.Search(query, hotBudget)
	timing.Hot = time.Since(hotStart)
	hotHits := len(hits)

	if len(hits) < k && r.warm.Len() > 0 {
		warmStart := time.Now()
		hits = append(hits, r.warm.Search(query, k-len(hits))...)
		timing.Warm = time.Since(warmStart)
		timing.WarmQueried = true
	}

	now := r.now()
	r.touch(now, hits[:hotHits], r.hot)
	r.touch(now, hits[hotHits:], r.warm)

	result := &memory.RetrievalResult{
		Items:  make([]memory.Item, 0, len(hits)),
		Scores: make([]float64, 0, len(hits)),
		Tiers:  make([]memory.Tier, 0, len(hits)),
	}

	for i := range hits {
		item := hits[i].Item
		// Returned copies reflect the touch just recorded on the store.
		item.AccessCount++
		item.LastAccess = now

		result.Items = append(result.Items, item)
		result.Scores = append(result.Scores, hits[i].Score*item.ProvenanceScore)
		result.Tiers = append(result.Tiers, item.Tier)
	}

	result.Latency = time.Since(start)
	return result, timing
}

func (r *Router) touch(now time.Time, hits []tier.Hit, store *tier.Store) {
	if len(hits) == 0 {
		return
	}
	ids := make([]string, len(hits))
	for i := range hits {
		ids[i] = hits[i].Item.SourceDocID
	}
	store.Touch(now, ids...)
}
