package core

import (
	"context"
	"sort"
	"time"

	"github.com/brainkit/tieredmem-go/pkg/archive"
	"github.com/brainkit/tieredmem-go/pkg/dedup"
	"github.com/brainkit/tieredmem-go/pkg/memory"
	"github.com/brainkit/tieredmem-go/pkg/retrieval"
	"github.com/brainkit/tieredmem-go/pkg/scoring"
	"github.com/brainkit/tieredmem-go/pkg/tier"
)

// Cache is the tiered memory cache facade.
//
// Items are admitted into the hot tier after validation and duplicate
// filtering, migrate toward warm and cold as tiers fill or as maintenance
// rebalances them, and are answered back out through top-k similarity
// retrieval over hot with warm backfill.
//
// Add and Retrieve are safe for concurrent use from many goroutines.
// Maintenance is designed for exactly one periodic caller; concurrent
// Maintenance invocations are not a supported pattern, though Add and
// Retrieve remain safe to run alongside it.
//
// Example:
//
//	cache, err := core.NewCache(core.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	cache.Add(memory.NewItem("doc_0001", embedding))
//	result, err := cache.Retrieve(query, 5)
type Cache struct {
	cfg *Config

	hot  *tier.Store
	warm *tier.Store
	cold *tier.Store

	registry *dedup.Registry
	scorer   *scoring.Scorer
	decay    *scoring.Decay
	router   *retrieval.Router

	archiver archive.Archiver
	now      func() time.Time

	counters counters
}

// Option customizes cache construction.
type Option func(*Cache)

// WithArchiver wires a durable store for cold-tier snapshots, enabling
// ArchiveCold and RestoreCold.
func WithArchiver(a archive.Archiver) Option {
	return func(c *Cache) { c.archiver = a }
}

// WithClock replaces the time source used for admission timestamps,
// access touches, and score evaluation. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache from the given configuration.
//
// The configuration is validated first; construction fails fast on any
// violation with an error wrapping ErrInvalidConfig.
func NewCache(cfg *Config, opts ...Option) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewCacheError("NewCache", err)
	}

	minhash, err := dedup.New(cfg.Dedup.NumHashes)
	if err != nil {
		return nil, NewCacheError("NewCache", err)
	}

	scorer := scoring.NewScorer(cfg.Decay.HalfLifeDays)
	if len(cfg.PromotionPolicies) > 0 {
		scorer.PromotionPolicies = cfg.PromotionPolicies
	}
	if len(cfg.DemotionPolicies) > 0 {
		scorer.DemotionPolicies = cfg.DemotionPolicies
	}

	c := &Cache{
		cfg:      cfg,
		hot:      tier.NewStore(memory.TierHot, cfg.Hot.Capacity, tier.NewFlatIndex()),
		warm:     tier.NewStore(memory.TierWarm, cfg.Warm.Capacity, tier.NewQuantizedIndex(cfg.Warm.QualityDiscount)),
		cold:     tier.NewStore(memory.TierCold, cfg.Cold.Capacity, tier.NewFlatIndex()),
		registry: dedup.NewRegistry(minhash, cfg.Dedup.SimilarityThreshold),
		scorer:   scorer,
		decay: &scoring.Decay{
			HalfLifeDays: cfg.Decay.HalfLifeDays,
			Temporal:     cfg.Decay.EnableTemporalDecay,
			Usage:        cfg.Decay.EnableUsageDecay,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.router = retrieval.NewRouter(c.hot, c.warm, cfg.Retrieval.HotK, c.now)
	return c, nil
}

// Add validates, deduplicates, and admits an item into the hot tier,
// evicting down the tier chain first if hot is at capacity.
//
// Returns false without error-style signaling for the two expected
// rejections: an invalid item (empty doc ID or embedding, out-of-range
// importance or provenance) and a near-duplicate of already-admitted
// content. Duplicate rejections increment the DuplicatesBlocked counter.
//
// The caller's item is not mutated; the stored copy carries the admission
// timestamps and the computed signature.
func (c *Cache) Add(item *memory.Item) bool {
	if item == nil || !item.Valid() {
		return false
	}

	rec := *item
	rec.Signature = c.signature(&rec)

	if !c.registry.Admit(rec.Signature) {
		c.counters.duplicatesBlocked.Add(1)
		return false
	}

	now := c.now()
	rec.CreatedAt = now
	rec.LastAccess = now
	rec.AccessCount = 0

	c.makeRoomHot(now)
	if err := c.hot.Insert(rec); err != nil {
		// Doc ID collision inside hot. Release the signature so the
		// content is not permanently blocked.
		c.registry.Forget(rec.Signature)
		return false
	}
	return true
}

// Consolidate admits the item with the given importance, but only when
// that importance clears the consolidation threshold. Below the threshold
// the call is a no-op and returns false.
func (c *Cache) Consolidate(item *memory.Item, importance float64) bool {
	if importance < c.cfg.ConsolidationThreshold {
		return false
	}
	if item == nil {
		return false
	}

	rec := *item
	rec.Importance = importance
	return c.Add(&rec)
}

// Retrieve answers a top-k similarity query: hot tier first, warm
// backfill on shortfall, scores rescaled by provenance.
//
// Returns an error wrapping ErrInvalidArgument if the query is empty or
// k < 1. Successful queries advance the query counter and the running
// latency averages.
func (c *Cache) Retrieve(query []float64, k int) (*memory.RetrievalResult, error) {
	if len(query) == 0 || k < 1 {
		return nil, NewCacheError("Retrieve", ErrInvalidArgument)
	}

	result, timing := c.router.Retrieve(query, k)
	c.counters.recordQuery(timing.Hot, timing.Warm, timing.WarmQueried)
	return result, nil
}

// Promote moves an item one or more levels toward the hot tier.
//
// The move is a no-op returning false when the item is absent from the
// source tier, the destination is at capacity, or the pair does not
// describe an upward move. Successful moves advance the promotion counter.
func (c *Cache) Promote(docID string, from, to memory.Tier) bool {
	if !from.Valid() || !to.Valid() || to.Rank() >= from.Rank() {
		return false
	}
	if c.move(docID, from, to) {
		c.counters.promotions.Add(1)
		return true
	}
	return false
}

// Demote moves an item one or more levels toward the cold tier, with the
// same no-op semantics as Promote. Successful moves advance the demotion
// counter.
func (c *Cache) Demote(docID string, from, to memory.Tier) bool {
	if !from.Valid() || !to.Valid() || to.Rank() <= from.Rank() {
		return false
	}
	if c.move(docID, from, to) {
		c.counters.demotions.Add(1)
		return true
	}
	return false
}

// move is the two-phase transfer: remove from source, insert into
// destination, never holding both tier locks. On a destination doc-ID
// collision the item is returned to its source.
func (c *Cache) move(docID string, from, to memory.Tier) bool {
	src := c.store(from)
	dst := c.store(to)
	if src == nil || dst == nil {
		return false
	}
	if dst.Len() >= dst.Capacity() {
		return false
	}

	item, ok := src.Remove(docID)
	if !ok {
		return false
	}
	if err := dst.Insert(item); err != nil {
		_ = src.Insert(item)
		return false
	}
	return true
}

// ApplyDecay applies temporal and usage decay to every hot and warm item.
// Cold is archival and is not decayed.
func (c *Cache) ApplyDecay() {
	if !c.decay.Enabled() {
		return
	}
	now := c.now()
	c.hot.Apply(func(item *memory.Item) { c.decay.Apply(item, now) })
	c.warm.Apply(func(item *memory.Item) { c.decay.Apply(item, now) })
}

// CheckPromotions promotes the highest-promotion-score warm items into
// hot while hot has spare capacity. Returns the number promoted.
func (c *Cache) CheckPromotions() int {
	spare := c.cfg.Hot.Capacity - c.hot.Len()
	if spare <= 0 {
		return 0
	}

	now := c.now()
	candidates := c.rank(c.warm, spare, func(item *memory.Item) float64 {
		return c.scorer.PromotionScore(item, now)
	})

	promoted := 0
	for _, id := range candidates {
		if c.hot.Len() >= c.cfg.Hot.Capacity {
			break
		}
		if c.Promote(id, memory.TierWarm, memory.TierHot) {
			promoted++
		}
	}
	return promoted
}

// CheckDemotions demotes the highest-demotion-score hot items into warm
// until hot is back at or under capacity. Returns the number demoted.
func (c *Cache) CheckDemotions() int {
	excess := c.hot.Len() - c.cfg.Hot.Capacity
	if excess <= 0 {
		return 0
	}

	now := c.now()
	candidates := c.rank(c.hot, excess, func(item *memory.Item) float64 {
		return c.scorer.DemotionScore(item, now)
	})

	demoted := 0
	for _, id := range candidates {
		if c.hot.Len() <= c.cfg.Hot.Capacity {
			break
		}
		c.makeRoomWarm(now)
		if c.Demote(id, memory.TierHot, memory.TierWarm) {
			demoted++
		}
	}
	return demoted
}

// Maintenance runs one rebalancing cycle in the fixed order: decay, then
// promotions, then demotions. One periodic caller should serialize
// invocations; Add and Retrieve remain safe to run concurrently with it.
func (c *Cache) Maintenance() {
	c.ApplyDecay()
	c.CheckPromotions()
	c.CheckDemotions()
}

// Clear empties every tier and the signature registry and resets all
// stats. Locks are taken sequentially in hot, warm, cold, dedup order.
func (c *Cache) Clear() {
	c.hot.Clear()
	c.warm.Clear()
	c.cold.Clear()
	c.registry.Clear()
	c.counters.reset()
}

// Stats returns a point-in-time snapshot of occupancy and activity.
func (c *Cache) Stats() Stats {
	var s Stats
	s.HotCount = c.hot.Len()
	s.WarmCount = c.warm.Len()
	s.ColdCount = c.cold.Len()
	s.TotalCount = s.HotCount + s.WarmCount + s.ColdCount
	c.counters.snapshot(&s)
	return s
}

// HotSize returns the current hot-tier item count.
func (c *Cache) HotSize() int { return c.hot.Len() }

// WarmSize returns the current warm-tier item count.
func (c *Cache) WarmSize() int { return c.warm.Len() }

// ColdSize returns the current cold-tier item count.
func (c *Cache) ColdSize() int { return c.cold.Len() }

// TotalSize returns the item count across all tiers.
func (c *Cache) TotalSize() int {
	return c.hot.Len() + c.warm.Len() + c.cold.Len()
}

// ArchiveCold persists a snapshot of the cold tier through the configured
// archiver. Returns an error wrapping ErrNoArchiver when none is wired.
func (c *Cache) ArchiveCold(ctx context.Context) error {
	if c.archiver == nil {
		return NewCacheError("ArchiveCold", ErrNoArchiver)
	}
	if err := c.archiver.Save(ctx, c.cold.Snapshot()); err != nil {
		return NewCacheError("ArchiveCold", err)
	}
	return nil
}

// RestoreCold loads archived items back into the cold tier. Items whose
// doc ID already lives in any tier are skipped; restored signatures are
// recomputed and re-registered so dedup keeps covering cold content.
func (c *Cache) RestoreCold(ctx context.Context) (int, error) {
	if c.archiver == nil {
		return 0, NewCacheError("RestoreCold", ErrNoArchiver)
	}

	items, err := c.archiver.Load(ctx)
	if err != nil {
		return 0, NewCacheError("RestoreCold", err)
	}

	restored := 0
	for i := range items {
		item := items[i]
		if !item.Valid() {
			continue
		}
		if c.hot.Contains(item.SourceDocID) ||
			c.warm.Contains(item.SourceDocID) ||
			c.cold.Contains(item.SourceDocID) {
			continue
		}

		item.Signature = c.signature(&item)
		c.registry.Admit(item.Signature)
		if err := c.cold.Insert(item); err != nil {
			continue
		}
		restored++
	}
	return restored, nil
}

// signature computes the item's dedup fingerprint, preferring text
// content over the embedding when both are present.
func (c *Cache) signature(item *memory.Item) dedup.Signature {
	minhash := c.registry.MinHash()
	if item.Content != "" {
		return minhash.TextSignature(item.Content)
	}
	return minhash.EmbeddingSignature(item.Embedding)
}

func (c *Cache) store(t memory.Tier) *tier.Store {
	switch t {
	case memory.TierHot:
		return c.hot
	case memory.TierWarm:
		return c.warm
	case memory.TierCold:
		return c.cold
	default:
		return nil
	}
}

// rank snapshots a store, sorts doc IDs descending by score, and returns
// up to limit of them.
func (c *Cache) rank(s *tier.Store, limit int, score func(item *memory.Item) float64) []string {
	snapshot := s.Snapshot()
	type scored struct {
		id    string
		score float64
	}

	ranked := make([]scored, len(snapshot))
	for i := range snapshot {
		ranked[i] = scored{id: snapshot[i].SourceDocID, score: score(&snapshot[i])}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	ids := make([]string, limit)
	for i := 0; i < limit; i++ {
		ids[i] = ranked[i].id
	}
	return ids
}

// makeRoomHot evicts the lowest-promotion-score hot items into warm until
// hot has room for one more insert, cascading warm overflow into cold.
func (c *Cache) makeRoomHot(now time.Time) {
	for c.hot.Len() >= c.cfg.Hot.Capacity {
		evicted, ok := c.hot.EvictLowest(func(item *memory.Item) float64 {
			return c.scorer.PromotionScore(item, now)
		})
		if !ok {
			return
		}
		c.makeRoomWarm(now)
		if err := c.warm.Insert(evicted); err != nil {
			c.registry.Forget(evicted.Signature)
		}
	}
}

// makeRoomWarm evicts the lowest-promotion-score warm items into cold
// until warm has room, cascading cold overflow into a purge.
func (c *Cache) makeRoomWarm(now time.Time) {
	for c.warm.Len() >= c.cfg.Warm.Capacity {
		evicted, ok := c.warm.EvictLowest(func(item *memory.Item) float64 {
			return c.scorer.PromotionScore(item, now)
		})
		if !ok {
			return
		}
		c.makeRoomCold(now)
		if err := c.cold.Insert(evicted); err != nil {
			c.registry.Forget(evicted.Signature)
		}
	}
}

// makeRoomCold purges the lowest-promotion-score cold items until cold
// has room. Purged signatures are forgotten so equivalent content may be
// re-admitted later.
func (c *Cache) makeRoomCold(now time.Time) {
	for c.cold.Len() >= c.cfg.Cold.Capacity {
		purged, ok := c.cold.EvictLowest(func(item *memory.Item) float64 {
			return c.scorer.PromotionScore(item, now)
		})
		if !ok {
			return
		}
		c.registry.Forget(purged.Signature)
	}
}
