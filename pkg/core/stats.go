package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of cache occupancy and activity.
//
// Tier counts are read from the stores at snapshot time; event counters
// accumulate over the cache's lifetime and reset on Clear.
type Stats struct {
	// HotCount, WarmCount, and ColdCount are the current item counts per tier.
	HotCount  int `json:"hot_count"`
	WarmCount int `json:"warm_count"`
	ColdCount int `json:"cold_count"`

	// TotalCount is the sum of the three tier counts.
	TotalCount int `json:"total_count"`

	// DuplicatesBlocked counts admissions rejected by signature similarity.
	DuplicatesBlocked int64 `json:"duplicates_blocked"`

	// Promotions and Demotions count successful tier moves.
	Promotions int64 `json:"promotions"`
	Demotions  int64 `json:"demotions"`

	// TotalQueries counts successful Retrieve calls.
	TotalQueries int64 `json:"total_queries"`

	// AvgHotLatencyMS is the running average hot-phase search latency in
	// milliseconds. AvgWarmLatencyMS averages only queries that actually
	// searched the warm tier.
	AvgHotLatencyMS  float64 `json:"avg_hot_latency_ms"`
	AvgWarmLatencyMS float64 `json:"avg_warm_latency_ms"`
}

// counters accumulates cache activity. Event counts are atomics; the
// latency averages share one mutex because each is an average over a
// count that must move with it.
type counters struct {
	duplicatesBlocked atomic.Int64
	promotions        atomic.Int64
	demotions         atomic.Int64
	totalQueries      atomic.Int64

	latencyMu      sync.Mutex
	hotQueries     int64
	warmQueries    int64
	avgHotLatency  float64 // milliseconds
	avgWarmLatency float64 // milliseconds
}

// recordQuery folds one query's phase timings into the running averages.
func (c *counters) recordQuery(hot, warm time.Duration, warmQueried bool) {
	c.totalQueries.Add(1)

	c.latencyMu.Lock()
	defer c.latencyMu.Unlock()

	c.hotQueries++
	c.avgHotLatency += (durationMS(hot) - c.avgHotLatency) / float64(c.hotQueries)

	if warmQueried {
		c.warmQueries++
		c.avgWarmLatency += (durationMS(warm) - c.avgWarmLatency) / float64(c.warmQueries)
	}
}

func (c *counters) snapshot(s *Stats) {
	s.DuplicatesBlocked = c.duplicatesBlocked.Load()
	s.Promotions = c.promotions.Load()
	s.Demotions = c.demotions.Load()
	s.TotalQueries = c.totalQueries.Load()

	c.latencyMu.Lock()
	s.AvgHotLatencyMS = c.avgHotLatency
	s.AvgWarmLatencyMS = c.avgWarmLatency
	c.latencyMu.Unlock()
}

func (c *counters) reset() {
	c.duplicatesBlocked.Store(0)
	c.promotions.Store(0)
	c.demotions.Store(0)
	c.totalQueries.Store(0)

	c.latencyMu.Lock()
	c.hotQueries = 0
	c.warmQueries = 0
	c.avgHotLatency = 0
	c.avgWarmLatency = 0
	c.latencyMu.Unlock()
}

func durationMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
