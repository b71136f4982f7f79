package core_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainkit/tieredmem-go/pkg/core"
	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// testConfig returns a small-capacity configuration for facade tests.
func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Hot.Capacity = 10
	cfg.Warm.Capacity = 20
	cfg.Cold.Capacity = 40
	return cfg
}

const contentAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// distinctItem builds a valid item whose single-letter content shares no
// text shingle with any other index, keeping admission signatures
// pairwise distinct.
func distinctItem(i int) *memory.Item {
	item := memory.NewItem(
		"doc-"+string(contentAlphabet[i%len(contentAlphabet)]),
		[]float64{float64(i + 1), 1.0},
	)
	item.Content = strings.Repeat(string(contentAlphabet[i%len(contentAlphabet)]), 6)
	return item
}

func TestAddAndRetrieve(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	item := memory.NewItem("doc-1", []float64{1, 0})
	assert.True(t, cache.Add(item))
	assert.Equal(t, 1, cache.TotalSize())
	assert.Equal(t, 1, cache.HotSize())

	result, err := cache.Retrieve([]float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "doc-1", result.Items[0].SourceDocID)
	assert.Equal(t, memory.TierHot, result.Tiers[0])
}

func TestAddRejectsInvalidItems(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	assert.False(t, cache.Add(nil))
	assert.False(t, cache.Add(memory.NewItem("", []float64{1, 0})), "empty doc id")
	assert.False(t, cache.Add(memory.NewItem("doc-1", nil)), "empty embedding")

	bad := memory.NewItem("doc-1", []float64{1, 0})
	bad.Importance = 1.5
	assert.False(t, cache.Add(bad), "out-of-range importance")

	bad = memory.NewItem("doc-1", []float64{1, 0})
	bad.ProvenanceScore = -0.1
	assert.False(t, cache.Add(bad), "out-of-range provenance")

	assert.Equal(t, 0, cache.TotalSize())
}

func TestAddBlocksDuplicateEmbedding(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	embedding := []float64{0.1, -0.4, 0.9, 0.3}
	assert.True(t, cache.Add(memory.NewItem("doc-a", embedding)))
	assert.False(t, cache.Add(memory.NewItem("doc-b", embedding)),
		"identical embedding under a different doc id is a duplicate")

	assert.Equal(t, 1, cache.TotalSize())
	assert.Equal(t, int64(1), cache.Stats().DuplicatesBlocked)
}

func TestAddEvictsIntoWarm(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		require.True(t, cache.Add(distinctItem(i)), "item %d must be admitted", i)
	}

	assert.LessOrEqual(t, cache.HotSize(), 10)
	assert.GreaterOrEqual(t, cache.WarmSize(), 5)
	assert.Equal(t, 15, cache.TotalSize())
}

func TestRetrieveInvalidArguments(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	_, err = cache.Retrieve(nil, 5)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = cache.Retrieve([]float64{1, 0}, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = cache.Retrieve([]float64{1, 0}, -1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	assert.Equal(t, int64(0), cache.Stats().TotalQueries,
		"rejected queries must not advance the query counter")
}

func TestRetrieveParallelListsBounded(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.True(t, cache.Add(distinctItem(i)))
	}

	result, err := cache.Retrieve([]float64{1, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, len(result.Items), len(result.Scores))
	assert.Equal(t, len(result.Items), len(result.Tiers))
	assert.LessOrEqual(t, len(result.Items), 3)
}

func TestConsolidate(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	item := distinctItem(0)
	assert.False(t, cache.Consolidate(item, 0.5), "importance below threshold is a no-op")
	assert.Equal(t, 0, cache.TotalSize())

	assert.True(t, cache.Consolidate(item, 0.9))
	assert.Equal(t, 1, cache.TotalSize())
}

func TestPromoteAndDemote(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	item := distinctItem(0)
	require.True(t, cache.Add(item))

	assert.True(t, cache.Demote(item.SourceDocID, memory.TierHot, memory.TierWarm))
	assert.Equal(t, 0, cache.HotSize())
	assert.Equal(t, 1, cache.WarmSize())

	assert.True(t, cache.Promote(item.SourceDocID, memory.TierWarm, memory.TierHot))
	assert.Equal(t, 1, cache.HotSize())
	assert.Equal(t, 0, cache.WarmSize())

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Promotions)
	assert.Equal(t, int64(1), stats.Demotions)
}

func TestMoveNoOps(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	item := distinctItem(0)
	require.True(t, cache.Add(item))

	assert.False(t, cache.Promote("missing", memory.TierWarm, memory.TierHot),
		"absent doc id is a no-op")
	assert.False(t, cache.Promote(item.SourceDocID, memory.TierHot, memory.TierWarm),
		"promote must move toward hot")
	assert.False(t, cache.Demote(item.SourceDocID, memory.TierWarm, memory.TierHot),
		"demote must move toward cold")
	assert.False(t, cache.Demote(item.SourceDocID, "lukewarm", memory.TierWarm),
		"unknown tiers are a no-op")

	assert.Equal(t, 1, cache.HotSize())
	assert.Equal(t, int64(0), cache.Stats().Promotions)
	assert.Equal(t, int64(0), cache.Stats().Demotions)
}

func TestApplyDecayViaFacade(t *testing.T) {
	now := time.Now()
	clock := now
	cache, err := core.NewCache(testConfig(), core.WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	item := distinctItem(0)
	require.True(t, cache.Add(item))

	clock = now.Add(30 * 24 * time.Hour)
	cache.ApplyDecay()

	result, err := cache.Retrieve([]float64{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Less(t, result.Items[0].Importance, 0.5,
		"a half-life of age must shrink importance")
	assert.GreaterOrEqual(t, result.Items[0].Importance, 0.005,
		"decay is floored, importance does not collapse to zero in one pass")
}

func TestMaintenancePromotesFromWarm(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	item := distinctItem(0)
	require.True(t, cache.Add(item))
	require.True(t, cache.Demote(item.SourceDocID, memory.TierHot, memory.TierWarm))

	promoted := cache.CheckPromotions()
	assert.Equal(t, 1, promoted)
	assert.Equal(t, 1, cache.HotSize())
	assert.Equal(t, 0, cache.WarmSize())
}

func TestMaintenanceRunsAllPhases(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.True(t, cache.Add(distinctItem(i)))
	}

	cache.Maintenance()
	assert.Equal(t, 5, cache.TotalSize(), "maintenance must not lose items")
}

func TestClear(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	first := distinctItem(0)
	require.True(t, cache.Add(first))
	require.True(t, cache.Add(distinctItem(1)))
	_, err = cache.Retrieve([]float64{1, 0}, 1)
	require.NoError(t, err)

	cache.Clear()

	assert.Equal(t, 0, cache.HotSize())
	assert.Equal(t, 0, cache.WarmSize())
	assert.Equal(t, 0, cache.ColdSize())

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.TotalQueries)
	assert.Equal(t, int64(0), stats.DuplicatesBlocked)
	assert.Equal(t, 0.0, stats.AvgHotLatencyMS)

	assert.True(t, cache.Add(first), "cleared content must be re-admittable")
}

func TestStatsSnapshot(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.True(t, cache.Add(distinctItem(i)))
	}
	_, err = cache.Retrieve([]float64{1, 0}, 2)
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, 3, stats.HotCount)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.GreaterOrEqual(t, stats.AvgHotLatencyMS, 0.0)
}

func TestConcurrentAdds(t *testing.T) {
	cfg := testConfig()
	cfg.Hot.Capacity = 50
	cfg.Warm.Capacity = 100
	cfg.Cold.Capacity = 200
	cache, err := core.NewCache(cfg)
	require.NoError(t, err)

	const workers = 4
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				cache.Add(distinctItem(w*perWorker + i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, cache.TotalSize(), "no adds may be lost")
	assert.Equal(t, int64(0), cache.Stats().DuplicatesBlocked)
}

func TestConcurrentAddRetrieve(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			cache.Add(distinctItem(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := cache.Retrieve([]float64{1, 1}, 3)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Equal(t, 20, cache.TotalSize())
}

func TestArchiveWithoutArchiver(t *testing.T) {
	cache, err := core.NewCache(testConfig())
	require.NoError(t, err)

	err = cache.ArchiveCold(context.Background())
	assert.ErrorIs(t, err, core.ErrNoArchiver)

	_, err = cache.RestoreCold(context.Background())
	assert.ErrorIs(t, err, core.ErrNoArchiver)
}

func TestNewCacheInvalidConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Warm.Capacity = cfg.Hot.Capacity - 1

	_, err := core.NewCache(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
