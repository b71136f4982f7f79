package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainkit/tieredmem-go/pkg/archive/sqlite"
	"github.com/brainkit/tieredmem-go/pkg/memory"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "archive.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func archivedItem(id string) memory.Item {
	return memory.Item{
		SourceDocID:     id,
		Content:         "archived note for " + id,
		Embedding:       []float64{0.1, 0.2, 0.3},
		State:           []float64{1, 2},
		Action:          3,
		Reward:          0.8,
		Importance:      0.4,
		ProvenanceScore: 0.9,
		AccessCount:     7,
		CreatedAt:       time.Unix(0, 1700000000000000000),
		LastAccess:      time.Unix(0, 1700000100000000000),
		Tier:            memory.TierCold,
		Metadata:        map[string]interface{}{"origin": "ingest"},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	items := []memory.Item{archivedItem("doc-a"), archivedItem("doc-b")}
	require.NoError(t, store.Save(ctx, items))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]memory.Item{}
	for _, item := range loaded {
		byID[item.SourceDocID] = item
	}

	got, ok := byID["doc-a"]
	require.True(t, ok)
	assert.Equal(t, "archived note for doc-a", got.Content)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got.Embedding)
	assert.Equal(t, []float64{1, 2}, got.State)
	assert.Equal(t, 3, got.Action)
	assert.Equal(t, 0.8, got.Reward)
	assert.Equal(t, 0.4, got.Importance)
	assert.Equal(t, 0.9, got.ProvenanceScore)
	assert.Equal(t, int64(7), got.AccessCount)
	assert.True(t, got.CreatedAt.Equal(time.Unix(0, 1700000000000000000)))
	assert.Equal(t, memory.TierCold, got.Tier)
	assert.Equal(t, "ingest", got.Metadata["origin"])
}

func TestSaveReplacesExistingRow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	item := archivedItem("doc-a")
	require.NoError(t, store.Save(ctx, []memory.Item{item}))

	item.Importance = 0.05
	require.NoError(t, store.Save(ctx, []memory.Item{item}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 0.05, loaded[0].Importance)
}

func TestLoadEmpty(t *testing.T) {
	store := newStore(t)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
