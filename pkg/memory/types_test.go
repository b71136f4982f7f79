package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

func TestTierValid(t *testing.T) {
	assert.True(t, memory.TierHot.Valid())
	assert.True(t, memory.TierWarm.Valid())
	assert.True(t, memory.TierCold.Valid())
	assert.False(t, memory.Tier("lukewarm").Valid())
	assert.False(t, memory.Tier("").Valid())
}

func TestTierRank(t *testing.T) {
	assert.Less(t, memory.TierHot.Rank(), memory.TierWarm.Rank())
	assert.Less(t, memory.TierWarm.Rank(), memory.TierCold.Rank())
	assert.Greater(t, memory.Tier("lukewarm").Rank(), memory.TierCold.Rank())
}

func TestNewItemDefaults(t *testing.T) {
	item := memory.NewItem("doc-1", []float64{1, 0})

	assert.Equal(t, "doc-1", item.SourceDocID)
	assert.Equal(t, 0.5, item.Importance)
	assert.Equal(t, 1.0, item.ProvenanceScore)
	assert.Equal(t, memory.TierHot, item.Tier)
	assert.False(t, item.CreatedAt.IsZero())
	assert.True(t, item.Valid())
}

func TestItemValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(item *memory.Item)
		valid  bool
	}{
		{"defaults", func(item *memory.Item) {}, true},
		{"empty doc id", func(item *memory.Item) { item.SourceDocID = "" }, false},
		{"empty embedding", func(item *memory.Item) { item.Embedding = nil }, false},
		{"importance above one", func(item *memory.Item) { item.Importance = 1.01 }, false},
		{"negative importance", func(item *memory.Item) { item.Importance = -0.01 }, false},
		{"provenance above one", func(item *memory.Item) { item.ProvenanceScore = 1.5 }, false},
		{"boundary values", func(item *memory.Item) {
			item.Importance = 0.0
			item.ProvenanceScore = 1.0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := memory.NewItem("doc-1", []float64{1, 0})
			tt.mutate(item)
			assert.Equal(t, tt.valid, item.Valid())
		})
	}
}
