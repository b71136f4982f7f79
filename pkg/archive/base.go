// Package archive defines the durable-storage interface for cold-tier
// snapshots and common helpers shared by the SQL backends.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// Archiver persists and restores cold-tier items.
//
// The cache never requires an archiver; it is an optional collaborator
// wired in at construction time. Implementations must be safe for use
// from a single goroutine at a time (the cache serializes archive calls).
type Archiver interface {
	// Save persists the given items, replacing any previous snapshot for
	// the same doc IDs.
	Save(ctx context.Context, items []memory.Item) error

	// Load returns all persisted items.
	Load(ctx context.Context) ([]memory.Item, error)

	// Close releases the underlying storage handle.
	Close() error
}

// Record is the flat row shape shared by the SQL backends. Vector fields
// are JSON-encoded, matching how the backends store embeddings.
type Record struct {
	DocID      string
	Content    string
	Embedding  string
	State      string
	Action     int
	Reward     float64
	Importance float64
	Provenance float64
	Accesses   int64
	CreatedAt  int64
	LastAccess int64
	Metadata   string
}

// EncodeItem flattens an item into a Record.
func EncodeItem(item *memory.Item) (Record, error) {
	embedding, err := json.Marshal(item.Embedding)
	if err != nil {
		return Record{}, fmt.Errorf("archive: encode embedding: %w", err)
	}

	state := "[]"
	if len(item.State) > 0 {
		raw, err := json.Marshal(item.State)
		if err != nil {
			return Record{}, fmt.Errorf("archive: encode state: %w", err)
		}
		state = string(raw)
	}

	metadata := "{}"
	if len(item.Metadata) > 0 {
		raw, err := json.Marshal(item.Metadata)
		if err != nil {
			return Record{}, fmt.Errorf("archive: encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	return Record{
		DocID:      item.SourceDocID,
		Content:    item.Content,
		Embedding:  string(embedding),
		State:      state,
		Action:     item.Action,
		Reward:     item.Reward,
		Importance: item.Importance,
		Provenance: item.ProvenanceScore,
		Accesses:   item.AccessCount,
		CreatedAt:  item.CreatedAt.UnixNano(),
		LastAccess: item.LastAccess.UnixNano(),
		Metadata:   metadata,
	}, nil
}

// DecodeRecord rebuilds an item from a Record. The restored item is
// stamped cold; signatures are recomputed by the cache on restore.
func DecodeRecord(rec *Record) (memory.Item, error) {
	item := memory.Item{
		SourceDocID:     rec.DocID,
		Content:         rec.Content,
		Action:          rec.Action,
		Reward:          rec.Reward,
		Importance:      rec.Importance,
		ProvenanceScore: rec.Provenance,
		AccessCount:     rec.Accesses,
		CreatedAt:       nanoTime(rec.CreatedAt),
		LastAccess:      nanoTime(rec.LastAccess),
		Tier:            memory.TierCold,
	}

	if err := json.Unmarshal([]byte(rec.Embedding), &item.Embedding); err != nil {
		return memory.Item{}, fmt.Errorf("archive: decode embedding for %s: %w", rec.DocID, err)
	}
	if rec.State != "" && rec.State != "[]" {
		if err := json.Unmarshal([]byte(rec.State), &item.State); err != nil {
			return memory.Item{}, fmt.Errorf("archive: decode state for %s: %w", rec.DocID, err)
		}
	}
	if rec.Metadata != "" && rec.Metadata != "{}" {
		if err := json.Unmarshal([]byte(rec.Metadata), &item.Metadata); err != nil {
			return memory.Item{}, fmt.Errorf("archive: decode metadata for %s: %w", rec.DocID, err)
		}
	}

	return item, nil
}

func nanoTime(ns int64) time.Time {
	return time.Unix(0, ns)
}
