// Package tier implements the per-tier item storage: a capacity-annotated,
// lock-protected list of memory items with a doc-id index and pluggable
// similarity search.
package tier

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// ErrItemExists indicates an insert with a doc ID already present in the
// tier.
var ErrItemExists = errors.New("tier: item already present")

// Store is one tier's storage.
//
// Reads (Search, Len, Get, Snapshot) take the shared lock; writes (Insert,
// Remove, Touch, Apply, EvictLowest, Clear) take the exclusive lock. The
// Store never holds another Store's lock, so cross-tier moves are two-phase:
// Remove from the source, then Insert into the destination.
//
// Capacity is advisory: the Store accepts inserts beyond it, and the caller
// (the cache facade) is responsible for evicting first.
type Store struct {
	tier     memory.Tier
	capacity int
	index    Index

	mu    sync.RWMutex
	items []memory.Item
	byID  map[string]int
}

// NewStore creates a store for the given tier with the given advisory
// capacity and search strategy.
func NewStore(t memory.Tier, capacity int, index Index) *Store {
	return &Store{
		tier:     t,
		capacity: capacity,
		index:    index,
		byID:     make(map[string]int),
	}
}

// Tier returns the tier this store holds.
func (s *Store) Tier() memory.Tier {
	return s.tier
}

// Capacity returns the advisory capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Contains reports whether an item with the given doc ID is stored.
func (s *Store) Contains(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[docID]
	return ok
}

// Get returns a copy of the item with the given doc ID.
func (s *Store) Get(docID string) (memory.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.byID[docID]
	if !ok {
		return memory.Item{}, false
	}
	return s.items[pos], true
}

// Insert appends the item and indexes its doc ID. The item's Tier field is
// stamped with this store's tier.
//
// Returns ErrItemExists if the doc ID is already present in this tier.
func (s *Store) Insert(item memory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[item.SourceDocID]; ok {
		return fmt.Errorf("%w: %s in %s", ErrItemExists, item.SourceDocID, s.tier)
	}

	item.Tier = s.tier
	s.items = append(s.items, item)
	s.byID[item.SourceDocID] = len(s.items) - 1
	return nil
}

// Remove deletes the item with the given doc ID and returns it.
//
// The removal swaps the last item into the vacated slot and fixes up its
// index entry, so only the moved entry is rewritten.
func (s *Store) Remove(docID string) (memory.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(docID)
}

func (s *Store) removeLocked(docID string) (memory.Item, bool) {
	pos, ok := s.byID[docID]
	if !ok {
		return memory.Item{}, false
	}

	removed := s.items[pos]
	last := len(s.items) - 1
	if pos != last {
		s.items[pos] = s.items[last]
		s.byID[s.items[pos].SourceDocID] = pos
	}
	s.items = s.items[:last]
	delete(s.byID, docID)
	return removed, true
}

// Search ranks all stored items against the query and returns up to k hits,
// descending by score. Hits carry copies of the stored items.
func (s *Store) Search(query []float64, k int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(s.items, query, k)
}

// Touch records a retrieval hit for each of the given doc IDs: increments
// AccessCount and sets LastAccess to now. Unknown IDs are ignored.
//
// Touch takes the exclusive lock; callers invoke it after releasing the
// shared lock used for the search, never while holding it.
func (s *Store) Touch(now time.Time, docIDs ...string) {
	if len(docIDs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range docIDs {
		if pos, ok := s.byID[id]; ok {
			s.items[pos].AccessCount++
			s.items[pos].LastAccess = now
		}
	}
}

// Snapshot returns copies of all stored items.
func (s *Store) Snapshot() []memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Apply runs fn on every stored item under the exclusive lock. Used for
// in-place mutation such as decay.
func (s *Store) Apply(fn func(item *memory.Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		fn(&s.items[i])
	}
}

// EvictLowest removes and returns the item with the lowest score under the
// given scoring function. Returns false if the store is empty.
func (s *Store) EvictLowest(score func(item *memory.Item) float64) (memory.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return memory.Item{}, false
	}

	lowest := 0
	lowestScore := score(&s.items[0])
	for i := 1; i < len(s.items); i++ {
		if sc := score(&s.items[i]); sc < lowestScore {
			lowestScore = sc
			lowest = i
		}
	}

	return s.removeLocked(s.items[lowest].SourceDocID)
}

// Clear removes all items.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = s.items[:0]
	s.byID = make(map[string]int)
}
