package dedup

import "sync"

// Registry is the process-wide set of admitted signatures.
//
// It is guarded by its own mutex, entirely independent of any tier lock, so
// admission checks never interleave with tier lock acquisition.
type Registry struct {
	// mu protects signatures.
	mu sync.Mutex

	// minhash computes and compares signatures.
	minhash *MinHash

	// threshold is the similarity at or above which content is a duplicate.
	threshold float64

	// signatures holds one entry per admitted item.
	signatures []Signature
}

// NewRegistry creates a registry using the given MinHash and duplicate
// threshold.
func NewRegistry(minhash *MinHash, threshold float64) *Registry {
	return &Registry{
		minhash:   minhash,
		threshold: threshold,
	}
}

// MinHash returns the underlying signature computer.
func (r *Registry) MinHash() *MinHash {
	return r.minhash
}

// Admit atomically checks sig against all recorded signatures and, if it is
// not a duplicate, records it. Returns false if sig duplicates existing
// content.
//
// Check and record happen under one lock acquisition, so two concurrent
// adds of near-identical content cannot both pass.
func (r *Registry) Admit(sig Signature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.minhash.IsDuplicate(sig, r.signatures, r.threshold) {
		return false
	}
	r.signatures = append(r.signatures, sig)
	return true
}

// Forget removes one recorded occurrence of sig, if present.
//
// Used when an admitted item fails to land in a tier, and when an item is
// purged from the cold tier so equivalent content may be re-admitted.
func (r *Registry) Forget(sig Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.signatures {
		if existing == sig {
			r.signatures[i] = r.signatures[len(r.signatures)-1]
			r.signatures = r.signatures[:len(r.signatures)-1]
			return
		}
	}
}

// Len returns the number of recorded signatures.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signatures)
}

// Clear drops all recorded signatures.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signatures = r.signatures[:0]
}
