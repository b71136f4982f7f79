// Package dedup provides MinHash-based near-duplicate detection for memory
// admission control.
//
// Signatures are compact (two 64-bit slots) and deterministic: the same input
// always produces the same signature, and near-identical inputs usually agree
// on most slots. This is a cheap duplicate-detection proxy, not a full
// statistically rigorous MinHash.
package dedup

import (
	"errors"
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// SignatureSize is the number of 64-bit slots in a signature.
//
// With two slots the estimated Jaccard similarity is coarse-grained
// (0, 0.5, or 1), which is sufficient for admission-time duplicate
// blocking at high thresholds.
const SignatureSize = 2

// Signature is a compact MinHash fingerprint of a piece of content.
type Signature [SignatureSize]uint64

// ErrTooFewHashes indicates that a MinHash was configured with fewer hash
// functions than the signature requires.
var ErrTooFewHashes = errors.New("dedup: at least 2 hash functions required")

// MinHash computes MinHash signatures from text or embedding vectors.
//
// Hash seeds are derived from a fixed RNG seed, so signatures are stable
// across processes and runs.
//
// Example usage:
//
//	mh, _ := dedup.New(128)
//	sig := mh.TextSignature("the quick brown fox")
//	if mh.IsDuplicate(sig, existing, 0.95) {
//	    // block admission
//	}
type MinHash struct {
	// numHashes is the configured number of hash functions. Only the first
	// SignatureSize of them contribute to the signature.
	numHashes int

	// seeds holds one mixing seed per hash function.
	seeds []uint64
}

// New creates a MinHash with the given number of hash functions.
//
// Returns ErrTooFewHashes if numHashes < 2, since the signature needs at
// least SignatureSize independent hash functions.
func New(numHashes int) (*MinHash, error) {
	if numHashes < SignatureSize {
		return nil, ErrTooFewHashes
	}

	// Fixed seed keeps signatures reproducible across restarts.
	rng := rand.New(rand.NewSource(42))
	seeds := make([]uint64, numHashes)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	return &MinHash{
		numHashes: numHashes,
		seeds:     seeds,
	}, nil
}

// NumHashes returns the configured number of hash functions.
func (m *MinHash) NumHashes() int {
	return m.numHashes
}

// TextSignature computes the signature of a text string.
//
// The text is shingled into overlapping 3-grams; each shingle is hashed with
// xxhash, mixed per hash function, and the minimum value per function becomes
// a signature slot. Empty or too-short texts yield the zero-content signature
// (all slots at math.MaxUint64).
func (m *MinHash) TextSignature(text string) Signature {
	sig := emptySignature()
	if len(text) < 3 {
		return sig
	}

	for h := 0; h < SignatureSize; h++ {
		minHash := uint64(math.MaxUint64)
		for i := 0; i+3 <= len(text); i++ {
			hash := mix(xxhash.Sum64String(text[i:i+3]), m.seeds[h])
			if hash < minHash {
				minHash = hash
			}
		}
		sig[h] = minHash
	}

	return sig
}

// EmbeddingSignature computes the signature of an embedding vector.
//
// The vector is min-max quantized to 8-bit values; each (position, value)
// pair forms a feature that is hashed per hash function, and the minimum
// hash per function becomes a signature slot. An empty vector yields the
// zero-content signature.
func (m *MinHash) EmbeddingSignature(embedding []float64) Signature {
	sig := emptySignature()
	if len(embedding) == 0 {
		return sig
	}

	quantized := quantize(embedding)

	for h := 0; h < SignatureSize; h++ {
		minHash := uint64(math.MaxUint64)
		for i, q := range quantized {
			feature := uint64(i)*31 + uint64(q)
			hash := mix(feature, m.seeds[h])
			if hash < minHash {
				minHash = hash
			}
		}
		sig[h] = minHash
	}

	return sig
}

// Jaccard estimates the Jaccard similarity of two signatures as the fraction
// of slots that match exactly. For a 2-slot signature the result is 0, 0.5,
// or 1.
func Jaccard(a, b Signature) float64 {
	matches := 0
	for i := 0; i < SignatureSize; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(SignatureSize)
}

// IsDuplicate reports whether sig is a near-duplicate of any existing
// signature, i.e. whether any pairwise similarity reaches threshold.
//
// Cost is linear in len(existing); acceptable because it runs once per
// admission, not per query.
func (m *MinHash) IsDuplicate(sig Signature, existing []Signature, threshold float64) bool {
	for _, other := range existing {
		if Jaccard(sig, other) >= threshold {
			return true
		}
	}
	return false
}

// quantize maps a vector onto 8-bit values using min-max normalization.
func quantize(v []float64) []uint8 {
	minVal, maxVal := v[0], v[0]
	for _, x := range v[1:] {
		if x < minVal {
			minVal = x
		}
		if x > maxVal {
			maxVal = x
		}
	}

	rangeVal := maxVal - minVal
	if rangeVal < 1e-10 {
		rangeVal = 1.0
	}

	out := make([]uint8, len(v))
	for i, x := range v {
		normalized := (x - minVal) / rangeVal * 255.0
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 255 {
			normalized = 255
		}
		out[i] = uint8(normalized)
	}
	return out
}

// mix applies a seed and a 64-bit finalizer to spread hash bits.
func mix(hash, seed uint64) uint64 {
	hash ^= seed
	hash ^= hash >> 33
	hash *= 0xff51afd7ed558ccd
	hash ^= hash >> 33
	return hash
}

func emptySignature() Signature {
	var sig Signature
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	return sig
}
