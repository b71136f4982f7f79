package dedup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainkit/tieredmem-go/pkg/dedup"
)

func TestNewRejectsTooFewHashes(t *testing.T) {
	_, err := dedup.New(1)
	assert.ErrorIs(t, err, dedup.ErrTooFewHashes)

	_, err = dedup.New(0)
	assert.ErrorIs(t, err, dedup.ErrTooFewHashes)

	mh, err := dedup.New(2)
	require.NoError(t, err)
	assert.Equal(t, 2, mh.NumHashes())
}

func TestTextSignatureDeterministic(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)

	sig1 := mh.TextSignature("the quick brown fox jumps over the lazy dog")
	sig2 := mh.TextSignature("the quick brown fox jumps over the lazy dog")
	assert.Equal(t, sig1, sig2, "same input must yield the same signature")

	other, err := dedup.New(128)
	require.NoError(t, err)
	sig3 := other.TextSignature("the quick brown fox jumps over the lazy dog")
	assert.Equal(t, sig1, sig3, "signatures must be stable across instances")
}

func TestTextSignatureDistinguishesContent(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)

	sig1 := mh.TextSignature("aaaaaaaa")
	sig2 := mh.TextSignature("bbbbbbbb")
	assert.NotEqual(t, sig1, sig2)
	assert.Equal(t, 0.0, dedup.Jaccard(sig1, sig2))
}

func TestEmbeddingSignatureDeterministic(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)

	embedding := []float64{0.1, -0.4, 0.9, 0.3, -0.2, 0.7}
	sig1 := mh.EmbeddingSignature(embedding)
	sig2 := mh.EmbeddingSignature(embedding)
	assert.Equal(t, sig1, sig2)

	identical := mh.EmbeddingSignature([]float64{0.1, -0.4, 0.9, 0.3, -0.2, 0.7})
	assert.Equal(t, 1.0, dedup.Jaccard(sig1, identical))
}

func TestJaccardValues(t *testing.T) {
	a := dedup.Signature{1, 2}
	b := dedup.Signature{1, 2}
	c := dedup.Signature{1, 3}
	d := dedup.Signature{4, 5}

	assert.Equal(t, 1.0, dedup.Jaccard(a, b))
	assert.Equal(t, 0.5, dedup.Jaccard(a, c))
	assert.Equal(t, 0.0, dedup.Jaccard(a, d))
}

func TestIsDuplicate(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)

	existing := []dedup.Signature{{1, 2}, {3, 4}}

	assert.True(t, mh.IsDuplicate(dedup.Signature{1, 2}, existing, 0.95),
		"exact signature match must be a duplicate")
	assert.False(t, mh.IsDuplicate(dedup.Signature{1, 9}, existing, 0.95),
		"half-matching signature is below a 0.95 threshold")
	assert.True(t, mh.IsDuplicate(dedup.Signature{1, 9}, existing, 0.5),
		"half-matching signature reaches a 0.5 threshold")
	assert.False(t, mh.IsDuplicate(dedup.Signature{8, 9}, nil, 0.95))
}

func TestRegistryAdmit(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)
	reg := dedup.NewRegistry(mh, 0.95)

	sig := mh.TextSignature("user prefers concise answers")
	assert.True(t, reg.Admit(sig), "first admission must pass")
	assert.False(t, reg.Admit(sig), "second admission of the same content must be blocked")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryForget(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)
	reg := dedup.NewRegistry(mh, 0.95)

	sig := mh.TextSignature("session notes from tuesday standup")
	require.True(t, reg.Admit(sig))

	reg.Forget(sig)
	assert.Equal(t, 0, reg.Len())
	assert.True(t, reg.Admit(sig), "forgotten content must be re-admittable")
}

func TestRegistryClear(t *testing.T) {
	mh, err := dedup.New(128)
	require.NoError(t, err)
	reg := dedup.NewRegistry(mh, 0.95)

	require.True(t, reg.Admit(mh.TextSignature("first entry")))
	require.True(t, reg.Admit(mh.TextSignature("second entry")))
	require.Equal(t, 2, reg.Len())

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
}
