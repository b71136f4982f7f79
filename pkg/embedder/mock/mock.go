// Package mock provides a deterministic embedding provider for tests and
// examples that must run without network access.
package mock

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Provider generates deterministic pseudo-random embeddings from text.
// The same text always produces the same vector, and distinct texts
// almost always produce dissimilar vectors.
type Provider struct {
	dimensions int
}

// NewProvider creates a mock provider with the given vector dimension.
func NewProvider(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &Provider{dimensions: dimensions}
}

// Embed derives a unit-norm vector from the text's hash.
func (p *Provider) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, p.dimensions)
	norm := 0.0
	for i := range vec {
		h := xxhash.Sum64String(fmt.Sprintf("%s#%d", text, i))
		// Map the hash onto [-1, 1).
		vec[i] = float64(int64(h)) / math.MaxInt64
		norm += vec[i] * vec[i]
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the configured vector dimension.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
