// Package embedder defines the text embedding provider interface.
//
// The cache itself never computes embeddings; ingestion pipelines use a
// Provider to turn text into the fixed-dimension vectors that memory
// items are addressed by.
package embedder

import "context"

// Provider converts text into embedding vectors.
//
// All implementations (OpenAI, the deterministic mock, etc.) must satisfy
// this interface. Vectors from one provider must all share the same
// dimension, reported by Dimensions.
type Provider interface {
	// Embed converts a single text into an embedding vector.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - text: The input text to embed
	//
	// Returns the embedding vector and any error.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts into embedding vectors in one
	// round trip. Output order matches input order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - texts: Slice of input texts to embed
	//
	// Returns one embedding per input text and any error.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of vectors this provider produces.
	Dimensions() int

	// Close releases provider resources.
	Close() error
}
