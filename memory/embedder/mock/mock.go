// Package mock provides a deterministic embedder for tests and demos
// that do not want an ONNX runtime on the machine.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder generates deterministic embeddings from a text hash.
// Identical text always maps to the identical vector, so recall tests
// can assert exact matches without a real model.
type MockEmbedder struct {
	dimensions int
}

// New creates a mock embedder. Dimensions default to 384 to match
// all-MiniLM-L6-v2 so mock and ONNX stores are interchangeable.
func New() *MockEmbedder {
	return &MockEmbedder{dimensions: 384}
}

// Embed creates a deterministic embedding from text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	hash := h.Sum64()

	embedding := make([]float32, m.dimensions)

	// Use the hash as seed for an LCG so the vector is stable per text.
	seed := hash
	for i := 0; i < m.dimensions; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// normalize converts the embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
