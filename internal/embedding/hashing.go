package embedding

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"scout/internal/terms"
)

// HashingBackend buckets token counts by hash and L2-normalizes them. It
// needs no model and never fails.
type HashingBackend struct {
	dim int
}

// NewHashingBackend creates a hashing backend producing dim-wide vectors.
func NewHashingBackend(dim int) *HashingBackend {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashingBackend{dim: dim}
}

func (b *HashingBackend) Name() string { return ModeHash }

func (b *HashingBackend) Load(context.Context) error { return nil }

// Embed returns the normalized bucket counts. Text without tokens maps to
// the zero vector.
func (b *HashingBackend) Embed(_ context.Context, text string) ([]float32, error) {
	counts := make([]float64, b.dim)
	for _, tok := range terms.Tokenize(text) {
		counts[xxhash.Sum64String(tok)%uint64(b.dim)]++
	}

	var sq float64
	for _, c := range counts {
		sq += c * c
	}
	vec := make([]float32, b.dim)
	if sq == 0 {
		return vec, nil
	}
	norm := math.Sqrt(sq)
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec, nil
}
