package embed

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine of the angle between a and b.
// Mismatched dimensions are a contract violation and fail hard; the
// similarity of a zero vector is undefined and comes back as NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return math.NaN(), nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
