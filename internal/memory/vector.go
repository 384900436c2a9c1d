package memory

import "math"

// CosineDistance returns 1 - cos(a, b). Mismatched lengths or a zero vector
// give the maximum distance of 2.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return clampDistance(float32(1 - sim))
}

// DistanceFromSimilarity converts a cosine similarity to a distance in [0, 2].
func DistanceFromSimilarity(sim float32) float32 {
	return clampDistance(1 - sim)
}

func clampDistance(d float32) float32 {
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	default:
		return d
	}
}
