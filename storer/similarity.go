package storer

import "math"

// Score returns a higher-is-better similarity for the given metric.
// Euclidean distances are mapped into (0, 1] so ordering stays descending.
func Score(distance Distance, a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	switch distance {
	case Dot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(dot)
	case Euclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(1 / (1 + math.Sqrt(sum)))
	default:
		return float32(CosineSimilarity(a, b))
	}
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
