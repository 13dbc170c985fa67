package domain

import "math"

// DefaultSearchLimit is the number of hits returned when a query sets none.
const DefaultSearchLimit = 10

// CosineSimilarity returns the cosine of the angle between a and b over
// their common length. Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
