package store

import "math"

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical direction) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// DotProduct computes the inner product of two vectors.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// EuclideanDistance computes the L2 distance between two vectors.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Score converts a raw metric value into the ranking score reported to
// callers, matching Qdrant's convention: cosine similarity for Cosine,
// the inner product for Dot and the (ascending) distance for Euclid.
func Score(metric Metric, query, candidate []float32) float64 {
	switch metric {
	case MetricCosine:
		return 1 - CosineDistance(query, candidate)
	case MetricDot:
		return DotProduct(query, candidate)
	default:
		return EuclideanDistance(query, candidate)
	}
}

// Better reports whether score a ranks ahead of score b under the metric.
func Better(metric Metric, a, b float64) bool {
	if metric == MetricEuclid {
		return a < b
	}
	return a > b
}
