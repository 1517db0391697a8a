package simulation

import (
	"github.com/salesops/revenue-forecast/pkg/constants"
)

// Histogram buckets a sorted outcome array for display. The sum of Counts
// always equals the input length.
type Histogram struct {
	Min    float64
	Max    float64
	Width  float64
	Counts []int
}

// BuildHistogram assigns each value of a sorted ascending slice to a bucket
// in a single pass. Bucket counts below 1 fall back to the default; a
// zero-range input gets a width of 1 so every value lands in bucket 0.
func BuildHistogram(sorted []float64, buckets int) Histogram {
	if buckets < 1 {
		buckets = constants.DefaultHistogramBuckets
	}

	h := Histogram{Counts: make([]int, buckets)}
	if len(sorted) == 0 {
		return h
	}

	h.Min = sorted[0]
	h.Max = sorted[len(sorted)-1]

	width := (h.Max - h.Min) / float64(buckets)
	if width <= 0 {
		width = 1
	}
	h.Width = width

	for _, v := range sorted {
		idx := int((v - h.Min) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		h.Counts[idx]++
	}
	return h
}
