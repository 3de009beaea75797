// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import "math"

const (
	// Length is the dimension of every valid descriptor.
	Length = 128

	// Threshold is the largest distance that still counts as the same
	// face. It is a compile-time constant: no request, flag, or config
	// value can loosen it.
	Threshold = 0.45
)

// Validate reports whether v has exactly Length elements, all finite.
func Validate(v []float64) bool {
	if len(v) != Length {
		return false
	}
	for _, value := range v {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return true
}

// Distance returns the Euclidean distance between a and b, or +Inf if
// either fails Validate. The result is symmetric and zero only for
// identical inputs.
func Distance(a, b []float64) float64 {
	if !Validate(a) || !Validate(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		difference := a[i] - b[i]
		sum += difference * difference
	}
	return math.Sqrt(sum)
}

// Matches reports whether distance is within Threshold. A non-finite
// distance never matches.
func Matches(distance float64) bool {
	return !math.IsNaN(distance) && distance <= Threshold
}

// Confidence returns 1 - distance/threshold clamped to [0, 1]. It is
// 0 when either argument is non-finite or threshold is not positive.
func Confidence(distance, threshold float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) ||
		math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return 0
	}
	return min(1, max(0, 1-distance/threshold))
}

// Clone returns a copy of v, or nil for nil.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append(make([]float64, 0, len(v)), v...)
}
