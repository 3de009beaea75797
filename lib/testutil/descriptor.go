// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "math"

// DescriptorLength matches descriptor.Length. It is repeated here so
// that testutil stays free of facegate imports.
const DescriptorLength = 128

// Descriptor returns a deterministic embedding for seed. Different
// seeds land far apart (distance well above 0.45); the same seed always
// yields the same values.
func Descriptor(seed int) []float64 {
	values := make([]float64, DescriptorLength)
	for i := range values {
		values[i] = math.Sin(float64(seed*131+i*7)) * 0.5
	}
	return values
}

// Shifted returns a copy of base with element index moved by delta.
// When base[index] is zero the Euclidean distance to base is exactly
// |delta|, which lets boundary tests hit the threshold precisely.
func Shifted(base []float64, index int, delta float64) []float64 {
	shifted := append([]float64(nil), base...)
	shifted[index] += delta
	return shifted
}

// Zero returns an all-zero embedding of the standard length.
func Zero() []float64 {
	return make([]float64, DescriptorLength)
}
