// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"math"
	"testing"

	"github.com/bureau-foundation/facegate/lib/testutil"
)

func TestValidate(t *testing.T) {
	withValue := func(value float64) []float64 {
		v := testutil.Descriptor(1)
		v[64] = value
		return v
	}

	for _, test := range []struct {
		name  string
		input []float64
		want  bool
	}{
		{"valid", testutil.Descriptor(1), true},
		{"all zero", testutil.Zero(), true},
		{"nil", nil, false},
		{"empty", []float64{}, false},
		{"127 elements", testutil.Descriptor(1)[:127], false},
		{"129 elements", append(testutil.Descriptor(1), 0), false},
		{"NaN", withValue(math.NaN()), false},
		{"+Inf", withValue(math.Inf(1)), false},
		{"-Inf", withValue(math.Inf(-1)), false},
		{"huge but finite", withValue(math.MaxFloat64), true},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := Validate(test.input); got != test.want {
				t.Errorf("Validate = %v, want %v", got, test.want)
			}
		})
	}
}

func TestDistanceProperties(t *testing.T) {
	alice := testutil.Descriptor(1)
	bob := testutil.Descriptor(2)

	if d := Distance(alice, alice); d != 0 {
		t.Errorf("Distance(a, a) = %v, want 0", d)
	}
	if Distance(alice, bob) != Distance(bob, alice) {
		t.Error("Distance is not symmetric")
	}
	if Distance(alice, bob) <= 0 {
		t.Error("distinct descriptors at distance 0")
	}
	for i := 0; i < 5; i++ {
		if Distance(alice, bob) != Distance(alice, bob) {
			t.Fatal("Distance is not deterministic")
		}
	}
}

func TestDistanceInvalidInputIsInfinite(t *testing.T) {
	valid := testutil.Descriptor(1)
	invalid := testutil.Descriptor(1)
	invalid[0] = math.NaN()

	for _, pair := range [][2][]float64{
		{valid, invalid},
		{invalid, valid},
		{valid, valid[:10]},
		{nil, valid},
	} {
		if d := Distance(pair[0], pair[1]); !math.IsInf(d, 1) {
			t.Errorf("Distance = %v, want +Inf", d)
		}
	}
}

func TestThresholdBoundary(t *testing.T) {
	stored := testutil.Zero()

	for _, test := range []struct {
		name    string
		delta   float64
		matches bool
	}{
		{"identical", 0, true},
		{"just inside", 0.44, true},
		{"exactly threshold", Threshold, true},
		{"just outside", math.Nextafter(Threshold, 1), false},
		{"far", 0.46, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			distance := Distance(stored, testutil.Shifted(stored, 5, test.delta))
			if distance != test.delta {
				t.Fatalf("distance = %v, want %v", distance, test.delta)
			}
			if got := Matches(distance); got != test.matches {
				t.Errorf("Matches(%v) = %v, want %v", distance, got, test.matches)
			}
		})
	}
}

func TestMatchesRejectsNonFinite(t *testing.T) {
	if Matches(math.NaN()) || Matches(math.Inf(1)) {
		t.Error("non-finite distance matched")
	}
}

func TestConfidence(t *testing.T) {
	for _, test := range []struct {
		name      string
		distance  float64
		threshold float64
		want      float64
	}{
		{"identical", 0, Threshold, 1},
		{"half", 0.225, Threshold, 0.5},
		{"at threshold", Threshold, Threshold, 0},
		{"beyond threshold clamps", 0.9, Threshold, 0},
		{"negative distance clamps", -1, Threshold, 1},
		{"NaN distance", math.NaN(), Threshold, 0},
		{"Inf distance", math.Inf(1), Threshold, 0},
		{"zero threshold", 0.1, 0, 0},
		{"negative threshold", 0.1, -0.45, 0},
		{"Inf threshold", 0.1, math.Inf(1), 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := Confidence(test.distance, test.threshold)
			if math.Abs(got-test.want) > 1e-12 {
				t.Errorf("Confidence(%v, %v) = %v, want %v", test.distance, test.threshold, got, test.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Confidence out of range: %v", got)
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	original := testutil.Descriptor(3)
	copied := Clone(original)
	copied[0] = 42
	if original[0] == 42 {
		t.Error("Clone aliases its input")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) != nil")
	}
}
