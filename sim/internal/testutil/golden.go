// Package testutil provides shared assertion helpers for concentration
// series used across the sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// Point mirrors the fields of sim.ConcentrationPoint so this package does
// not import sim (which would cycle with sim's own tests).
type Point struct {
	Time, Cp, Ce float64
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertNonNegative fails on any negative or NaN concentration.
func AssertNonNegative(t *testing.T, name string, series []Point) {
	t.Helper()
	for _, p := range series {
		if !(p.Cp >= 0) || !(p.Ce >= 0) || math.IsInf(p.Cp, 0) || math.IsInf(p.Ce, 0) {
			t.Errorf("%s: invalid concentration at t=%v: cp=%v ce=%v", name, p.Time, p.Cp, p.Ce)
			return
		}
	}
}

// AssertSeriesClose compares two series pointwise. Values below absTol are
// treated as equal so that decayed tails do not dominate the relative error.
func AssertSeriesClose(t *testing.T, name string, want, got []Point, relTol, absTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length mismatch: got %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if want[i].Time != got[i].Time {
			t.Fatalf("%s: time mismatch at %d: got %v, want %v", name, i, got[i].Time, want[i].Time)
		}
		for _, pair := range [][3]float64{{want[i].Cp, got[i].Cp, 0}, {want[i].Ce, got[i].Ce, 1}} {
			w, g := pair[0], pair[1]
			if math.Abs(w-g) <= absTol {
				continue
			}
			field := "cp"
			if pair[2] == 1 {
				field = "ce"
			}
			AssertFloat64Equal(t, name+" "+field, w, g, relTol)
		}
	}
}
