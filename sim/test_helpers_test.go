package sim

import (
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/internal/testutil"
)

func toPoints(series []ConcentrationPoint) []testutil.Point {
	out := make([]testutil.Point, len(series))
	for i, p := range series {
		out[i] = testutil.Point{Time: p.Time, Cp: p.Cp, Ce: p.Ce}
	}
	return out
}

func addSeries(a, b []ConcentrationPoint) []ConcentrationPoint {
	out := make([]ConcentrationPoint, len(a))
	for i := range a {
		out[i] = ConcentrationPoint{Time: a[i].Time, Cp: a[i].Cp + b[i].Cp, Ce: a[i].Ce + b[i].Ce}
	}
	return out
}

// newTestSolver is a 70 kg reference-weight solver for a catalog model.
func newTestSolver(drug catalog.Drug, model catalog.Model, duration float64) *Solver {
	params := catalog.GetPKParameters(drug, model, catalog.ReferenceWeight)
	return NewSolver(params, catalog.ScaleFactor(drug), NewSimConfig(duration, 1))
}

func events(evs ...dosing.Event) []dosing.Event { return evs }
