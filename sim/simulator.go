// sim/simulator.go
package sim

import (
	"iter"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
)

// ConcentrationPoint is one sample of the output series. Time is minutes
// from the simulation origin; Cp and Ce are in ng/mL.
type ConcentrationPoint struct {
	Time float64 `json:"time"`
	Cp   float64 `json:"cp"`
	Ce   float64 `json:"ce"`
}

// Solver evaluates plasma and effect-site concentrations for a dose
// schedule. Each event's response is propagated on its own from its onset
// and the responses are summed at every output time, which is exact for
// this linear time-invariant model.
//
// A Solver holds no mutable state; Series can be ranged over any number of
// times, concurrently or not.
type Solver struct {
	Params catalog.PKParameters
	// Scale multiplies every dose amount and rate before it enters the
	// central compartment (see catalog.ScaleFactor).
	Scale float64
	// Step is the output resolution in minutes.
	Step float64
	// Duration is the last output time in minutes.
	Duration float64
}

// NewSolver builds a Solver, replacing unusable settings with defaults:
// a non-positive step becomes DefaultStep, a negative duration 0 and a
// non-positive scale 1.
func NewSolver(params catalog.PKParameters, scale float64, cfg SimConfig) *Solver {
	cfg = cfg.normalized()
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	return &Solver{Params: params, Scale: scale, Step: cfg.Step, Duration: cfg.Duration}
}

// NumPoints is the length of the series: samples at 0, Step, ... up to
// Duration rounded down to a whole step.
func (s *Solver) NumPoints() int {
	if !(s.Step > 0) || !(s.Duration >= 0) {
		return 1
	}
	// tolerate Duration/Step landing a hair under an integer
	return int(math.Floor(s.Duration/s.Step+1e-9)) + 1
}

// Series lazily yields the concentration series. Stopping the iteration
// early stops the computation.
func (s *Solver) Series(events []dosing.Event) iter.Seq[ConcentrationPoint] {
	return func(yield func(ConcentrationPoint) bool) {
		st := newStepper(s.Params)
		responses := make([]response, 0, len(events))
		for _, ev := range events {
			if ev == nil {
				continue
			}
			responses = append(responses, response{ev: dosing.Normalize(ev)})
		}

		n := s.NumPoints()
		for k := 0; k < n; k++ {
			t := float64(k) * s.Step
			var x [numStates]float64
			for i := range responses {
				c := responses[i].advanceTo(st, t, s.Scale)
				for j := range x {
					x[j] += c[j]
				}
			}
			if !yield(s.point(t, x)) {
				return
			}
		}
	}
}

// Simulate materializes Series.
func (s *Solver) Simulate(events []dosing.Event) []ConcentrationPoint {
	out := slices.Collect(s.Series(events))
	logrus.Debugf("sim: %d events -> %d points (step %v min)", len(events), len(out), s.Step)
	return out
}

func (s *Solver) point(t float64, x [numStates]float64) ConcentrationPoint {
	return ConcentrationPoint{
		Time: t,
		Cp:   nonNegative(guardedDiv(x[central], s.Params.V1)),
		Ce:   nonNegative(x[effect]),
	}
}

// nonNegative clips round-off below zero (and NaN) to 0.
func nonNegative(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}

// response is the state of a single event's contribution.
type response struct {
	ev      dosing.Event
	started bool
	t       float64
	x       [numStates]float64
}

// advanceTo moves the response forward to time t (never backwards) and
// returns its state there. Before onset the contribution is zero.
func (r *response) advanceTo(st *stepper, t, scale float64) [numStates]float64 {
	switch ev := r.ev.(type) {
	case dosing.Bolus:
		if !r.started {
			if t < ev.Time {
				return [numStates]float64{}
			}
			r.started = true
			r.t = ev.Time
			r.x[central] = ev.Amount * scale
		}
		r.x = st.advance(r.x, t-r.t, 0)
		r.t = t

	case dosing.Infusion:
		if !r.started {
			if t < ev.StartTime {
				return [numStates]float64{}
			}
			r.started = true
			r.t = ev.StartTime
		}
		u := ev.RatePerMinute() * scale
		end := ev.End()
		if r.t < end && end < t {
			r.x = st.advance(r.x, end-r.t, u)
			r.t = end
		}
		if r.t >= end {
			u = 0
		}
		r.x = st.advance(r.x, t-r.t, u)
		r.t = t

	default:
		logrus.Warnf("sim: ignoring unsupported dose event %T", r.ev)
	}
	return r.x
}
