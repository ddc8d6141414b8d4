// sim/compartment.go
package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
)

// State vector layout: amounts in the three compartments, then the
// effect-site concentration.
const (
	central = iota
	peripheral2
	peripheral3
	effect
	numStates
)

// RateConstants are the first-order micro rate constants (1/min) of the
// three-compartment mammillary model.
type RateConstants struct {
	K10 float64 `json:"k10"`
	K12 float64 `json:"k12"`
	K21 float64 `json:"k21"`
	K13 float64 `json:"k13"`
	K31 float64 `json:"k31"`
}

// NewRateConstants derives micro rate constants from volumes and
// clearances. A zero volume yields a zero rate instead of Inf/NaN.
func NewRateConstants(p catalog.PKParameters) RateConstants {
	return RateConstants{
		K10: guardedDiv(p.Cl, p.V1),
		K12: guardedDiv(p.Q2, p.V1),
		K21: guardedDiv(p.Q2, p.V2),
		K13: guardedDiv(p.Q3, p.V1),
		K31: guardedDiv(p.Q3, p.V3),
	}
}

func guardedDiv(num, den float64) float64 {
	if den <= 0 || math.IsNaN(den) || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0
	}
	return num / den
}

// systemMatrix builds M in dx/dt = M x + b u, with x = [A1 A2 A3 Ce].
// The effect site reads A1/V1 but returns nothing to the central compartment.
func systemMatrix(p catalog.PKParameters) *mat.Dense {
	k := NewRateConstants(p)
	keV := guardedDiv(p.Ke0, p.V1)
	ke0 := p.Ke0
	if math.IsNaN(ke0) || ke0 < 0 {
		ke0 = 0
	}
	return mat.NewDense(numStates, numStates, []float64{
		-(k.K10 + k.K12 + k.K13), k.K21, k.K31, 0,
		k.K12, -k.K21, 0, 0,
		k.K13, 0, -k.K31, 0,
		keV, 0, 0, -ke0,
	})
}

// propagator advances the state exactly over a fixed interval h under a
// constant input rate u into the central compartment:
//
//	x(t+h) = Phi x(t) + Gamma u
type propagator struct {
	phi   [numStates][numStates]float64
	gamma [numStates]float64
}

// newPropagator computes Phi = exp(M h) and Gamma = ∫0..h exp(M s) b ds as
// blocks of exp([[M h, b h], [0, 0]]). This avoids inverting M, which is
// singular when a rate constant is zero.
func newPropagator(m *mat.Dense, h float64) propagator {
	const n = numStates + 1
	aug := mat.NewDense(n, n, nil)
	for i := 0; i < numStates; i++ {
		for j := 0; j < numStates; j++ {
			aug.Set(i, j, m.At(i, j)*h)
		}
	}
	aug.Set(central, numStates, h)

	var e mat.Dense
	e.Exp(aug)

	var p propagator
	for i := 0; i < numStates; i++ {
		for j := 0; j < numStates; j++ {
			p.phi[i][j] = e.At(i, j)
		}
		p.gamma[i] = e.At(i, numStates)
	}
	return p
}

func (p *propagator) apply(x [numStates]float64, u float64) [numStates]float64 {
	var out [numStates]float64
	for i := 0; i < numStates; i++ {
		v := p.gamma[i] * u
		for j := 0; j < numStates; j++ {
			v += p.phi[i][j] * x[j]
		}
		out[i] = v
	}
	return out
}

// intervalResolution quantizes interval lengths so that intervals equal up
// to float round-off share one cached propagator.
const intervalResolution = 1e6

// stepper caches propagators by interval length for one series evaluation.
type stepper struct {
	m     *mat.Dense
	cache map[int64]*propagator
}

func newStepper(p catalog.PKParameters) *stepper {
	return &stepper{m: systemMatrix(p), cache: make(map[int64]*propagator)}
}

// advance returns the state h minutes later under input rate u.
func (s *stepper) advance(x [numStates]float64, h, u float64) [numStates]float64 {
	if !(h > 0) {
		return x
	}
	key := int64(math.Round(h * intervalResolution))
	if key == 0 {
		// below the cache resolution: propagate exactly, uncached
		p := newPropagator(s.m, h)
		return p.apply(x, u)
	}
	p, ok := s.cache[key]
	if !ok {
		np := newPropagator(s.m, float64(key)/intervalResolution)
		p = &np
		s.cache[key] = p
	}
	return p.apply(x, u)
}
