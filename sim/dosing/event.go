// Package dosing defines bolus and infusion dose events and the editable
// schedule that holds them.
package dosing

import "math"

// Kind tags a dose event for display and serialization.
type Kind string

const (
	KindBolus    Kind = "bolus"
	KindInfusion Kind = "infusion"
)

// Event is a dose administered into the central compartment. The set of
// implementations is closed: Bolus and Infusion.
type Event interface {
	// Onset is the first minute the event contributes drug.
	Onset() float64
	Kind() Kind
	isEvent()
}

// Bolus is an instantaneous dose of Amount (drug display unit) at Time
// minutes from the simulation origin.
type Bolus struct {
	Time   float64 `json:"time" yaml:"time"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// NewBolus clamps negative or non-finite inputs to zero.
func NewBolus(time, amount float64) Bolus {
	return Bolus{Time: nonNegative(time), Amount: nonNegative(amount)}
}

func (b Bolus) Onset() float64 { return b.Time }
func (b Bolus) Kind() Kind     { return KindBolus }
func (Bolus) isEvent()         {}

// Infusion delivers Rate (drug display unit per hour) on
// [StartTime, StartTime+Duration), times in minutes.
type Infusion struct {
	StartTime float64 `json:"startTime" yaml:"start_time"`
	Rate      float64 `json:"rate" yaml:"rate"`
	Duration  float64 `json:"duration" yaml:"duration"`
}

// NewInfusion clamps negative or non-finite inputs to zero.
func NewInfusion(startTime, rate, duration float64) Infusion {
	return Infusion{
		StartTime: nonNegative(startTime),
		Rate:      nonNegative(rate),
		Duration:  nonNegative(duration),
	}
}

func (i Infusion) Onset() float64 { return i.StartTime }
func (i Infusion) Kind() Kind     { return KindInfusion }
func (Infusion) isEvent()         {}

// End is the minute the infusion stops.
func (i Infusion) End() float64 { return i.StartTime + i.Duration }

// RatePerMinute converts the hourly rate.
func (i Infusion) RatePerMinute() float64 { return i.Rate / 60 }

// Total is the whole amount delivered by the infusion.
func (i Infusion) Total() float64 { return i.RatePerMinute() * i.Duration }

// Normalize re-applies the non-negativity bounds to an event built as a
// struct literal. Unknown implementations are returned unchanged.
func Normalize(ev Event) Event {
	switch e := ev.(type) {
	case Bolus:
		return NewBolus(e.Time, e.Amount)
	case Infusion:
		return NewInfusion(e.StartTime, e.Rate, e.Duration)
	}
	return ev
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
