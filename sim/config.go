package sim

import "math"

// Defaults for SimConfig.
const (
	DefaultStep     = 1.0   // minutes between output samples
	DefaultDuration = 240.0 // minutes simulated
	MaxDuration     = 7 * 24 * 60.0
	MinStep         = 0.01      // finest output resolution, minutes
	MaxPoints       = 1_000_000 // longest series a run may produce
)

// SimConfig groups the time-grid parameters of a simulation run.
type SimConfig struct {
	Duration float64 `json:"duration" yaml:"duration"` // last output time, minutes (≥ 0)
	Step     float64 `json:"step" yaml:"step"`         // output resolution, minutes (> 0)
}

// NewSimConfig returns a SimConfig. Zero values are kept as given; call
// sites that want defaults use DefaultSimConfig.
func NewSimConfig(duration, step float64) SimConfig {
	return SimConfig{Duration: duration, Step: step}
}

// DefaultSimConfig is a four hour run sampled every minute.
func DefaultSimConfig() SimConfig {
	return SimConfig{Duration: DefaultDuration, Step: DefaultStep}
}

// normalized clamps the grid into a usable range: Step defaults to
// DefaultStep and is at least MinStep, Duration is in [0, MaxDuration].
// Step is then widened if needed so the series has at most MaxPoints.
func (c SimConfig) normalized() SimConfig {
	if !(c.Step > 0) || math.IsInf(c.Step, 0) {
		c.Step = DefaultStep
	}
	if c.Step < MinStep {
		c.Step = MinStep
	}
	switch {
	case !(c.Duration > 0):
		c.Duration = 0
	case c.Duration > MaxDuration:
		c.Duration = MaxDuration
	}
	if c.Duration/c.Step >= MaxPoints {
		c.Step = c.Duration / (MaxPoints - 1)
	}
	return c
}
