// Package tracker projects the wall clock onto a simulated concentration
// series so a caller can show the "current" Cp and Ce.
package tracker

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/clock"
)

// CurrentSimMinutes is the signed whole number of minutes from start
// (HH:MM on now's calendar day, in now's location) to now, floored.
// A malformed start yields 0.
func CurrentSimMinutes(now time.Time, start string) int {
	s, ok := clock.Parse(start)
	if !ok {
		return 0
	}
	y, mo, d := now.Date()
	origin := time.Date(y, mo, d, s/60, s%60, 0, 0, now.Location())
	return int(math.Floor(now.Sub(origin).Minutes()))
}

// Lookup returns the first point whose time is at or after minutes. Nothing
// is returned outside [0, duration] or when no such point exists.
func Lookup(series []sim.ConcentrationPoint, minutes int, duration float64) (sim.ConcentrationPoint, bool) {
	m := float64(minutes)
	if m < 0 || m > duration {
		return sim.ConcentrationPoint{}, false
	}
	i := sort.Search(len(series), func(i int) bool { return series[i].Time >= m })
	if i == len(series) {
		return sim.ConcentrationPoint{}, false
	}
	return series[i], true
}

// Reading is the tracker's view of one tick.
type Reading struct {
	Now        time.Time              `json:"now"`
	Clock      string                 `json:"clock"`
	Start      string                 `json:"start_time"`
	SimMinutes int                    `json:"sim_minutes"`
	Point      sim.ConcentrationPoint `json:"point"`
	Active     bool                   `json:"active"`
}

// Tracker keeps the latest series and the reading derived from the last
// tick. It is safe for concurrent use: ticks arrive on the scheduler's
// goroutine while the series is replaced from the caller's.
type Tracker struct {
	mu       sync.Mutex
	start    string
	series   []sim.ConcentrationPoint
	duration float64
	last     Reading

	// OnTick, if set, is called with each new reading outside the lock.
	OnTick func(Reading)
}

// New returns a tracker for a simulation that starts at the wall-clock
// time start ("HH:MM").
func New(start string) *Tracker {
	return &Tracker{start: start}
}

// SetSeries replaces the series wholesale, typically from a recompute hook.
func (t *Tracker) SetSeries(series []sim.ConcentrationPoint, duration float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.series = series
	t.duration = duration
}

// SetResult is SetSeries for a full simulation result.
func (t *Tracker) SetResult(r sim.Result) {
	t.SetSeries(r.Series, r.Config.Duration)
}

// SetStart moves the simulation origin.
func (t *Tracker) SetStart(start string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = start
}

// Tick recomputes the reading for now.
func (t *Tracker) Tick(now time.Time) Reading {
	t.mu.Lock()
	r := Reading{
		Now:        now,
		Clock:      clock.FromTime(now),
		Start:      t.start,
		SimMinutes: CurrentSimMinutes(now, t.start),
	}
	r.Point, r.Active = Lookup(t.series, r.SimMinutes, t.duration)
	t.last = r
	hook := t.OnTick
	t.mu.Unlock()

	logrus.Debugf("tracker: %s sim minute %d active=%v Cp=%.3f Ce=%.3f",
		r.Clock, r.SimMinutes, r.Active, r.Point.Cp, r.Point.Ce)
	if hook != nil {
		hook(r)
	}
	return r
}

// Last returns the reading from the most recent tick.
func (t *Tracker) Last() Reading {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
