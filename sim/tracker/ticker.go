package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// DefaultPeriod is how often the wall clock is sampled.
const DefaultPeriod = time.Minute

// Ticker drives a Tracker from a gocron scheduler.
type Ticker struct {
	tracker *Tracker
	period  time.Duration
	now     func() time.Time

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// NewTicker ticks t every period. A non-positive period uses DefaultPeriod.
func NewTicker(t *Tracker, period time.Duration) *Ticker {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Ticker{tracker: t, period: period, now: time.Now}
}

// Start ticks once immediately and then every period. Starting a running
// ticker is a no-op. The first tick runs after the ticker is marked
// running, so an OnTick hook may call Running or Stop.
func (k *Ticker) Start() error {
	k.mu.Lock()
	if k.scheduler != nil {
		k.mu.Unlock()
		return nil
	}

	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	_, err := s.Every(k.period).WaitForSchedule().Do(func() {
		k.tracker.Tick(k.now())
	})
	if err != nil {
		k.mu.Unlock()
		return fmt.Errorf("failed to schedule tracker tick: %w", err)
	}
	s.StartAsync()
	k.scheduler = s
	k.mu.Unlock()

	logrus.Infof("tracker: ticking every %s", k.period)
	k.tracker.Tick(k.now())
	return nil
}

// Stop cancels the recurring tick. It is safe to call more than once.
func (k *Ticker) Stop() {
	k.mu.Lock()
	s := k.scheduler
	k.scheduler = nil
	k.mu.Unlock()
	if s == nil {
		return
	}
	s.Stop()
	logrus.Infof("tracker: stopped")
}

// Running reports whether the recurring tick is scheduled.
func (k *Ticker) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.scheduler != nil
}
