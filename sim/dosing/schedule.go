package dosing

import (
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entry is the display/editing view of one scheduled event.
type Entry struct {
	ID        string  `json:"id"`
	Kind      Kind    `json:"kind"`
	Amount    float64 `json:"amount,omitempty"`
	Rate      float64 `json:"rate,omitempty"`
	Time      float64 `json:"time"`
	StartTime float64 `json:"startTime,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// NewEntry flattens ev into its display form.
func NewEntry(id string, ev Event) Entry {
	e := Entry{ID: id, Kind: ev.Kind(), Time: ev.Onset()}
	switch v := ev.(type) {
	case Bolus:
		e.Amount = v.Amount
	case Infusion:
		e.Rate = v.Rate
		e.StartTime = v.StartTime
		e.Duration = v.Duration
	}
	return e
}

type item struct {
	id string
	ev Event
}

type editSlot struct {
	item
	pos int // index the item occupied before it was taken out
}

// Schedule is an insertion-ordered set of dose events keyed by ID. At most
// one event is being edited at a time; while edited it is not part of
// Events().
//
// Schedule is not safe for concurrent use.
type Schedule struct {
	items   []item
	editing *editSlot
	newID   func() string
}

// NewSchedule returns an empty schedule that keys events with random UUIDs.
func NewSchedule() *Schedule {
	return &Schedule{newID: func() string { return uuid.NewString() }}
}

// Add appends ev and returns its ID, or "" for a nil event.
func (s *Schedule) Add(ev Event) string {
	if ev == nil {
		return ""
	}
	id := s.newID()
	s.items = append(s.items, item{id: id, ev: Normalize(ev)})
	logrus.Debugf("dosing: added %s %s at %v min", ev.Kind(), id, ev.Onset())
	return id
}

// Remove deletes the event with id. Removing the event being edited
// discards the edit.
func (s *Schedule) Remove(id string) bool {
	if s.editing != nil && s.editing.id == id {
		s.editing = nil
		return true
	}
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Edit takes the event with id out of the active set and stages it for
// re-insertion. An edit already in progress is cancelled (its original
// event restored) first.
func (s *Schedule) Edit(id string) (Event, bool) {
	if s.editing != nil && s.editing.id == id {
		return s.editing.ev, true
	}
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	s.Cancel()
	// Cancel may have re-inserted before i.
	i = s.index(id)
	s.editing = &editSlot{item: s.items[i], pos: i}
	s.items = slices.Delete(s.items, i, i+1)
	return s.editing.ev, true
}

// Commit re-inserts the event being edited, replaced by ev, under its
// original ID and position. It returns "" when nothing is being edited.
// A nil ev leaves the edit open.
func (s *Schedule) Commit(ev Event) string {
	if s.editing == nil || ev == nil {
		return ""
	}
	slot := s.editing
	s.editing = nil
	s.insert(slot.pos, item{id: slot.id, ev: Normalize(ev)})
	return slot.id
}

// Cancel restores the event being edited unchanged.
func (s *Schedule) Cancel() {
	if s.editing == nil {
		return
	}
	slot := s.editing
	s.editing = nil
	s.insert(slot.pos, slot.item)
}

func (s *Schedule) insert(pos int, it item) {
	pos = min(max(pos, 0), len(s.items))
	s.items = slices.Insert(s.items, pos, it)
}

// Editing returns the ID and event currently staged for editing.
func (s *Schedule) Editing() (string, Event, bool) {
	if s.editing == nil {
		return "", nil, false
	}
	return s.editing.id, s.editing.ev, true
}

// Get returns the active event with id.
func (s *Schedule) Get(id string) (Event, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i].ev, true
	}
	return nil, false
}

// Events returns the active events in insertion order.
func (s *Schedule) Events() []Event {
	out := make([]Event, len(s.items))
	for i, it := range s.items {
		out[i] = it.ev
	}
	return out
}

// Entries returns the active events in display form.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.items))
	for i, it := range s.items {
		out[i] = NewEntry(it.id, it.ev)
	}
	return out
}

// Len is the number of active events.
func (s *Schedule) Len() int { return len(s.items) }

// Clear drops every event, including one being edited.
func (s *Schedule) Clear() {
	s.items = nil
	s.editing = nil
}

func (s *Schedule) index(id string) int {
	return slices.IndexFunc(s.items, func(it item) bool { return it.id == id })
}
