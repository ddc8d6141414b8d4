// Package clock maps simulation minute offsets to 24-hour wall-clock
// "HH:MM" strings and back. All functions are pure; malformed input gives
// a fixed fallback instead of an error.
package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the wrap-around period of the wall clock.
const MinutesPerDay = 24 * 60

// Fallback is returned by MinutesToTime for an unusable start time.
const Fallback = "00:00"

// Parse reads "H:MM" or "HH:MM" (24-hour) into minutes after midnight.
// Output is always the two-digit "HH:MM" form, so "9:05" comes back from
// Format as "09:05"; the minute value round-trips, the spelling does not.
func Parse(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Format renders minutes after midnight as "HH:MM", wrapping into one day.
func Format(minuteOfDay int) string {
	m := minuteOfDay % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// TimeToMinutes returns the signed number of minutes from start to clock
// on the same day. Either argument malformed yields 0.
func TimeToMinutes(clock, start string) int {
	c, ok := Parse(clock)
	if !ok {
		return 0
	}
	s, ok := Parse(start)
	if !ok {
		return 0
	}
	return c - s
}

// MinutesToTime returns the wall-clock time offset minutes after start, in
// canonical "HH:MM" form whatever spelling start used.
func MinutesToTime(offset int, start string) string {
	s, ok := Parse(start)
	if !ok {
		return Fallback
	}
	return Format(s + offset)
}

// MinutesToTimeFloat is MinutesToTime for fractional offsets, truncated
// toward negative infinity to whole minutes.
func MinutesToTimeFloat(offset float64, start string) string {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return MinutesToTime(0, start)
	}
	return MinutesToTime(int(math.Floor(offset)), start)
}

// FromTime formats the wall-clock part of t.
func FromTime(t time.Time) string {
	return Format(t.Hour()*60 + t.Minute())
}
