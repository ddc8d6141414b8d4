package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/clock"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/patient"
	"github.com/pkpd-sim/pkpd-sim/sim/tracker"
)

// DefaultEvery is the table row interval in minutes.
const DefaultEvery = 15.0

// Options control text rendering.
type Options struct {
	Lang      language.Tag
	StartTime string  // "HH:MM" origin; empty prints minutes only
	Every     float64 // table row interval in minutes
}

func (o Options) every() float64 {
	if !(o.Every > 0) || math.IsInf(o.Every, 0) {
		return DefaultEvery
	}
	return o.Every
}

func (o Options) clockAt(minutes float64) string {
	if o.StartTime == "" {
		return fmt.Sprintf("%g min", minutes)
	}
	return clock.MinutesToTimeFloat(minutes, o.StartTime)
}

// localized writes translated lines and keeps the first error.
type localized struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func newLocalized(w io.Writer, lang language.Tag) *localized {
	return &localized{w: w, p: NewPrinter(lang)}
}

func (l *localized) line(key message.Reference, args ...any) {
	if l.err != nil {
		return
	}
	if _, err := l.p.Fprintf(l.w, key, args...); err != nil {
		l.err = err
		return
	}
	_, l.err = io.WriteString(l.w, "\n")
}

func (l *localized) text(key message.Reference) string {
	return l.p.Sprintf(key)
}

// WriteText renders the inputs, a sampled table of the series and the
// summary in the requested language.
func WriteText(w io.Writer, r sim.Result, profile patient.Profile, entries []dosing.Entry, opts Options) error {
	l := newLocalized(w, opts.Lang)
	unit := catalog.Unit(r.Drug)

	l.line(msgTitle)
	l.line(msgDrug, r.Drug.String(), string(unit))
	l.line(msgModel, r.Model.String())
	l.line(msgPatient, profile.Weight, profile.Age, profile.Height, string(profile.Sex))
	l.line(msgRange, r.Range.Label)

	l.line(msgDoses)
	if len(entries) == 0 {
		l.line(msgNoDoses)
	}
	for _, e := range entries {
		switch e.Kind {
		case dosing.KindBolus:
			l.line(msgBolus, e.Amount, string(unit), opts.clockAt(e.Time), e.Time)
		case dosing.KindInfusion:
			l.line(msgInfusion, e.Rate, string(unit), opts.clockAt(e.StartTime), e.StartTime, e.Duration)
		}
	}
	if l.err != nil {
		return l.err
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\tCp (ng/mL)\tCe (ng/mL)\t\n", l.text(msgTime), l.text(msgClock))
	next := 0.0
	for i, pt := range r.Series {
		if pt.Time+1e-9 < next && i != len(r.Series)-1 {
			continue
		}
		fmt.Fprintf(tw, "%g\t%s\t%.3f\t%.3f\t\n", pt.Time, opts.clockAt(pt.Time), pt.Cp, pt.Ce)
		next = pt.Time + opts.every()
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write series table: %w", err)
	}
	fmt.Fprintln(w)

	writeSummary(l, r.Summary, opts)
	return l.err
}

func writeSummary(l *localized, s sim.Summary, opts Options) {
	l.line(msgPeakCp, s.PeakCp, opts.clockAt(s.PeakCpTime))
	l.line(msgPeakCe, s.PeakCe, opts.clockAt(s.PeakCeTime))
	if s.OnsetTime >= 0 {
		l.line(msgOnset, opts.clockAt(s.OnsetTime))
	} else {
		l.line(msgNoOnset)
	}
	l.line(msgInRange, s.MinutesInRange)
	l.line(msgAtRisk, s.MinutesAtRisk)
}

// WriteComparison renders one summary line per model.
func WriteComparison(w io.Writer, models []sim.ModelSeries, opts Options) error {
	l := newLocalized(w, opts.Lang)
	l.line(msgCompare)
	if l.err != nil {
		return l.err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", l.text(msgModelCol), l.text(msgV1Col),
		l.text(msgPeakCpCol), l.text(msgPeakCeCol), l.text(msgPeakCeAtCol))
	for _, m := range models {
		s := m.Result.Summary
		fmt.Fprintf(tw, "%s\t%.2f\t%.3f\t%.3f\t%s\t\n",
			m.Name, m.Result.Params.V1, s.PeakCp, s.PeakCe, opts.clockAt(s.PeakCeTime))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write comparison table: %w", err)
	}
	return nil
}

// WriteReading renders one tracker reading.
func WriteReading(w io.Writer, r tracker.Reading, lang language.Tag) error {
	l := newLocalized(w, lang)
	if r.Active {
		l.line(msgNowReading, r.Clock, r.SimMinutes, r.Point.Cp, r.Point.Ce)
	} else {
		l.line(msgNowInactive, r.Clock, r.SimMinutes)
	}
	return l.err
}
