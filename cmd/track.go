package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim/report"
	"github.com/pkpd-sim/pkpd-sim/sim/tracker"
)

var (
	trackPeriod time.Duration // Wall-clock sampling period
	trackOnce   bool          // Print one reading and exit
	trackLang   string        // Reading language
)

// trackCmd follows a scenario against the wall clock
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Print the current Cp/Ce of a scenario as the wall clock advances",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := scenarioFromFlags(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		startNow(&s, time.Now())
		res, err := s.Resolve()
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}

		l := report.ParseLang(envOr(envLang, trackLang))
		if cmd.Flags().Changed("lang") {
			l = report.ParseLang(trackLang)
		}
		tr := newTracker(cmd.OutOrStdout(), res, l)

		if trackOnce {
			tr.Tick(time.Now())
			return
		}

		ticker := tracker.NewTicker(tr, trackPeriod)
		if err := ticker.Start(); err != nil {
			logrus.Fatalf("%v", err)
		}
		defer ticker.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logrus.Info("Tracking stopped.")
	},
}

// newTracker follows res from its start time and prints every reading.
func newTracker(w io.Writer, res scenario.Resolved, lang language.Tag) *tracker.Tracker {
	tr := tracker.New(res.StartTime)
	tr.SetResult(res.Result())
	tr.OnTick = func(r tracker.Reading) {
		if err := report.WriteReading(w, r, lang); err != nil {
			logrus.Errorf("Failed to print reading: %v", err)
		}
	}
	return tr
}

func init() {
	addScenarioFlags(trackCmd)
	trackCmd.Flags().DurationVar(&trackPeriod, "period", tracker.DefaultPeriod, "How often to sample the wall clock")
	trackCmd.Flags().BoolVar(&trackOnce, "once", false, "Print the current reading and exit")
	trackCmd.Flags().StringVar(&trackLang, "lang", "en", "Output language (en, ja)")
}
