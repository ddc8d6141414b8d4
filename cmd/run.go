package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/report"
)

var (
	outputFormat string  // text, json, csv or xlsx
	outputPath   string  // Output file; stdout when empty
	savePath     string  // Write the resolved scenario as YAML
	compareAll   bool    // Run every model of the drug
	lang         string  // Report language
	every        float64 // Text table row interval
)

// outputOptions select how a run is rendered.
type outputOptions struct {
	Format     string
	CompareAll bool
	Report     report.Options
}

// runOutput is the JSON form of a single run.
type runOutput struct {
	Drug      string         `json:"drug"`
	Model     string         `json:"model"`
	StartTime string         `json:"start_time"`
	Doses     []dosing.Entry `json:"doses"`
	Result    sim.Result     `json:"result"`
}

// runCmd executes one simulation and renders the result
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a dosing scenario",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := scenarioFromFlags(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		res, err := s.Resolve()
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		logrus.Infof("Simulating %s with %s, %d doses over %g min",
			res.Drug, res.Model, len(res.Events), res.Config.Duration)

		opts := outputOptions{
			Format:     outputFormat,
			CompareAll: compareAll,
			Report: report.Options{
				Lang:      report.ParseLang(envOr(envLang, lang)),
				StartTime: res.StartTime,
				Every:     every,
			},
		}
		if cmd.Flags().Changed("lang") {
			opts.Report.Lang = report.ParseLang(lang)
		}
		if err := writeOutput(cmd.OutOrStdout(), outputPath, res, opts); err != nil {
			logrus.Fatalf("Failed to write output: %v", err)
		}

		if savePath != "" {
			if err := saveScenario(savePath, res); err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Scenario saved to %s", savePath)
		}
	},
}

// writeOutput renders to path, or to stdout when path is empty. The file
// is closed before returning so a failed flush is reported.
func writeOutput(stdout io.Writer, path string, res scenario.Resolved, opts outputOptions) error {
	if path == "" {
		return render(stdout, res, opts)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := render(f, res, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func render(w io.Writer, res scenario.Resolved, opts outputOptions) error {
	c := res.Context()

	if opts.CompareAll {
		models := sim.CompareModels(res.Drug, res.Profile, res.Events, res.Config)
		switch opts.Format {
		case "json":
			return writeJSON(w, models)
		case "", "text":
			return report.WriteComparison(w, models, opts.Report)
		}
		return fmt.Errorf("--compare-all supports text and json output, not %q", opts.Format)
	}

	switch opts.Format {
	case "", "text":
		if err := report.WriteText(w, c.Result(), c.Profile(), c.Entries(), opts.Report); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return c.Result().Summary.Print(w)
	case "json":
		return writeJSON(w, runOutput{
			Drug:      c.Drug().String(),
			Model:     c.Model().String(),
			StartTime: res.StartTime,
			Doses:     c.Entries(),
			Result:    c.Result(),
		})
	case "csv":
		return report.WriteCSV(w, c.Result().Series, res.StartTime)
	case "xlsx":
		return report.WriteXLSX(w, c.Result(), c.Entries(), res.StartTime)
	}
	return fmt.Errorf("unknown output format %q", opts.Format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func saveScenario(path string, res scenario.Resolved) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scenario file: %w", err)
	}
	if err := scenario.FromContext(res.Context(), res.StartTime).Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close scenario file: %w", err)
	}
	return nil
}

func init() {
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format (text, json, csv, xlsx)")
	runCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write output to this file instead of stdout")
	runCmd.Flags().StringVar(&savePath, "save", "", "Save the resolved scenario as YAML")
	runCmd.Flags().BoolVar(&compareAll, "compare-all", false, "Simulate every model available for the drug")
	runCmd.Flags().StringVar(&lang, "lang", "en", "Report language (en, ja)")
	runCmd.Flags().Float64Var(&every, "every", report.DefaultEvery, "Minutes between rows of the text table")
}
