package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim/clock"
)

var (
	// Scenario inputs shared by run, track and serve
	scenarioPath string   // YAML scenario file
	drugName     string   // Drug name
	modelName    string   // Model display name; empty selects by age
	weight       float64  // Patient weight (kg)
	age          float64  // Patient age (years)
	height       float64  // Patient height (cm)
	sex          string   // Patient sex
	duration     float64  // Simulated minutes
	step         float64  // Output resolution (minutes)
	startTime    string   // Wall-clock start "HH:MM"
	doseSpecs    []string // Extra doses, see parseDose
)

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file")
	cmd.Flags().StringVar(&drugName, "drug", "Fentanyl", "Drug (Fentanyl, Remifentanil, Morphine, Hydromorphone, Methadone)")
	cmd.Flags().StringVar(&modelName, "model", "", "PK model name; empty picks the best model for the patient's age")
	cmd.Flags().Float64Var(&weight, "weight", 0, "Patient weight in kg; 0 uses a typical value for the age")
	cmd.Flags().Float64Var(&age, "age", 40, "Patient age in years")
	cmd.Flags().Float64Var(&height, "height", 0, "Patient height in cm; 0 uses a typical value for the age")
	cmd.Flags().StringVar(&sex, "sex", "male", "Patient sex (male, female)")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Simulated minutes (default 240)")
	cmd.Flags().Float64Var(&step, "step", 0, "Output resolution in minutes (default 1)")
	cmd.Flags().StringVar(&startTime, "start", "", "Wall-clock start time HH:MM")
	cmd.Flags().StringArrayVar(&doseSpecs, "dose", nil,
		"Dose as bolus:AMOUNT@TIME or infusion:RATE@TIME/DURATION; TIME is minutes or HH:MM (repeatable)")
}

// scenarioFromFlags starts from the scenario file, if any, and applies the
// flags the user set explicitly on top of it.
func scenarioFromFlags(cmd *cobra.Command) (scenario.Scenario, error) {
	var s scenario.Scenario
	if scenarioPath != "" {
		loaded, err := scenario.Load(scenarioPath)
		if err != nil {
			return scenario.Scenario{}, err
		}
		s = loaded
	}

	fromFile := scenarioPath != ""
	set := func(name string) bool { return !fromFile || cmd.Flags().Changed(name) }
	if set("drug") {
		s.Drug = drugName
	}
	if set("model") {
		s.Model = modelName
	}
	if set("weight") {
		s.Patient.Weight = weight
	}
	if set("age") {
		s.Patient.Age = age
	}
	if set("height") {
		s.Patient.Height = height
	}
	if set("sex") {
		s.Patient.Sex = sex
	}
	if set("duration") {
		s.Duration = duration
	}
	if set("step") {
		s.Step = step
	}
	if set("start") {
		s.StartTime = startTime
	}
	for _, spec := range doseSpecs {
		d, err := parseDose(spec)
		if err != nil {
			return scenario.Scenario{}, err
		}
		s.Doses = append(s.Doses, d)
	}
	return s, nil
}

// parseDose reads "bolus:100@09:00", "bolus:5@30", "infusion:50@09:15/60".
// A missing @TIME means minute 0.
func parseDose(spec string) (scenario.Dose, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return scenario.Dose{}, fmt.Errorf("invalid dose %q: want KIND:VALUE@TIME", spec)
	}
	value, when, _ := strings.Cut(rest, "@")
	d := scenario.Dose{Kind: strings.ToLower(kind)}

	if d.Kind == "infusion" {
		var dur string
		when, dur, ok = strings.Cut(when, "/")
		if !ok {
			return scenario.Dose{}, fmt.Errorf("invalid infusion %q: want infusion:RATE@TIME/DURATION", spec)
		}
		v, err := strconv.ParseFloat(dur, 64)
		if err != nil {
			return scenario.Dose{}, fmt.Errorf("invalid infusion duration in %q: %w", spec, err)
		}
		d.Duration = v
	}

	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return scenario.Dose{}, fmt.Errorf("invalid amount in %q: %w", spec, err)
	}
	if d.Kind == "infusion" {
		d.Rate = amount
	} else {
		d.Amount = amount
	}

	switch {
	case when == "":
	case strings.Contains(when, ":"):
		d.At = when
	default:
		m, err := strconv.ParseFloat(when, 64)
		if err != nil {
			return scenario.Dose{}, fmt.Errorf("invalid time in %q: %w", spec, err)
		}
		d.Minute = &m
	}
	return d, nil
}

// startNow fills an empty start time with the current wall clock, so
// tracking begins at launch.
func startNow(s *scenario.Scenario, now time.Time) {
	if strings.TrimSpace(s.StartTime) == "" {
		s.StartTime = clock.FromTime(now)
	}
}
