// Package scenario reads simulation inputs from YAML files and JSON request
// bodies and resolves them into engine values.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/clock"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/patient"
)

// Scenario is the file/request form of one simulation. Field names are
// shared by YAML and JSON.
type Scenario struct {
	Drug      string  `yaml:"drug" json:"drug"`
	Model     string  `yaml:"model,omitempty" json:"model,omitempty"` // empty selects by age
	Patient   Patient `yaml:"patient" json:"patient"`
	Duration  float64 `yaml:"duration,omitempty" json:"duration,omitempty"` // minutes
	Step      float64 `yaml:"step,omitempty" json:"step,omitempty"`         // minutes
	StartTime string  `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	Doses     []Dose  `yaml:"doses" json:"doses"`
}

// Patient covariates. Zero weight or height is filled from typical values
// for the age.
type Patient struct {
	Weight float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
	Age    float64 `yaml:"age" json:"age"`
	Height float64 `yaml:"height,omitempty" json:"height,omitempty"`
	Sex    string  `yaml:"sex,omitempty" json:"sex,omitempty"`
}

// Dose is a bolus or an infusion. The onset is either Minute (offset from
// the origin) or At (wall-clock "HH:MM" relative to StartTime).
type Dose struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Amount   float64  `yaml:"amount,omitempty" json:"amount,omitempty"`
	Rate     float64  `yaml:"rate,omitempty" json:"rate,omitempty"` // unit per hour
	Duration float64  `yaml:"duration,omitempty" json:"duration,omitempty"`
	Minute   *float64 `yaml:"minute,omitempty" json:"minute,omitempty"`
	At       string   `yaml:"at,omitempty" json:"at,omitempty"`
}

// Load reads a YAML scenario with strict field checking.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return DecodeYAML(bytes.NewReader(data))
}

// DecodeYAML parses YAML, rejecting unknown fields so typos surface.
func DecodeYAML(r io.Reader) (Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	return s, nil
}

// DecodeJSON parses a JSON body, rejecting unknown fields.
func DecodeJSON(r io.Reader) (Scenario, error) {
	var s Scenario
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	return s, nil
}

// Resolved holds engine values for a Scenario.
type Resolved struct {
	Drug      catalog.Drug
	Model     catalog.Model
	AutoModel bool
	Profile   patient.Profile
	Events    []dosing.Event
	Config    sim.SimConfig
	StartTime string
}

// Resolve validates names and times. Numeric values are not rejected; the
// engine clamps them.
func (s Scenario) Resolve() (Resolved, error) {
	drug, ok := catalog.ParseDrug(s.Drug)
	if !ok {
		return Resolved{}, fmt.Errorf("unknown drug %q", s.Drug)
	}

	start := strings.TrimSpace(s.StartTime)
	if start == "" {
		start = clock.Fallback
	} else if _, ok := clock.Parse(start); !ok {
		return Resolved{}, fmt.Errorf("invalid start_time %q, want HH:MM", s.StartTime)
	}

	profile := s.Patient.profile()
	res := Resolved{
		Drug:      drug,
		Profile:   profile,
		Config:    sim.NewSimConfig(s.Duration, s.Step),
		StartTime: start,
	}
	if s.Duration == 0 {
		res.Config.Duration = sim.DefaultDuration
	}

	if strings.TrimSpace(s.Model) == "" {
		res.Model = profile.SelectModel(drug)
		res.AutoModel = true
	} else {
		m, ok := catalog.ParseModel(drug, s.Model)
		if !ok {
			return Resolved{}, fmt.Errorf("unknown model %q for %s", s.Model, drug)
		}
		res.Model = m
	}
	if missing := profile.Missing(catalog.GetModelRequirements(drug, res.Model)); len(missing) > 0 {
		logrus.Warnf("scenario: model %q uses %v which the patient leaves unset", res.Model, missing)
	}

	for i, d := range s.Doses {
		ev, err := d.event(start)
		if err != nil {
			return Resolved{}, fmt.Errorf("dose %d: %w", i+1, err)
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

func (p Patient) profile() patient.Profile {
	typical := patient.AutoAdjust(p.Age, patient.ParseSex(p.Sex))
	weight, height := p.Weight, p.Height
	if weight == 0 {
		weight = typical.Weight
	}
	if height == 0 {
		height = typical.Height
	}
	return patient.New(weight, p.Age, height, patient.ParseSex(p.Sex))
}

func (d Dose) onset(start string) (float64, error) {
	if d.Minute != nil {
		if d.At != "" {
			return 0, fmt.Errorf("set either minute or at, not both")
		}
		return *d.Minute, nil
	}
	if d.At == "" {
		return 0, nil
	}
	if _, ok := clock.Parse(d.At); !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", d.At)
	}
	m := clock.TimeToMinutes(d.At, start)
	if m < 0 {
		// earlier clock time than the start means the next day
		m += clock.MinutesPerDay
	}
	return float64(m), nil
}

func (d Dose) event(start string) (dosing.Event, error) {
	t, err := d.onset(start)
	if err != nil {
		return nil, err
	}
	switch dosing.Kind(strings.ToLower(strings.TrimSpace(d.Kind))) {
	case dosing.KindBolus:
		return dosing.NewBolus(t, d.Amount), nil
	case dosing.KindInfusion:
		return dosing.NewInfusion(t, d.Rate, d.Duration), nil
	}
	return nil, fmt.Errorf("unknown dose kind %q, want bolus or infusion", d.Kind)
}

// Context builds a simulation context holding the resolved inputs.
func (r Resolved) Context() *sim.Context {
	c := sim.NewContext(r.Drug, r.Profile, r.Config)
	if !r.AutoModel {
		c.SetModel(r.Model)
	}
	for _, ev := range r.Events {
		c.AddDose(ev)
	}
	return c
}

// Result runs the resolved scenario once.
func (r Resolved) Result() sim.Result {
	return sim.Recompute(r.Drug, r.Model, r.Profile, r.Events, r.Config)
}

// FromContext is the inverse of Resolve for the current state of c, used
// to save an edited session.
func FromContext(c *sim.Context, start string) Scenario {
	p := c.Profile()
	s := Scenario{
		Drug:      c.Drug().String(),
		Patient:   Patient{Weight: p.Weight, Age: p.Age, Height: p.Height, Sex: string(p.Sex)},
		Duration:  c.Config().Duration,
		Step:      c.Config().Step,
		StartTime: start,
	}
	if !c.AutoModel() {
		s.Model = c.Model().String()
	}
	for _, e := range c.Entries() {
		minute := e.Time
		d := Dose{Kind: string(e.Kind), Minute: &minute}
		switch e.Kind {
		case dosing.KindBolus:
			d.Amount = e.Amount
		case dosing.KindInfusion:
			d.Rate, d.Duration = e.Rate, e.Duration
		}
		s.Doses = append(s.Doses, d)
	}
	return s
}

// Encode writes s as YAML.
func (s Scenario) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	return enc.Close()
}
