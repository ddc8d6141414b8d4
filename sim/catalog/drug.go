// Package catalog holds the static pharmacokinetic tables: per-model
// parameter sets at the 70 kg reference weight, therapeutic ranges, dose
// units and the model-selection decision table.
//
// Everything in this package is read-only after init. Lookups never fail;
// unknown keys fall back to a drug's default model.
package catalog

import "strings"

// Drug identifies an opioid supported by the engine.
type Drug int

const (
	Fentanyl Drug = iota
	Remifentanil
	Morphine
	Hydromorphone
	Methadone
)

var drugNames = map[Drug]string{
	Fentanyl:      "Fentanyl",
	Remifentanil:  "Remifentanil",
	Morphine:      "Morphine",
	Hydromorphone: "Hydromorphone",
	Methadone:     "Methadone",
}

// Drugs returns all drugs in display order.
func Drugs() []Drug {
	return []Drug{Fentanyl, Remifentanil, Morphine, Hydromorphone, Methadone}
}

func (d Drug) String() string {
	if name, ok := drugNames[d]; ok {
		return name
	}
	return "Unknown"
}

// ParseDrug matches a drug name case-insensitively.
func ParseDrug(s string) (Drug, bool) {
	s = strings.TrimSpace(s)
	for d, name := range drugNames {
		if strings.EqualFold(name, s) {
			return d, true
		}
	}
	return Fentanyl, false
}

// DoseUnit is the unit doses are entered in.
type DoseUnit string

const (
	Microgram DoseUnit = "mcg"
	Milligram DoseUnit = "mg"
)

// Unit returns the display unit for doses of d.
func Unit(d Drug) DoseUnit {
	switch d {
	case Morphine, Hydromorphone, Methadone:
		return Milligram
	default:
		return Microgram
	}
}

// ScaleFactor converts a dose in the drug's unit into micrograms so that
// amount/volume comes out in ng/mL for every drug.
func ScaleFactor(d Drug) float64 {
	if Unit(d) == Milligram {
		return 1000
	}
	return 1
}

// TherapeuticRange describes the reference bands drawn over a chart, in ng/mL.
type TherapeuticRange struct {
	AnalgesiaMin    float64 `json:"analgesiaMin" yaml:"analgesia_min"`
	AnalgesiaMax    float64 `json:"analgesiaMax" yaml:"analgesia_max"`
	RespiratoryRisk float64 `json:"respiratoryRisk" yaml:"respiratory_risk"`
	Label           string  `json:"label" yaml:"label"`
}

var therapeuticRanges = map[Drug]TherapeuticRange{
	Fentanyl: {
		AnalgesiaMin:    1.0,
		AnalgesiaMax:    2.0,
		RespiratoryRisk: 3.0,
		Label:           "Analgesia (1.0-2.0) / Resp Risk > 3.0",
	},
	Remifentanil: {
		AnalgesiaMin:    1.0,
		AnalgesiaMax:    3.0,
		RespiratoryRisk: 5.0,
		Label:           "Analgesia (1.0-3.0) / Resp Risk > 5.0",
	},
	Morphine: {
		AnalgesiaMin:    10,
		AnalgesiaMax:    40,
		RespiratoryRisk: 60,
		Label:           "Analgesia (10-40) / Resp Risk > 60",
	},
	Hydromorphone: {
		AnalgesiaMin:    4.0,
		AnalgesiaMax:    15.0,
		RespiratoryRisk: 25.0,
		Label:           "Analgesia (4.0-15.0)",
	},
	Methadone: {
		AnalgesiaMin:    50,
		AnalgesiaMax:    100,
		RespiratoryRisk: 200,
		Label:           "Analgesia (50-100) / Resp Risk > 200",
	},
}

// Range returns the therapeutic range for d.
func Range(d Drug) TherapeuticRange {
	return therapeuticRanges[d]
}

// ClinicalDefaults are the starting values a dosing form is pre-filled with.
// Rate is per hour, Duration in minutes.
type ClinicalDefaults struct {
	Bolus    float64  `json:"bolus"`
	Rate     float64  `json:"rate"`
	Duration float64  `json:"duration"`
	Unit     DoseUnit `json:"unit"`
}

var clinicalDefaults = map[Drug]ClinicalDefaults{
	Fentanyl:      {Bolus: 50, Rate: 50, Duration: 60, Unit: Microgram},
	Remifentanil:  {Bolus: 20, Rate: 300, Duration: 60, Unit: Microgram},
	Morphine:      {Bolus: 5, Rate: 2, Duration: 120, Unit: Milligram},
	Hydromorphone: {Bolus: 1, Rate: 0.5, Duration: 120, Unit: Milligram},
	Methadone:     {Bolus: 5, Rate: 2, Duration: 60, Unit: Milligram},
}

// Defaults returns the clinical starting doses for d.
func Defaults(d Drug) ClinicalDefaults {
	return clinicalDefaults[d]
}
