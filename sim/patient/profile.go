// Package patient derives the covariates the catalog and the model
// selection table consume. Out-of-range inputs are clamped, never rejected.
package patient

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
)

// PediatricAgeLimit is the age (years) below which a patient is pediatric.
const PediatricAgeLimit = 18

// Covariate bounds.
const (
	MinWeight = catalog.MinWeight
	MaxWeight = 300.0
	MinAge    = 0.0
	MaxAge    = 120.0
	MinHeight = 30.0
	MaxHeight = 250.0
)

// Sex is the biological sex used by the lean-body-mass formula.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// ParseSex accepts male/female and their one-letter forms; anything else is Male.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f":
		return Female
	default:
		return Male
	}
}

// Profile is an immutable set of patient covariates. Build it with New so
// the bounds hold.
type Profile struct {
	Weight float64 `json:"weight" yaml:"weight"` // kg
	Age    float64 `json:"age" yaml:"age"`       // years
	Height float64 `json:"height" yaml:"height"` // cm
	Sex    Sex     `json:"sex" yaml:"sex"`
}

// New returns a profile with every covariate clamped into range.
func New(weight, age, height float64, sex Sex) Profile {
	if sex != Female {
		sex = Male
	}
	return Profile{
		Weight: clamp("weight", weight, MinWeight, MaxWeight),
		Age:    clamp("age", age, MinAge, MaxAge),
		Height: clamp("height", height, MinHeight, MaxHeight),
		Sex:    sex,
	}
}

// Default is a 70 kg, 40 year old, 170 cm adult male: the catalog reference.
func Default() Profile {
	return New(catalog.ReferenceWeight, 40, 170, Male)
}

// Normalize re-applies the bounds, for profiles decoded from files or JSON.
func (p Profile) Normalize() Profile {
	return New(p.Weight, p.Age, p.Height, ParseSex(string(p.Sex)))
}

func clamp(name string, v, lo, hi float64) float64 {
	var out float64
	switch {
	case math.IsNaN(v) || math.IsInf(v, -1) || v < lo:
		out = lo
	case math.IsInf(v, 1) || v > hi:
		out = hi
	default:
		return v
	}
	logrus.Debugf("patient: %s %v out of range, clamped to %v", name, v, out)
	return out
}

// IsPediatric reports whether pediatric models apply.
func (p Profile) IsPediatric() bool {
	return p.Age < PediatricAgeLimit
}

// LeanBodyMass uses the James formula, floored at MinWeight since it turns
// negative for very high weight-to-height ratios.
func (p Profile) LeanBodyMass() float64 {
	ratio := p.Weight / p.Height
	var lbm float64
	if p.Sex == Female {
		lbm = 1.07*p.Weight - 148*ratio*ratio
	} else {
		lbm = 1.1*p.Weight - 128*ratio*ratio
	}
	return math.Max(lbm, MinWeight)
}

// BMI in kg/m².
func (p Profile) BMI() float64 {
	m := p.Height / 100
	return p.Weight / (m * m)
}

// AutoAdjust returns typical weight and height for age. Children use the
// APLS weight estimates and a linear height-for-age approximation; adults
// get sex-specific averages.
func AutoAdjust(age float64, sex Sex) Profile {
	age = clamp("age", age, MinAge, MaxAge)
	var weight, height float64
	switch {
	case age < 1:
		weight = 3.5 + age*6.5
		height = 50 + age*25
	case age <= 5:
		weight = 2*age + 8
		height = 6*age + 77
	case age <= 12:
		weight = 3*age + 7
		height = 6*age + 77
	case age < PediatricAgeLimit:
		weight = 3*age + 7
		height = 149 + (age-12)*4
	default:
		if sex == Female {
			weight, height = 60, 158
		} else {
			weight, height = 70, 170
		}
	}
	if age >= 12 && age < PediatricAgeLimit {
		adult := AutoAdjust(PediatricAgeLimit, sex)
		weight = math.Min(weight, adult.Weight)
		height = math.Min(height, adult.Height)
	}
	return New(weight, age, height, sex)
}

// SelectModel picks the catalog model for drug given the patient's age group.
func (p Profile) SelectModel(drug catalog.Drug) catalog.Model {
	return catalog.GetBestModel(drug, p.IsPediatric())
}

// Missing lists required covariates the profile leaves unset. Age 0 is a
// legitimate newborn age, so only weight/height/sex can be missing.
func (p Profile) Missing(req catalog.Requirements) []catalog.Covariate {
	var out []catalog.Covariate
	for _, c := range req.List() {
		switch c {
		case catalog.CovariateWeight:
			if p.Weight <= MinWeight {
				out = append(out, c)
			}
		case catalog.CovariateHeight:
			if p.Height <= MinHeight {
				out = append(out, c)
			}
		case catalog.CovariateSex:
			if p.Sex == "" {
				out = append(out, c)
			}
		}
	}
	return out
}
