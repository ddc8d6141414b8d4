package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// ReferenceWeight is the body weight (kg) the catalog entries are expressed at.
const ReferenceWeight = 70.0

// MinWeight is the lowest weight accepted for scaling.
const MinWeight = 0.1

// Model identifies a published (or derived) parameter set for one drug.
type Model int

const (
	FentanylBae2020 Model = iota
	FentanylShafer
	FentanylGinsberg
	RemifentanilMinto
	RemifentanilRigbyJones
	MorphineMaitre
	MorphineMcFarlan
	HydromorphoneJeleazcov2014
	HydromorphoneBalyan2020
	HydromorphoneStandard
	HydromorphonePediatricScaled
	MethadoneStandard
)

type modelInfo struct {
	name      string
	drug      Drug
	pediatric bool
}

var modelInfos = map[Model]modelInfo{
	FentanylBae2020:              {"Bae (2020) Adult", Fentanyl, false},
	FentanylShafer:               {"Shafer (Adult)", Fentanyl, false},
	FentanylGinsberg:             {"Ginsberg (Pediatric)", Fentanyl, true},
	RemifentanilMinto:            {"Minto (Adult)", Remifentanil, false},
	RemifentanilRigbyJones:       {"Rigby-Jones (Pediatric)", Remifentanil, true},
	MorphineMaitre:               {"Maitre (Adult)", Morphine, false},
	MorphineMcFarlan:             {"McFarlan (Pediatric)", Morphine, true},
	HydromorphoneJeleazcov2014:   {"Jeleazcov (2014) Adult", Hydromorphone, false},
	HydromorphoneBalyan2020:      {"Balyan (2020) Pediatric", Hydromorphone, true},
	HydromorphoneStandard:        {"Standard (Adult)", Hydromorphone, false},
	HydromorphonePediatricScaled: {"Pediatric (Scaled)", Hydromorphone, true},
	MethadoneStandard:            {"Standard (Adult)", Methadone, false},
}

func (m Model) String() string {
	if info, ok := modelInfos[m]; ok {
		return info.name
	}
	return "Unknown"
}

// Drug returns the drug the model belongs to.
func (m Model) Drug() Drug {
	return modelInfos[m].drug
}

// Pediatric reports whether the model was validated in children.
func (m Model) Pediatric() bool {
	return modelInfos[m].pediatric
}

// Models lists the models available for d in display order.
func Models(d Drug) []Model {
	var out []Model
	for m := FentanylBae2020; m <= MethadoneStandard; m++ {
		if modelInfos[m].drug == d {
			out = append(out, m)
		}
	}
	return out
}

// ParseModel finds a model of d by display name. Names are only unique
// within a drug ("Standard (Adult)" exists for two drugs).
func ParseModel(d Drug, name string) (Model, bool) {
	name = strings.TrimSpace(name)
	for _, m := range Models(d) {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return GetBestModel(d, false), false
}

// PKParameters is a weight-scaled three-compartment parameter set.
// Volumes in L, clearances in L/min, Ke0 in 1/min.
type PKParameters struct {
	V1  float64 `json:"v1"`
	V2  float64 `json:"v2"`
	V3  float64 `json:"v3"`
	Cl  float64 `json:"cl"`
	Q2  float64 `json:"q2"`
	Q3  float64 `json:"q3"`
	Ke0 float64 `json:"ke0"`
}

// Entry is a catalog row at ReferenceWeight.
type Entry struct {
	V1, V2, V3 float64
	Cl, Q2, Q3 float64
	Ke0        float64
	Label      string
}

// Hourly clearances from the literature are stored divided by 60.
var entries = map[Model]Entry{
	FentanylBae2020: {
		V1: 10.1, V2: 26.5, V3: 206,
		Cl: 0.70, Q2: 2.55, Q3: 1.43, Ke0: 0.147,
		Label: "Fentanyl, 3-compartment, L and L/min at 70 kg",
	},
	FentanylShafer: {
		V1: 6.09, V2: 28.1, V3: 228,
		Cl: 0.504, Q2: 2.87, Q3: 1.37, Ke0: 0.147,
		Label: "Fentanyl, derived from k10/k12/k13/k21/k31 with V1=6.09 L",
	},
	FentanylGinsberg: {
		V1: 15.2, V2: 48.0, V3: 300,
		Cl: 0.98, Q2: 3.2, Q3: 1.6, Ke0: 0.147,
		Label: "Fentanyl pediatric, scaled to 70 kg equivalent",
	},
	RemifentanilMinto: {
		V1: 5.1, V2: 9.82, V3: 5.42,
		Cl: 2.6, Q2: 2.05, Q3: 0.076, Ke0: 0.595,
		Label: "Remifentanil, reference 40 y 170 cm male",
	},
	RemifentanilRigbyJones: {
		V1: 5.6, V2: 14.0, V3: 4.2,
		Cl: 3.1, Q2: 2.3, Q3: 0.09, Ke0: 0.595,
		Label: "Remifentanil pediatric, scaled to 70 kg equivalent",
	},
	MorphineMaitre: {
		V1: 17.8, V2: 87.0, V3: 199,
		Cl: 1.26, Q2: 2.1, Q3: 0.39, Ke0: 0.005,
		Label: "Morphine, slow effect-site equilibration",
	},
	MorphineMcFarlan: {
		V1: 20.4, V2: 110, V3: 0,
		Cl: 1.45, Q2: 2.4, Q3: 0, Ke0: 0.005,
		Label: "Morphine pediatric, 2-compartment (no deep peripheral)",
	},
	HydromorphoneJeleazcov2014: {
		V1: 3.35, V2: 13.9, V3: 145.0,
		Cl: 1.01, Q2: 1.47, Q3: 1.41, Ke0: 0.02,
		Label: "Hydromorphone, 3-compartment",
	},
	HydromorphoneBalyan2020: {
		V1: 4.1, V2: 18.2, V3: 160,
		Cl: 1.28, Q2: 1.7, Q3: 1.3, Ke0: 0.02,
		Label: "Hydromorphone pediatric, scaled to 70 kg equivalent",
	},
	HydromorphoneStandard: {
		V1: 14.0, V2: 51.0, V3: 215,
		Cl: 1.55, Q2: 2.1, Q3: 1.1, Ke0: 0.02,
		Label: "Hydromorphone, pooled adult values",
	},
	HydromorphonePediatricScaled: {
		V1: 14.0, V2: 51.0, V3: 215,
		Cl: 1.55, Q2: 2.1, Q3: 1.1, Ke0: 0.02,
		Label: "Hydromorphone, adult values applied with weight scaling",
	},
	MethadoneStandard: {
		V1: 21.5, V2: 75.1, V3: 484.0,
		Cl: 9.45 / 60, Q2: 325.0 / 60, Q3: 136.0 / 60, Ke0: 0.05,
		Label: "Methadone, CL 9.45 L/h, Q2 325 L/h, Q3 136 L/h at 70 kg",
	},
}

func init() {
	for m, info := range modelInfos {
		if _, ok := entries[m]; !ok {
			panic(fmt.Sprintf("catalog: model %q (%s) has no entry", info.name, info.drug))
		}
	}
	for _, d := range Drugs() {
		if best := GetBestModel(d, false); best.Drug() != d {
			panic(fmt.Sprintf("catalog: default model for %s belongs to %s", d, best.Drug()))
		}
		if _, ok := therapeuticRanges[d]; !ok {
			panic(fmt.Sprintf("catalog: no therapeutic range for %s", d))
		}
	}
}

// Lookup returns the reference entry for m.
func Lookup(m Model) (Entry, bool) {
	e, ok := entries[m]
	return e, ok
}

// ClampWeight maps non-finite or too small weights onto MinWeight.
func ClampWeight(weight float64) float64 {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < MinWeight {
		return MinWeight
	}
	return weight
}

// GetPKParameters scales the (drug, model) entry to weight. A model that
// does not belong to drug falls back to the drug's default model.
func GetPKParameters(drug Drug, model Model, weight float64) PKParameters {
	e, ok := entries[model]
	if !ok || model.Drug() != drug {
		fallback := GetBestModel(drug, false)
		logrus.Debugf("catalog: no %s entry for model %d, using %q", drug, int(model), fallback)
		e = entries[fallback]
	}
	w := ClampWeight(weight)
	if w != weight {
		logrus.Debugf("catalog: weight %v clamped to %v", weight, w)
	}

	ratio := w / ReferenceWeight
	allo := math.Pow(ratio, 0.75)
	return PKParameters{
		V1:  e.V1 * ratio,
		V2:  e.V2 * ratio,
		V3:  e.V3 * ratio,
		Cl:  e.Cl * allo,
		Q2:  e.Q2 * allo,
		Q3:  e.Q3 * allo,
		Ke0: e.Ke0,
	}
}

// GetBestModel applies the fixed selection table: a pediatric-validated
// model for children when the drug has one, the adult default otherwise.
func GetBestModel(drug Drug, isPediatric bool) Model {
	switch drug {
	case Fentanyl:
		if isPediatric {
			return FentanylGinsberg
		}
		return FentanylBae2020
	case Remifentanil:
		if isPediatric {
			return RemifentanilRigbyJones
		}
		return RemifentanilMinto
	case Morphine:
		if isPediatric {
			return MorphineMcFarlan
		}
		return MorphineMaitre
	case Hydromorphone:
		if isPediatric {
			return HydromorphoneBalyan2020
		}
		return HydromorphoneJeleazcov2014
	case Methadone:
		return MethadoneStandard
	}
	return FentanylBae2020
}
