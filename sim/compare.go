package sim

import (
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/patient"
)

// ModelSeries is one model's result in a comparison.
type ModelSeries struct {
	Model  catalog.Model `json:"-"`
	Name   string        `json:"model"`
	Result Result        `json:"result"`
}

// CompareModels runs the same patient and schedule through every model of
// drug, in catalog order.
func CompareModels(drug catalog.Drug, profile patient.Profile, events []dosing.Event, cfg SimConfig) []ModelSeries {
	models := catalog.Models(drug)
	out := make([]ModelSeries, 0, len(models))
	for _, m := range models {
		out = append(out, ModelSeries{
			Model:  m,
			Name:   m.String(),
			Result: Recompute(drug, m, profile, events, cfg),
		})
	}
	return out
}
