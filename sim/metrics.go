// Summarizes a concentration series against a drug's therapeutic range.

package sim

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
)

// Summary aggregates statistics about one concentration series for final
// reporting.
type Summary struct {
	PeakCp     float64 `json:"peak_cp"`      // ng/mL
	PeakCpTime float64 `json:"peak_cp_time"` // minutes
	PeakCe     float64 `json:"peak_ce"`      // ng/mL
	PeakCeTime float64 `json:"peak_ce_time"` // minutes
	FinalCp    float64 `json:"final_cp"`     // ng/mL at the last sample
	FinalCe    float64 `json:"final_ce"`     // ng/mL at the last sample
	AUCCp      float64 `json:"auc_cp"`       // trapezoid area, ng·min/mL

	MinutesInRange float64 `json:"minutes_ce_in_analgesic_range"`
	MinutesAtRisk  float64 `json:"minutes_ce_above_respiratory_risk"`

	// OnsetTime is the first time Ce reaches AnalgesiaMin; -1 if never.
	OnsetTime float64 `json:"onset_time"`
}

// Summarize walks the series once. Time-in-range counts the sample
// intervals whose left sample lies inside the band.
func Summarize(series []ConcentrationPoint, r catalog.TherapeuticRange) Summary {
	s := Summary{OnsetTime: -1}
	for i, p := range series {
		if p.Cp > s.PeakCp {
			s.PeakCp, s.PeakCpTime = p.Cp, p.Time
		}
		if p.Ce > s.PeakCe {
			s.PeakCe, s.PeakCeTime = p.Ce, p.Time
		}
		if s.OnsetTime < 0 && r.AnalgesiaMin > 0 && p.Ce >= r.AnalgesiaMin {
			s.OnsetTime = p.Time
		}
		if i == 0 {
			continue
		}
		prev := series[i-1]
		dt := p.Time - prev.Time
		s.AUCCp += dt * (prev.Cp + p.Cp) / 2
		if prev.Ce >= r.AnalgesiaMin && prev.Ce <= r.AnalgesiaMax {
			s.MinutesInRange += dt
		}
		if r.RespiratoryRisk > 0 && prev.Ce > r.RespiratoryRisk {
			s.MinutesAtRisk += dt
		}
	}
	if n := len(series); n > 0 {
		s.FinalCp, s.FinalCe = series[n-1].Cp, series[n-1].Ce
	}
	return s
}

// Print writes the summary as a header followed by indented JSON.
func (s Summary) Print(w io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling summary: %w", err)
	}
	if _, err := fmt.Fprintln(w, "=== Simulation Metrics ==="); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
