package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/report"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logrus.Errorf("Failed to encode JSON response: %v", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, msg string) {
	respondWithJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter.TakeAvailable(1) < 1 {
			w.Header().Set("Retry-After", "1")
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(s.limiter.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// ModelInfo describes one catalog model.
type ModelInfo struct {
	Name         string               `json:"name"`
	Pediatric    bool                 `json:"pediatric"`
	Requirements []catalog.Covariate  `json:"requirements"`
	Reference    catalog.PKParameters `json:"reference"`
	Label        string               `json:"label"`
}

// DrugInfo is one catalog drug with everything a dosing form needs.
type DrugInfo struct {
	Name        string                   `json:"name"`
	Unit        catalog.DoseUnit         `json:"unit"`
	ScaleFactor float64                  `json:"scaleFactor"`
	Range       catalog.TherapeuticRange `json:"range"`
	Defaults    catalog.ClinicalDefaults `json:"defaults"`
	Models      []ModelInfo              `json:"models"`
}

// Catalog builds the /api/catalog payload.
func Catalog() []DrugInfo {
	var out []DrugInfo
	for _, d := range catalog.Drugs() {
		info := DrugInfo{
			Name:        d.String(),
			Unit:        catalog.Unit(d),
			ScaleFactor: catalog.ScaleFactor(d),
			Range:       catalog.Range(d),
			Defaults:    catalog.Defaults(d),
		}
		for _, m := range catalog.Models(d) {
			e, _ := catalog.Lookup(m)
			info.Models = append(info.Models, ModelInfo{
				Name:         m.String(),
				Pediatric:    m.Pediatric(),
				Requirements: catalog.GetModelRequirements(d, m).List(),
				Reference:    catalog.GetPKParameters(d, m, catalog.ReferenceWeight),
				Label:        e.Label,
			})
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, Catalog())
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	lang := s.cfg.Lang
	if q := r.URL.Query().Get("lang"); q != "" {
		lang = report.ParseLang(q)
	}
	respondWithJSON(w, http.StatusOK, report.UILabels(lang))
}

// SimulationResponse is the JSON form of a simulation result.
type SimulationResponse struct {
	Drug   string `json:"drug"`
	Model  string `json:"model"`
	Start  string `json:"startTime"`
	Result sim.Result
}

// MarshalJSON inlines the result fields next to the names.
func (s SimulationResponse) MarshalJSON() ([]byte, error) {
	type inline sim.Result
	return json.Marshal(struct {
		Drug  string `json:"drug"`
		Model string `json:"model"`
		Start string `json:"startTime"`
		inline
	}{s.Drug, s.Model, s.Start, inline(s.Result)})
}

func newSimulationResponse(r sim.Result, start string) SimulationResponse {
	return SimulationResponse{Drug: r.Drug.String(), Model: r.Model.String(), Start: start, Result: r}
}

func (s *Server) decodeScenario(w http.ResponseWriter, r *http.Request) (scenario.Resolved, bool) {
	sc, err := scenario.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return scenario.Resolved{}, false
	}
	res, err := sc.Resolve()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return scenario.Resolved{}, false
	}
	return res, true
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	res, ok := s.decodeScenario(w, r)
	if !ok {
		return
	}
	s.metrics.simulations.WithLabelValues(res.Drug.String()).Inc()
	respondWithJSON(w, http.StatusOK, newSimulationResponse(res.Result(), res.StartTime))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := s.live
	models := sim.CompareModels(c.Drug(), c.Profile(), c.Events(), c.Config())
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, models)
}

// LiveResponse is the live scenario: its inputs, doses and result.
type LiveResponse struct {
	Scenario   scenario.Scenario  `json:"scenario"`
	Doses      []dosing.Entry     `json:"doses"`
	Simulation SimulationResponse `json:"simulation"`
}

func (s *Server) liveResponse() LiveResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LiveResponse{
		Scenario:   scenario.FromContext(s.live, s.start),
		Doses:      s.live.Entries(),
		Simulation: newSimulationResponse(s.live.Result(), s.start),
	}
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.liveResponse())
}

func (s *Server) handlePutScenario(w http.ResponseWriter, r *http.Request) {
	res, ok := s.decodeScenario(w, r)
	if !ok {
		return
	}
	s.setLive(res)
	logrus.Infof("server: live scenario replaced (%s, %d doses)", res.Drug, len(res.Events))
	respondWithJSON(w, http.StatusOK, s.liveResponse())
}

func (s *Server) handleAddDose(w http.ResponseWriter, r *http.Request) {
	var d scenario.Dose
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&d); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse dose: %v", err))
		return
	}

	s.mu.Lock()
	single := scenario.Scenario{Drug: s.live.Drug().String(), StartTime: s.start, Doses: []scenario.Dose{d}}
	res, err := single.Resolve()
	if err != nil {
		s.mu.Unlock()
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := s.live.AddDose(res.Events[0])
	s.mu.Unlock()

	w.Header().Set("Location", "/api/scenario/doses/"+id)
	respondWithJSON(w, http.StatusCreated, s.liveResponse())
}

func (s *Server) handleRemoveDose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	ok := s.live.RemoveDose(id)
	s.mu.Unlock()
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("no dose with id %q", id))
		return
	}
	respondWithJSON(w, http.StatusOK, s.liveResponse())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result, entries, start := s.live.Result(), s.live.Entries(), s.start
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, result.Drug))
	if err := report.WriteXLSX(w, result, entries, start); err != nil {
		logrus.Errorf("server: xlsx export: %v", err)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	result, start := s.live.Result(), s.start
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := report.WriteCSV(w, result.Series, start); err != nil {
		logrus.Errorf("server: csv export: %v", err)
	}
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	reading := s.tracker.Last()
	if reading.Now.IsZero() || r.URL.Query().Has("refresh") {
		reading = s.tracker.Tick(time.Now())
	}
	respondWithJSON(w, http.StatusOK, reading)
}
