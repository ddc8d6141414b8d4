package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim/tracker"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := scenario.Scenario{
		Drug:      "Fentanyl",
		Patient:   scenario.Patient{Weight: 70, Age: 40, Height: 170, Sex: "male"},
		Duration:  120,
		StartTime: "09:00",
		Doses:     []scenario.Dose{{Kind: "bolus", Amount: 100, At: "09:00"}},
	}.Resolve()
	require.NoError(t, err)
	return New(cfg, s)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var drugs []DrugInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drugs))
	require.Len(t, drugs, 5)
	assert.Equal(t, "Fentanyl", drugs[0].Name)
	assert.Len(t, drugs[0].Models, 3)
	assert.Equal(t, "Methadone", drugs[4].Name)
	assert.EqualValues(t, "mg", drugs[4].Unit)
	assert.Equal(t, 1000.0, drugs[4].ScaleFactor)
	assert.Equal(t, 21.5, drugs[4].Models[0].Reference.V1)
}

func TestLabels(t *testing.T) {
	srv := newTestServer(t, Config{Lang: language.Japanese})
	out := decode(t, do(t, srv.Handler(), http.MethodGet, "/api/labels", ""))
	assert.Equal(t, "現在", out["now"])

	out = decode(t, do(t, srv.Handler(), http.MethodGet, "/api/labels?lang=en", ""))
	assert.Equal(t, "Now", out["now"])
}

func TestSimulate(t *testing.T) {
	srv := newTestServer(t, Config{})
	body := `{"drug":"Methadone","patient":{"weight":70,"age":40},"duration":60,
		"doses":[{"kind":"bolus","amount":5,"minute":0}]}`
	rec := do(t, srv.Handler(), http.MethodPost, "/api/simulate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "Methadone", out["drug"])
	assert.Equal(t, "Standard (Adult)", out["model"])
	series := out["series"].([]any)
	require.Len(t, series, 61)
	first := series[0].(map[string]any)
	assert.InDelta(t, 5000/21.5, first["cp"].(float64), 1e-9)
	assert.Equal(t, 0.0, first["ce"])
	assert.Contains(t, out, "summary")
	assert.Contains(t, out, "params")
}

func TestSimulate_BadRequests(t *testing.T) {
	srv := newTestServer(t, Config{})
	tests := []struct {
		name string
		body string
	}{
		{"not json", `drug: Fentanyl`},
		{"unknown field", `{"drug":"Fentanyl","weight":70}`},
		{"unknown drug", `{"drug":"Aspirin"}`},
		{"bad dose kind", `{"drug":"Fentanyl","doses":[{"kind":"patch"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodPost, "/api/simulate", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
		})
	}
}

func TestSimulate_RateLimited(t *testing.T) {
	srv := newTestServer(t, Config{SimulateRate: 0.001, SimulateBurst: 1})
	body := `{"drug":"Fentanyl"}`
	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodPost, "/api/simulate", body).Code)
	rec := do(t, srv.Handler(), http.MethodPost, "/api/simulate", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestLiveScenario_AddAndRemoveDose(t *testing.T) {
	// GIVEN a live scenario with one bolus
	srv := newTestServer(t, Config{})
	h := srv.Handler()
	rec := do(t, h, http.MethodGet, "/api/scenario", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["doses"].([]any), 1)

	// WHEN an infusion is added by clock time
	rec = do(t, h, http.MethodPost, "/api/scenario/doses", `{"kind":"infusion","rate":50,"duration":30,"at":"09:30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/api/scenario/doses/"))

	// THEN it is scheduled 30 minutes after the start
	doses := decode(t, rec)["doses"].([]any)
	require.Len(t, doses, 2)
	assert.Equal(t, 30.0, doses[1].(map[string]any)["startTime"])

	// WHEN it is removed again
	rec = do(t, h, http.MethodDelete, location, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["doses"].([]any), 1)

	// THEN removing twice is a 404
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, location, "").Code)
}

func TestLiveScenario_BadDose(t *testing.T) {
	srv := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodPost, "/api/scenario/doses", `{"kind":"bolus","at":"noon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv.Handler(), http.MethodPost, "/api/scenario/doses", `{"kind":"bolus","color":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiveScenario_ReplaceMovesTracker(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler()

	body := `{"drug":"Morphine","patient":{"age":40},"duration":60,"start_time":"14:00",
		"doses":[{"kind":"bolus","amount":5,"at":"14:00"}]}`
	rec := do(t, h, http.MethodPut, "/api/scenario", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	simulation := decode(t, rec)["simulation"].(map[string]any)
	assert.Equal(t, "Morphine", simulation["drug"])
	assert.Equal(t, "14:00", simulation["startTime"])

	reading := srv.Tracker().Tick(time.Date(2026, 5, 1, 14, 20, 0, 0, time.Local))
	assert.True(t, reading.Active)
	assert.Equal(t, 20, reading.SimMinutes)
	assert.Greater(t, reading.Point.Cp, 0.0)
}

func TestNow(t *testing.T) {
	srv := newTestServer(t, Config{})
	srv.Tracker().Tick(time.Date(2026, 5, 1, 9, 30, 0, 0, time.Local))

	rec := do(t, srv.Handler(), http.MethodGet, "/api/now", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reading tracker.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reading))
	assert.True(t, reading.Active)
	assert.Equal(t, 30, reading.SimMinutes)
	assert.Equal(t, 30.0, reading.Point.Time)
	assert.Equal(t, "09:00", reading.Start)
}

func TestCompare(t *testing.T) {
	srv := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodGet, "/api/compare", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var models []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 3)
	assert.Equal(t, "Bae (2020) Adult", models[0]["model"])
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/scenario/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 122)
	assert.True(t, strings.HasPrefix(lines[1], "0,09:00,"))

	rec = do(t, srv.Handler(), http.MethodGet, "/api/scenario/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Fentanyl.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Series")
	require.NoError(t, err)
	assert.Len(t, rows, 122)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler()
	do(t, h, http.MethodPost, "/api/simulate", `{"drug":"Remifentanil"}`)
	do(t, h, http.MethodPost, "/api/scenario/doses", `{"kind":"bolus","amount":10,"minute":5}`)
	srv.Tracker().Tick(time.Date(2026, 5, 1, 9, 10, 0, 0, time.Local))

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pkpd_simulations_total{drug="Remifentanil"} 1`)
	assert.Contains(t, body, "pkpd_live_recomputations_total 1")
	assert.Contains(t, body, "pkpd_tracker_active 1")
	assert.Contains(t, body, `http_request_total{method="POST",path="/api/simulate",status="200"} 1`)
}

func TestStartAndShutdown(t *testing.T) {
	srv := newTestServer(t, Config{Addr: "127.0.0.1:0", TickPeriod: time.Hour})
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool { return !srv.Tracker().Last().Now.IsZero() }, time.Second, 5*time.Millisecond)
	require.NoError(t, srv.Shutdown(t.Context()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
