package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkpd-sim/pkpd-sim/internal/scenario"
	"github.com/pkpd-sim/pkpd-sim/sim/report"
)

func ptr(v float64) *float64 { return &v }

func TestParseDose(t *testing.T) {
	tests := []struct {
		spec    string
		want    scenario.Dose
		wantErr bool
	}{
		{spec: "bolus:100@09:00", want: scenario.Dose{Kind: "bolus", Amount: 100, At: "09:00"}},
		{spec: "bolus:5@30", want: scenario.Dose{Kind: "bolus", Amount: 5, Minute: ptr(30)}},
		{spec: "Bolus:2", want: scenario.Dose{Kind: "bolus", Amount: 2}},
		{spec: "infusion:50@09:15/60", want: scenario.Dose{Kind: "infusion", Rate: 50, Duration: 60, At: "09:15"}},
		{spec: "infusion:0.5@10/120", want: scenario.Dose{Kind: "infusion", Rate: 0.5, Duration: 120, Minute: ptr(10)}},
		{spec: "bolus100", wantErr: true},
		{spec: "bolus:abc@0", wantErr: true},
		{spec: "bolus:1@soon", wantErr: true},
		{spec: "infusion:50@09:15", wantErr: true},
		{spec: "infusion:50@0/long", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseDose(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartNow_FillsOnlyEmptyStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 14, 7, 0, 0, time.Local)

	// GIVEN a scenario without a start time
	s := scenario.Scenario{}
	// WHEN startNow runs
	startNow(&s, now)
	// THEN the current clock time is used
	assert.Equal(t, "14:07", s.StartTime)

	// GIVEN an explicit start time
	s = scenario.Scenario{StartTime: "08:00"}
	startNow(&s, now)
	// THEN it is kept
	assert.Equal(t, "08:00", s.StartTime)
}

func resolveTestScenario(t *testing.T) scenario.Resolved {
	t.Helper()
	s, err := scenario.Load("../testdata/fentanyl_postop.yaml")
	require.NoError(t, err)
	res, err := s.Resolve()
	require.NoError(t, err)
	return res
}

func TestRender_Formats(t *testing.T) {
	res := resolveTestScenario(t)
	base := report.Options{Lang: report.ParseLang("en"), StartTime: res.StartTime, Every: 60}

	t.Run("text", func(t *testing.T) {
		// GIVEN text output
		var buf bytes.Buffer
		// WHEN the run is rendered
		require.NoError(t, render(&buf, res, outputOptions{Format: "text", Report: base}))
		// THEN the report and the metrics block are both printed
		out := buf.String()
		assert.Contains(t, out, "Opioid PK/PD Simulation")
		assert.Contains(t, out, "09:00")
		assert.Contains(t, out, "=== Simulation Metrics ===")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, render(&buf, res, outputOptions{Format: "json", Report: base}))

		var got struct {
			Drug      string           `json:"drug"`
			Model     string           `json:"model"`
			StartTime string           `json:"start_time"`
			Doses     []map[string]any `json:"doses"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "Fentanyl", got.Drug)
		assert.NotEmpty(t, got.Model)
		assert.Equal(t, "09:00", got.StartTime)
		assert.Len(t, got.Doses, 3)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, render(&buf, res, outputOptions{Format: "csv", Report: base}))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		// THEN one header and one row per minute from 0 to 240
		assert.Equal(t, "time_min,clock,cp_ng_ml,ce_ng_ml", lines[0])
		assert.Len(t, lines, 1+241)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, render(&buf, res, outputOptions{Format: "xlsx", Report: base}))
		// THEN the output is a zip container
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, render(&buf, res, outputOptions{Format: "pdf", Report: base}))
	})
}

func TestRender_CompareAll(t *testing.T) {
	res := resolveTestScenario(t)
	opts := outputOptions{CompareAll: true, Report: report.Options{Lang: report.ParseLang("en")}}

	// GIVEN a fentanyl scenario compared across every model
	var buf bytes.Buffer
	opts.Format = "json"
	require.NoError(t, render(&buf, res, opts))

	// THEN each fentanyl model appears once
	var models []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &models))
	assert.Len(t, models, 3)

	buf.Reset()
	opts.Format = "text"
	require.NoError(t, render(&buf, res, opts))
	assert.Contains(t, buf.String(), "Model comparison")

	// WHEN a tabular format is requested
	opts.Format = "csv"
	// THEN it is rejected
	assert.Error(t, render(&buf, res, opts))
}

func TestWriteCatalog(t *testing.T) {
	// GIVEN the table form
	var buf bytes.Buffer
	require.NoError(t, writeCatalog(&buf, false))
	out := buf.String()
	// THEN every drug and a pediatric model are listed
	for _, name := range []string{"Fentanyl", "Remifentanil", "Morphine", "Hydromorphone", "Methadone", "Ginsberg (Pediatric)"} {
		assert.Contains(t, out, name)
	}

	// GIVEN the JSON form
	buf.Reset()
	require.NoError(t, writeCatalog(&buf, true))
	var drugs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &drugs))
	assert.Len(t, drugs, 5)
}

func TestNewTracker_PrintsReadings(t *testing.T) {
	res := resolveTestScenario(t)

	// GIVEN a tracker for the 09:00 scenario
	var buf bytes.Buffer
	tr := newTracker(&buf, res, report.ParseLang("en"))

	// WHEN the wall clock reads 09:30
	now := time.Now()
	at := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, now.Location())
	r := tr.Tick(at)

	// THEN the reading is active at minute 30 and printed
	assert.True(t, r.Active)
	assert.Equal(t, 30, r.SimMinutes)
	assert.Contains(t, buf.String(), "sim minute 30")
}

func TestWriteOutput_File(t *testing.T) {
	res := resolveTestScenario(t)
	opts := outputOptions{Format: "csv", Report: report.Options{Lang: report.ParseLang("en")}}
	dir := t.TempDir()

	// GIVEN an output path
	path := filepath.Join(dir, "series.csv")
	var stdout bytes.Buffer

	// WHEN the run is written
	require.NoError(t, writeOutput(&stdout, path, res, opts))

	// THEN the file is complete and stdout is untouched
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "time_min,clock,cp_ng_ml,ce_ng_ml\n"))
	assert.Empty(t, stdout.String())

	// WHEN the file cannot be created
	err = writeOutput(&stdout, filepath.Join(dir, "missing", "series.csv"), res, opts)
	// THEN the error is returned instead of exiting
	assert.Error(t, err)

	// WHEN rendering fails
	opts.Format = "pdf"
	assert.Error(t, writeOutput(&stdout, filepath.Join(dir, "bad.out"), res, opts))
}

func TestSaveScenario_RoundTrips(t *testing.T) {
	res := resolveTestScenario(t)
	path := filepath.Join(t.TempDir(), "saved.yaml")

	// GIVEN a saved scenario
	require.NoError(t, saveScenario(path, res))

	// WHEN it is loaded back
	s, err := scenario.Load(path)
	require.NoError(t, err)
	again, err := s.Resolve()
	require.NoError(t, err)

	// THEN it describes the same run
	assert.Equal(t, res.Drug, again.Drug)
	assert.Equal(t, res.StartTime, again.StartTime)
	assert.Len(t, again.Events, len(res.Events))

	// GIVEN an unwritable path
	assert.Error(t, saveScenario(filepath.Join(t.TempDir(), "missing", "x.yaml"), res))
}
