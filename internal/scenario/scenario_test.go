package scenario

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkpd-sim/pkpd-sim/sim"
	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/patient"
)

func TestLoad_ExampleScenarios(t *testing.T) {
	// GIVEN the bundled post-op scenario
	s, err := Load("../../testdata/fentanyl_postop.yaml")
	require.NoError(t, err)

	// WHEN resolved
	r, err := s.Resolve()
	require.NoError(t, err)

	// THEN clock times become minutes from the start
	assert.Equal(t, catalog.Fentanyl, r.Drug)
	assert.Equal(t, catalog.FentanylBae2020, r.Model)
	assert.True(t, r.AutoModel)
	assert.Equal(t, "09:00", r.StartTime)
	assert.Equal(t, []dosing.Event{
		dosing.NewBolus(0, 100),
		dosing.NewInfusion(15, 50, 60),
		dosing.NewBolus(120, 50),
	}, r.Events)
	assert.Equal(t, 82.0, r.Profile.Weight)
	assert.Equal(t, sim.NewSimConfig(240, 1), r.Config)

	child, err := Load("../../testdata/hydromorphone_child.yaml")
	require.NoError(t, err)
	rc, err := child.Resolve()
	require.NoError(t, err)
	assert.Equal(t, catalog.HydromorphoneBalyan2020, rc.Model)
	assert.Equal(t, patient.AutoAdjust(6, patient.Female), rc.Profile)
	assert.Equal(t, 30.0, rc.Events[1].Onset())
}

func TestDecodeYAML_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader("drug: Fentanyl\nweight: 70\n"))
	assert.Error(t, err)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"drug":"Fentanyl","dose":[]}`))
	assert.Error(t, err)

	s, err := DecodeJSON(strings.NewReader(`{"drug":"Morphine","patient":{"age":40},"doses":[{"kind":"bolus","amount":5,"minute":0}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Morphine", s.Drug)
	require.Len(t, s.Doses, 1)
}

func TestResolve_Errors(t *testing.T) {
	minute := 5.0
	tests := []struct {
		name string
		s    Scenario
		want string
	}{
		{"unknown drug", Scenario{Drug: "aspirin"}, "unknown drug"},
		{"bad start", Scenario{Drug: "Fentanyl", StartTime: "25:00"}, "invalid start_time"},
		{"model of other drug", Scenario{Drug: "Fentanyl", Model: "Minto (Adult)"}, "unknown model"},
		{"bad dose kind", Scenario{Drug: "Fentanyl", Doses: []Dose{{Kind: "patch"}}}, "dose 1: unknown dose kind"},
		{"bad dose time", Scenario{Drug: "Fentanyl", Doses: []Dose{{Kind: "bolus", At: "9h"}}}, "invalid time"},
		{"both times", Scenario{Drug: "Fentanyl", Doses: []Dose{{Kind: "bolus", At: "09:00", Minute: &minute}}}, "either minute or at"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.s.Resolve()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestResolve_Defaults(t *testing.T) {
	r, err := Scenario{Drug: "Methadone", Patient: Patient{Age: 40}}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "00:00", r.StartTime)
	assert.Equal(t, sim.DefaultDuration, r.Config.Duration)
	assert.Equal(t, patient.AutoAdjust(40, patient.Male), r.Profile)
	assert.Empty(t, r.Events)
}

func TestResolve_ClockTimeBeforeStartIsNextDay(t *testing.T) {
	s := Scenario{
		Drug:      "Fentanyl",
		StartTime: "23:00",
		Doses:     []Dose{{Kind: "bolus", Amount: 50, At: "00:30"}},
	}
	r, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 90.0, r.Events[0].Onset())
}

func TestResolve_PinnedModel(t *testing.T) {
	r, err := Scenario{Drug: "fentanyl", Model: "shafer (adult)", Patient: Patient{Age: 8}}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, catalog.FentanylShafer, r.Model)
	assert.False(t, r.AutoModel)

	// the context keeps the pinned model although the patient is a child
	c := r.Context()
	assert.Equal(t, catalog.FentanylShafer, c.Model())
	assert.Equal(t, r.Result(), c.Result())
}

func TestFromContext_RoundTrip(t *testing.T) {
	// GIVEN a resolved scenario turned into a live context
	s, err := Load("../../testdata/fentanyl_postop.yaml")
	require.NoError(t, err)
	r, err := s.Resolve()
	require.NoError(t, err)
	c := r.Context()

	// WHEN saved and loaded again
	var buf bytes.Buffer
	require.NoError(t, FromContext(c, r.StartTime).Encode(&buf))
	again, err := DecodeYAML(&buf)
	require.NoError(t, err)
	r2, err := again.Resolve()
	require.NoError(t, err)

	// THEN the simulation is unchanged
	assert.Equal(t, r.Events, r2.Events)
	assert.Equal(t, c.Result().Series, r2.Context().Result().Series)
}
