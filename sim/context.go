package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
	"github.com/pkpd-sim/pkpd-sim/sim/dosing"
	"github.com/pkpd-sim/pkpd-sim/sim/patient"
)

// Result is everything derived from one set of simulation inputs.
type Result struct {
	Drug    catalog.Drug             `json:"-"`
	Model   catalog.Model            `json:"-"`
	Params  catalog.PKParameters     `json:"params"`
	Rates   RateConstants            `json:"rates"`
	Scale   float64                  `json:"scale_factor"`
	Config  SimConfig                `json:"config"`
	Range   catalog.TherapeuticRange `json:"range"`
	Series  []ConcentrationPoint     `json:"series"`
	Summary Summary                  `json:"summary"`
}

// Recompute derives parameters and the full series from scratch. It reads
// nothing but its arguments, so equal inputs give bit-identical results.
func Recompute(drug catalog.Drug, model catalog.Model, profile patient.Profile, events []dosing.Event, cfg SimConfig) Result {
	if model.Drug() != drug {
		model = profile.SelectModel(drug)
	}
	params := catalog.GetPKParameters(drug, model, profile.Weight)
	scale := catalog.ScaleFactor(drug)
	solver := NewSolver(params, scale, cfg)
	series := solver.Simulate(events)
	rng := catalog.Range(drug)
	return Result{
		Drug:    drug,
		Model:   model,
		Params:  params,
		Rates:   NewRateConstants(params),
		Scale:   scale,
		Config:  SimConfig{Duration: solver.Duration, Step: solver.Step},
		Range:   rng,
		Series:  series,
		Summary: Summarize(series, rng),
	}
}

// Context owns the user-mutable inputs of a simulation and the result
// computed from them. Every mutator recomputes synchronously before it
// returns, so Result never reflects a partial update.
//
// Context is not safe for concurrent use; callers serialize access.
type Context struct {
	drug      catalog.Drug
	model     catalog.Model
	autoModel bool
	profile   patient.Profile
	schedule  *dosing.Schedule
	cfg       SimConfig
	result    Result

	// OnRecompute, if set, receives every new result.
	OnRecompute func(Result)
}

// NewContext starts with an empty schedule and the best model for the
// profile. Model selection stays automatic until SetModel is called.
func NewContext(drug catalog.Drug, profile patient.Profile, cfg SimConfig) *Context {
	c := &Context{
		drug:      drug,
		model:     profile.SelectModel(drug),
		autoModel: true,
		profile:   profile,
		schedule:  dosing.NewSchedule(),
		cfg:       cfg.normalized(),
	}
	c.Recompute()
	return c
}

// Recompute rebuilds the result from the current inputs.
func (c *Context) Recompute() Result {
	c.result = Recompute(c.drug, c.model, c.profile, c.schedule.Events(), c.cfg)
	logrus.Debugf("sim: recomputed %s/%s, %d events, peak Ce %.3f",
		c.drug, c.model, c.schedule.Len(), c.result.Summary.PeakCe)
	if c.OnRecompute != nil {
		c.OnRecompute(c.result)
	}
	return c.result
}

func (c *Context) Result() Result           { return c.result }
func (c *Context) Drug() catalog.Drug       { return c.drug }
func (c *Context) Model() catalog.Model     { return c.model }
func (c *Context) Profile() patient.Profile { return c.profile }
func (c *Context) Config() SimConfig        { return c.cfg }
func (c *Context) Entries() []dosing.Entry  { return c.schedule.Entries() }
func (c *Context) Events() []dosing.Event   { return c.schedule.Events() }
func (c *Context) AutoModel() bool          { return c.autoModel }

// Requirements lists the covariates the current model uses.
func (c *Context) Requirements() catalog.Requirements {
	return catalog.GetModelRequirements(c.drug, c.model)
}

// SetDrug switches drug and picks that drug's best model for the profile.
func (c *Context) SetDrug(d catalog.Drug) Result {
	c.drug = d
	c.model = c.profile.SelectModel(d)
	c.autoModel = true
	return c.Recompute()
}

// SetModel pins a model. A model of another drug is replaced by the best
// model for the current drug.
func (c *Context) SetModel(m catalog.Model) Result {
	if m.Drug() != c.drug {
		logrus.Debugf("sim: model %q does not belong to %s", m, c.drug)
		m = c.profile.SelectModel(c.drug)
	}
	c.model = m
	c.autoModel = false
	return c.Recompute()
}

// SetAutoModel re-enables automatic model selection.
func (c *Context) SetAutoModel() Result {
	c.autoModel = true
	c.model = c.profile.SelectModel(c.drug)
	return c.Recompute()
}

// SetProfile replaces the patient. With automatic model selection the model
// follows the patient's age group.
func (c *Context) SetProfile(p patient.Profile) Result {
	c.profile = p.Normalize()
	if c.autoModel {
		c.model = c.profile.SelectModel(c.drug)
	}
	return c.Recompute()
}

// SetConfig changes the time grid.
func (c *Context) SetConfig(cfg SimConfig) Result {
	c.cfg = cfg.normalized()
	return c.Recompute()
}

// AddDose schedules ev and returns its ID.
func (c *Context) AddDose(ev dosing.Event) string {
	id := c.schedule.Add(ev)
	if id != "" {
		c.Recompute()
	}
	return id
}

// RemoveDose drops the event with id.
func (c *Context) RemoveDose(id string) bool {
	ok := c.schedule.Remove(id)
	if ok {
		c.Recompute()
	}
	return ok
}

// EditDose takes an event out of the schedule for editing.
func (c *Context) EditDose(id string) (dosing.Event, bool) {
	ev, ok := c.schedule.Edit(id)
	if ok {
		c.Recompute()
	}
	return ev, ok
}

// CommitDose puts the edited event back as ev.
func (c *Context) CommitDose(ev dosing.Event) string {
	id := c.schedule.Commit(ev)
	if id != "" {
		c.Recompute()
	}
	return id
}

// CancelEdit restores the event being edited.
func (c *Context) CancelEdit() {
	if _, _, editing := c.schedule.Editing(); editing {
		c.schedule.Cancel()
		c.Recompute()
	}
}

// ClearDoses empties the schedule.
func (c *Context) ClearDoses() Result {
	c.schedule.Clear()
	return c.Recompute()
}
