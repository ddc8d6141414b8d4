// Package sim provides the pharmacokinetic/pharmacodynamic simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - compartment.go: rate constants, the 4-state linear system and its exact
//     zero-order-hold propagator
//   - simulator.go: Solver, which superposes per-event responses onto a
//     uniform time grid
//   - context.go: Recompute (pure) and Context (owns mutable inputs and
//     recomputes synchronously on every change)
//
// # Architecture
//
// Static tables and inputs live in sub-packages:
//   - sim/catalog/: drugs, models, reference parameters, therapeutic ranges
//   - sim/patient/: patient covariates and age-based model selection
//   - sim/dosing/: Bolus/Infusion events and the editable schedule
//   - sim/clock/: simulation minute <-> "HH:MM" conversion
//   - sim/tracker/: "now" reading against a series, driven by a periodic tick
//   - sim/report/: localized text and CSV rendering of results
//
// # Model
//
// Compartment 1 (central) receives every dose; compartments 2 and 3
// exchange with it; the effect site follows dCe/dt = ke0 (Cp - Ce) without
// returning mass. Doses are multiplied by catalog.ScaleFactor so all
// concentrations come out in ng/mL.
package sim
