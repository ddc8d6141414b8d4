package catalog

// Covariate names a patient field a model may need.
type Covariate string

const (
	CovariateWeight Covariate = "weight"
	CovariateAge    Covariate = "age"
	CovariateHeight Covariate = "height"
	CovariateSex    Covariate = "sex"
)

// Requirements is the set of covariates a model uses.
type Requirements map[Covariate]bool

// Has reports whether c is required.
func (r Requirements) Has(c Covariate) bool {
	return r[c]
}

// List returns the required covariates in a fixed order.
func (r Requirements) List() []Covariate {
	var out []Covariate
	for _, c := range []Covariate{CovariateWeight, CovariateAge, CovariateHeight, CovariateSex} {
		if r[c] {
			out = append(out, c)
		}
	}
	return out
}

// GetModelRequirements reports which patient fields drive the (drug, model)
// parameter set. Fentanyl/Shafer is a fixed adult set with no covariates;
// pediatric models also need the age used to pick them.
func GetModelRequirements(drug Drug, model Model) Requirements {
	if model.Drug() != drug {
		model = GetBestModel(drug, false)
	}
	if model == FentanylShafer {
		return Requirements{}
	}
	req := Requirements{CovariateWeight: true}
	if model.Pediatric() {
		req[CovariateAge] = true
	}
	return req
}
