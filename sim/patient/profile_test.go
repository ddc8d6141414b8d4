package patient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkpd-sim/pkpd-sim/sim/catalog"
)

func TestNew_ClampsCovariates(t *testing.T) {
	tests := []struct {
		name                string
		weight, age, height float64
		wantW, wantA, wantH float64
	}{
		{"in range", 70, 40, 170, 70, 40, 170},
		{"zero weight", 0, 40, 170, MinWeight, 40, 170},
		{"negative everything", -1, -1, -1, MinWeight, MinAge, MinHeight},
		{"too large", 1000, 500, 400, MaxWeight, MaxAge, MaxHeight},
		{"nan", math.NaN(), math.NaN(), math.NaN(), MinWeight, MinAge, MinHeight},
		{"inf", math.Inf(1), math.Inf(1), math.Inf(-1), MaxWeight, MaxAge, MinHeight},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.weight, tc.age, tc.height, Male)
			assert.Equal(t, tc.wantW, p.Weight)
			assert.Equal(t, tc.wantA, p.Age)
			assert.Equal(t, tc.wantH, p.Height)
		})
	}
}

func TestNew_UnknownSexIsMale(t *testing.T) {
	assert.Equal(t, Male, New(70, 40, 170, Sex("x")).Sex)
	assert.Equal(t, Female, ParseSex("F"))
	assert.Equal(t, Male, ParseSex(""))
}

func TestIsPediatric(t *testing.T) {
	assert.True(t, New(20, 5, 110, Male).IsPediatric())
	assert.True(t, New(50, 17.9, 160, Male).IsPediatric())
	assert.False(t, New(60, 18, 165, Female).IsPediatric())
}

func TestSelectModel_FollowsAgeGroup(t *testing.T) {
	child := New(20, 6, 115, Male)
	adult := Default()
	assert.Equal(t, catalog.MorphineMcFarlan, child.SelectModel(catalog.Morphine))
	assert.Equal(t, catalog.MorphineMaitre, adult.SelectModel(catalog.Morphine))
	assert.Equal(t, catalog.MethadoneStandard, child.SelectModel(catalog.Methadone))
}

func TestLeanBodyMass(t *testing.T) {
	m := New(70, 40, 170, Male)
	want := 1.1*70 - 128*(70.0/170)*(70.0/170)
	assert.InDelta(t, want, m.LeanBodyMass(), 1e-9)

	f := New(60, 40, 160, Female)
	want = 1.07*60 - 148*(60.0/160)*(60.0/160)
	assert.InDelta(t, want, f.LeanBodyMass(), 1e-9)

	// extreme weight/height ratio would go negative
	assert.Equal(t, MinWeight, New(300, 40, 30, Male).LeanBodyMass())
}

func TestAutoAdjust(t *testing.T) {
	infant := AutoAdjust(0, Male)
	assert.InDelta(t, 3.5, infant.Weight, 1e-9)
	assert.True(t, infant.IsPediatric())

	five := AutoAdjust(5, Female)
	assert.InDelta(t, 18, five.Weight, 1e-9)
	assert.InDelta(t, 107, five.Height, 1e-9)

	teen := AutoAdjust(17, Male)
	assert.LessOrEqual(t, teen.Weight, 70.0)
	assert.LessOrEqual(t, teen.Height, 170.0)

	adult := AutoAdjust(45, Female)
	assert.Equal(t, 60.0, adult.Weight)
	assert.Equal(t, 158.0, adult.Height)
	assert.False(t, adult.IsPediatric())
}

func TestAutoAdjust_MonotoneThroughChildhood(t *testing.T) {
	prev := AutoAdjust(0, Male)
	for age := 1.0; age < PediatricAgeLimit; age++ {
		cur := AutoAdjust(age, Male)
		assert.GreaterOrEqual(t, cur.Weight, prev.Weight, "weight at %v", age)
		assert.GreaterOrEqual(t, cur.Height, prev.Height, "height at %v", age)
		prev = cur
	}
}

func TestMissing(t *testing.T) {
	req := catalog.GetModelRequirements(catalog.Morphine, catalog.MorphineMaitre)
	assert.Empty(t, Default().Missing(req))

	light := New(0, 40, 170, Male)
	assert.Equal(t, []catalog.Covariate{catalog.CovariateWeight}, light.Missing(req))

	assert.Empty(t, light.Missing(catalog.GetModelRequirements(catalog.Fentanyl, catalog.FentanylShafer)))
}
