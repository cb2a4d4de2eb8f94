package goals

import (
	"errors"
	"math"
	"testing"
	"time"

	"matchcast/engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoissonPMF(t *testing.T) {
	assert.InDelta(t, math.Exp(-1.5), PoissonPMF(1.5, 0), 1e-12)
	assert.InDelta(t, 1.5*math.Exp(-1.5), PoissonPMF(1.5, 1), 1e-12)
	assert.InDelta(t, 1.5*1.5/2*math.Exp(-1.5), PoissonPMF(1.5, 2), 1e-12)
	assert.Equal(t, 0.0, PoissonPMF(1.5, -1))
	assert.Equal(t, 1.0, PoissonPMF(0, 0))
	assert.Equal(t, 0.0, PoissonPMF(0, 3))
}

func TestPoissonCDF(t *testing.T) {
	assert.InDelta(t, PoissonPMF(2, 0)+PoissonPMF(2, 1), PoissonCDF(2, 1), 1e-12)
	assert.Equal(t, 0.0, PoissonCDF(2, -1))
	assert.InDelta(t, 1.0, PoissonCDF(2, 60), 1e-9)
}

func TestPoisson_ExpectedGoals(t *testing.T) {
	m := NewPoisson(DefaultParams())
	lh, la := m.ExpectedGoals(2.1, 1.3, 1.8, 1.5)
	assert.InDelta(t, 2.1*1.5/1.375*1.15, lh, 1e-9)
	assert.InDelta(t, 1.8*1.3/1.375, la, 1e-9)

	lh, la = m.ExpectedGoals(0, 10, 10, 0)
	assert.Equal(t, 0.3, lh)
	assert.Equal(t, 5.0, la)
}

func TestPoisson_PredictScenario(t *testing.T) {
	m := NewPoisson(DefaultParams())
	d, err := m.Predict(2.1, 1.3, 1.8, 1.5)
	require.NoError(t, err)

	assert.Greater(t, d.ExpectedHomeGoals, d.ExpectedAwayGoals)
	h, dr, a := d.OutcomeProbabilities()
	assert.Greater(t, h, a)
	assert.InDelta(t, 1.0, h+dr+a, 1e-9)
	assert.InDelta(t, 1.0, d.Total(), 1e-9)
}

func TestPoisson_PredictRejectsNegativeRates(t *testing.T) {
	m := NewPoisson(DefaultParams())
	_, err := m.Predict(-1, 1, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestNewDistribution_SumsToOne(t *testing.T) {
	for _, lh := range []float64{0.3, 1.0, 2.5, 4.0, 5.0} {
		for _, la := range []float64{0.3, 1.2, 3.0, 5.0} {
			d := NewDistribution(lh, la, nil)
			assert.InDelta(t, 1.0, d.Total(), 1e-6, "lh=%v la=%v", lh, la)
			for h := 0; h <= models.MaxGoals; h++ {
				for a := 0; a <= models.MaxGoals; a++ {
					assert.GreaterOrEqual(t, d.Cells[h][a], 0.0)
				}
			}
		}
	}
}

func TestDixonColes_ZeroRhoMatchesPoisson(t *testing.T) {
	params := DefaultDixonColesParams()
	params.Rho = 0
	dc := NewDixonColes(params)

	plain := NewDistribution(1.7, 1.1, nil)
	corrected := dc.Distribution(1.7, 1.1)

	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			assert.InDelta(t, plain.Cells[h][a], corrected.Cells[h][a], 1e-12)
		}
	}
}

func TestDixonColes_NegativeRhoRaisesDraws(t *testing.T) {
	dc := NewDixonColes(DefaultDixonColesParams())
	plain := NewDistribution(1.3, 1.1, nil)
	corrected := dc.Distribution(1.3, 1.1)

	assert.Greater(t, corrected.Cell(0, 0), plain.Cell(0, 0))
	assert.Greater(t, corrected.Cell(1, 1), plain.Cell(1, 1))
	assert.Less(t, corrected.Cell(1, 0), plain.Cell(1, 0))
	assert.InDelta(t, 1.0, corrected.Total(), 1e-9)
}

func TestDixonColes_TauClamped(t *testing.T) {
	params := DefaultDixonColesParams()
	params.Rho = -0.5
	dc := NewDixonColes(params)
	assert.Equal(t, 1.5, dc.Tau(0, 0, 4, 4))
	assert.Equal(t, 0.5, dc.Tau(0, 1, 4, 4))
	assert.Equal(t, 1.0, dc.Tau(2, 3, 4, 4))
}

func TestDixonColes_ExpectedGoals(t *testing.T) {
	dc := NewDixonColes(DefaultDixonColesParams())

	lh, la := dc.ExpectedGoals(2.1, 1.3, 1.8, 1.5, 0)
	assert.InDelta(t, 1.375*1.15, lh, 1e-9)
	assert.InDelta(t, 1.375, la, 1e-9)

	lh, _ = dc.ExpectedGoals(9, 1, 1, 9, 1)
	assert.Equal(t, 4.0, lh)

	full, _ := dc.ExpectedGoals(2.1, 1.3, 1.8, 1.5, 1)
	half, _ := dc.ExpectedGoals(2.1, 1.3, 1.8, 1.5, 0.5)
	assert.Greater(t, full, half)
}

func TestDixonColes_TimeWeight(t *testing.T) {
	dc := NewDixonColes(DefaultDixonColesParams())
	assert.Equal(t, 1.0, dc.TimeWeight(0))
	assert.InDelta(t, math.Exp(-0.0065*100), dc.TimeWeight(100), 1e-12)
	assert.Less(t, dc.TimeWeight(365), dc.TimeWeight(30))
}

func TestOverUnderProbability(t *testing.T) {
	over, under := OverUnderProbability(1.6, 1.2, 2.5)
	assert.InDelta(t, 1.0, over+under, 1e-12)
	assert.InDelta(t, 1-PoissonCDF(2.8, 2), over, 1e-12)

	d := NewDistribution(1.6, 1.2, nil)
	tableOver := 0.0
	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			if h+a > 2 {
				tableOver += d.Cells[h][a]
			}
		}
	}
	assert.InDelta(t, tableOver, over, 1e-3)

	over, under = OverUnderProbability(1.6, 1.2, 3)
	assert.InDelta(t, 1.0, over+under, 1e-12)
}

func TestBTTSProbability(t *testing.T) {
	yes, no := BTTSProbability(1.4, 1.1)
	assert.InDelta(t, (1-math.Exp(-1.4))*(1-math.Exp(-1.1)), yes, 1e-12)
	assert.InDelta(t, 1.0, yes+no, 1e-12)
}

func TestWeightedRates(t *testing.T) {
	dc := NewDixonColes(DefaultDixonColesParams())
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	history := []HistoricalMatch{
		{PlayedAt: asOf.AddDate(0, 0, -7), GoalsFor: 3, GoalsAgainst: 0},
		{PlayedAt: asOf.AddDate(0, 0, -300), GoalsFor: 0, GoalsAgainst: 3},
		{PlayedAt: asOf.AddDate(0, 0, 7), GoalsFor: 9, GoalsAgainst: 9},
	}

	r, err := dc.WeightedRates(history, asOf)
	require.NoError(t, err)
	assert.Greater(t, r.Attack, 1.5)
	assert.Less(t, r.Defense, 1.5)
	assert.InDelta(t, 3.0, r.Attack+r.Defense, 1e-9)

	_, err = dc.WeightedRates(history[2:], asOf)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = dc.WeightedRates([]HistoricalMatch{{PlayedAt: asOf, GoalsFor: -1}}, asOf)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
	require.NoError(t, DefaultDixonColesParams().Validate())

	p := DefaultParams()
	p.LeagueAverageGoals = 0
	assert.Error(t, p.Validate())

	dc := DefaultDixonColesParams()
	dc.TauMax = 0.1
	assert.Error(t, dc.Validate())
}
