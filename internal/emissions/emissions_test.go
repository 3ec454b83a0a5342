package emissions

import (
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func testFactors() Factors {
	return Factors{
		Scope1: {"BF": 1.2, "coking_coal": 0.5},
		Scope2: {"electricity": 0.4},
		Scope3: {"iron_ore": 0.02},
	}
}

func TestPerUnit(t *testing.T) {
	consumption := map[string]float64{"coking_coal": 0.8, "electricity": 0.1, "iron_ore": 1.5}
	e := PerUnit("BF", consumption, testFactors(), []Boundary{Scope1, Scope2})

	assert.Assert(t, math.Abs(e.ByBoundary[Scope1]-1.6) < 1e-9)
	assert.Assert(t, math.Abs(e.ByBoundary[Scope2]-0.04) < 1e-9)
	_, hasScope3 := e.ByBoundary[Scope3]
	assert.Assert(t, !hasScope3)
	assert.Assert(t, math.Abs(e.Total-1.64) < 1e-9)
}

func TestChargeableNeverNegative(t *testing.T) {
	e := Emissions{ByBoundary: map[Boundary]float64{Scope1: 1.0, Scope2: 0.5}}
	assert.Equal(t, Chargeable(e, []Boundary{Scope1}, 0.25), 0.75)
	assert.Equal(t, Chargeable(e, []Boundary{Scope1, Scope2}, 0), 1.5)
	assert.Equal(t, Chargeable(e, []Boundary{Scope1}, 5), 0.0)
}

func TestCarbonCostSeriesCarriesPriceForward(t *testing.T) {
	prices := CarbonPrices{"DEU": {2025: 80, 2027: 100}}
	got, err := CarbonCostSeries(2, prices, "DEU", 2024, 5)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []float64{0, 160, 160, 200, 200})
}

func TestPriceAtBeforeFirstEntryIsZero(t *testing.T) {
	prices := CarbonPrices{"DEU": {2030: 120}}
	v, err := prices.PriceAt("DEU", 2029)
	assert.NilError(t, err)
	assert.Equal(t, v, 0.0)
	v, err = prices.PriceAt("DEU", 2031)
	assert.NilError(t, err)
	assert.Equal(t, v, 120.0)
}

func TestCarbonCostSeriesFallsBackToAnyCountry(t *testing.T) {
	prices := CarbonPrices{AnyCountry: {2025: 50}}
	got, err := CarbonCostSeries(1, prices, "BRA", 2025, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, []float64{50, 50})
}

func TestCarbonCostSeriesMissingCountry(t *testing.T) {
	_, err := CarbonCostSeries(1, CarbonPrices{"DEU": {2025: 50}}, "USA", 2025, 2)
	assert.Assert(t, errors.Is(err, ErrNoCarbonPrice))
	assert.ErrorContains(t, err, `"USA"`)
}
