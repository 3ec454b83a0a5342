package data

import (
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenario.yaml")
	assert.NilError(t, err)
	assert.Equal(t, s.Name, "two-country-test")
	assert.Equal(t, len(s.Assets), 3)

	// Keys are normalized on load.
	bf := s.Inputs.AverageBOMs[model.TechBF].BOM
	assert.Check(t, cmp.Contains(bf.Materials, model.Key("iron_ore")))
	assert.Check(t, cmp.Contains(bf.Materials, model.Key("coking_coal")))

	price, err := s.Inputs.CarbonPriceAt("DE", 2027)
	assert.NilError(t, err)
	assert.Equal(t, price, 50.0)
}

func TestBuildFleet(t *testing.T) {
	s, err := LoadScenario("testdata/scenario.yaml")
	assert.NilError(t, err)
	fleet, err := s.BuildFleet(2025, AssetDefaults{Cycle: 20, EquityShare: 0.3})
	assert.NilError(t, err)

	owners := fleet.Owners()
	assert.Equal(t, len(owners), 2)
	assert.Equal(t, owners[0].Location, "DE")
	assert.Equal(t, owners[0].Balance.InexactFloat64(), 5.0e8)
	assert.Equal(t, len(owners[0].Assets), 2)

	var bf, bof, eaf *model.Asset
	for _, a := range fleet.Assets() {
		switch a.Technology.Kind {
		case model.TechBF:
			bf = a
		case model.TechBOF:
			bof = a
		case model.TechEAF:
			eaf = a
		}
	}
	assert.Assert(t, bf != nil && bof != nil && eaf != nil)

	assert.Equal(t, bf.Status, model.StatusOperating)
	assert.Equal(t, bf.Lifetime.Remaining(), 10)
	assert.Equal(t, bf.Utilization, 0.8)
	assert.Equal(t, bf.EquityShare, 0.3)
	assert.Equal(t, bf.Technology.Capex, 300.0)
	assert.Equal(t, bof.RetirementYear, 2040)

	assert.Equal(t, eaf.Name, "FR-EAF")
	assert.Equal(t, eaf.Utilization, 0.7)
	assert.Equal(t, eaf.Lifetime.Remaining(), 20)
	assert.Equal(t, eaf.CarbonCapture, 0.01)

	// Costs are computable for the opening year.
	assert.NilError(t, eaf.UpdateCosts(2025, &s.Inputs, owners[1]))
	// 1.1 * 300 + 0.6 * 50
	assert.Assert(t, math.Abs(eaf.Costs.VOPEX-360) < 1e-9, "vopex %f", eaf.Costs.VOPEX)
}

func TestBuildFleetMissingCapex(t *testing.T) {
	s, err := LoadScenario("testdata/scenario.yaml")
	assert.NilError(t, err)
	s.Assets = append(s.Assets, AssetSpec{Location: "DE", Technology: "MOE", Capacity: 100})
	_, err = s.BuildFleet(2025, AssetDefaults{Cycle: 20})
	assert.Assert(t, errors.Is(err, model.ErrMissingData), "got %v", err)
}

func TestParseScenarioJSON(t *testing.T) {
	raw := []byte(`{
		"name": "json",
		"assets": [{"location": "DE", "technology": "EAF", "capacity": 100}],
		"inputs": {"risk_free_rate": 0.01}
	}`)
	s, err := ParseScenario(raw, "json")
	assert.NilError(t, err)
	assert.Equal(t, s.Name, "json")
	assert.Equal(t, s.Inputs.RiskFreeRate, 0.01)
}

func TestParseScenarioRejects(t *testing.T) {
	_, err := ParseScenario([]byte(`name: x`), "toml")
	assert.ErrorContains(t, err, "unsupported scenario format")

	_, err = ParseScenario([]byte("assets:\n  - location: DE\n    technology: coal\n"), "yaml")
	assert.ErrorContains(t, err, "unknown technology")

	_, err = ParseScenario([]byte("assets:\n  - technology: EAF\n"), "yaml")
	assert.ErrorContains(t, err, "location is required")

	_, err = ParseScenario([]byte("inputs:\n  transitions:\n    BF: [EAF]\n"), "yaml")
	assert.ErrorContains(t, err, "inputs:")

	_, err = LoadScenario("testdata/nope.yaml")
	assert.Assert(t, err != nil)

	_, err = (&Scenario{}).BuildFleet(2025, AssetDefaults{})
	assert.ErrorContains(t, err, "cycle")
}
