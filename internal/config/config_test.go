package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load("testdata/config.yaml")
	assert.NilError(t, err)
	assert.Equal(t, c.Name, "config-test")
	assert.Equal(t, c.InputsFile, filepath.Join("testdata", "../../data/testdata/scenario.yaml"))

	s := c.Simulation
	assert.Equal(t, s.Cycle, 20)
	assert.Equal(t, s.EquityShare, 0.2)
	assert.Equal(t, s.ConstructionYears, 4)
	assert.Equal(t, s.Selection, "argmax")
	assert.Equal(t, s.ScarcityBuffer[model.ProductSteel], 50.0)

	p := c.PipelineParams()
	assert.Equal(t, p.ConsiderationYears, 3)
	assert.Equal(t, p.ConstructionYears, 4)
	assert.Equal(t, p.Capacity, 500.0)
	assert.Equal(t, p.CandidatesPerYear, 1)
	assert.Equal(t, p.Cycle, 20)

	sp := c.SimulationParams()
	assert.Equal(t, sp.Market.Lag, 2)
	assert.Equal(t, sp.CapacityLimits[model.ProductIron], 1.0e6)
}

func TestEndYearDefault(t *testing.T) {
	c := &Config{Simulation: SimulationConfig{StartYear: 2025}}
	c.ApplyDefaults()
	assert.Equal(t, c.Simulation.EndYear, 2050)
	assert.NilError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Simulation: SimulationConfig{StartYear: 2025, EndYear: 2030}}
		c.ApplyDefaults()
		return c
	}
	cases := []struct {
		name  string
		patch func(*Config)
		want  string
	}{
		{"years", func(c *Config) { c.Simulation.EndYear = 2020 }, "year range"},
		{"equity", func(c *Config) { c.Simulation.EquityShare = 1.5 }, "equity_share"},
		{"selection", func(c *Config) { c.Simulation.Selection = "best" }, "unknown selection"},
		{"product", func(c *Config) { c.Simulation.CapacityLimits = map[model.Product]float64{"copper": 1} }, "unknown product"},
		{"limit", func(c *Config) { c.Simulation.CapacityLimits = map[model.Product]float64{model.ProductIron: -1} }, "capacity_limits"},
		{"probability", func(c *Config) { c.Pipeline.AnnouncementProbability = 2 }, "probabilities"},
		{"utilization", func(c *Config) { c.Pipeline.Utilization = 1.2 }, "pipeline.utilization"},
		{"risk free", func(c *Config) { c.Simulation.RiskFreeRate = -0.01 }, "risk_free_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.patch(c)
			assert.ErrorContains(t, c.Validate(), tc.want)
		})
	}
	var nilCfg *Config
	assert.ErrorContains(t, nilCfg.Validate(), "nil")
}

func TestInputsFileFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("inputs_file: testdata/config.yaml\n"), 0o644))
	c, err := LoadUnchecked(path)
	assert.NilError(t, err)
	assert.Equal(t, c.InputsFile, "testdata/config.yaml")

	_, err = (&Config{}).Scenario()
	assert.ErrorContains(t, err, "inputs_file is required")
}

func TestNewEngineRuns(t *testing.T) {
	c, err := Load("testdata/config.yaml")
	assert.NilError(t, err)
	c.Simulation.RiskFreeRate = 0.03
	sc, err := c.Scenario()
	assert.NilError(t, err)

	eng, err := c.NewEngine(sc, nil)
	assert.NilError(t, err)
	assert.Assert(t, eng.Pipeline != nil)
	assert.Equal(t, eng.Inputs.RiskFreeRate, 0.03)
	assert.Equal(t, len(eng.Fleet.Assets()), 3)

	res, err := eng.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, res.StartYear, 2025)
	assert.Assert(t, len(res.Ledger) >= 3*3)
	assert.Assert(t, len(res.Prices) > 0)

	c.Pipeline.Disabled = true
	sc, err = c.Scenario()
	assert.NilError(t, err)
	eng, err = c.NewEngine(sc, nil)
	assert.NilError(t, err)
	assert.Assert(t, eng.Pipeline == nil)
}
