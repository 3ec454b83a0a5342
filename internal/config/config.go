package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/systemiqofficial/steel-iq-sub000/internal/data"
	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/opportunity"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
	"github.com/systemiqofficial/steel-iq-sub000/internal/strategy"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Name string `yaml:"name" json:"name"`
	// InputsFile is the scenario (inputs tables and opening fleet). A
	// relative path is read relative to the config file.
	InputsFile string           `yaml:"inputs_file" json:"inputs_file"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	Pipeline   PipelineConfig   `yaml:"pipeline" json:"pipeline"`
	Output     OutputConfig     `yaml:"output" json:"output"`
}

type SimulationConfig struct {
	StartYear     int   `yaml:"start_year" json:"start_year"`
	EndYear       int   `yaml:"end_year" json:"end_year"`
	Seed          int64 `yaml:"seed" json:"seed"`
	Deterministic bool  `yaml:"deterministic" json:"deterministic"`
	// Selection is how a switch target is picked: argmax or weighted.
	Selection          string  `yaml:"selection" json:"selection"`
	EquityShare        float64 `yaml:"equity_share" json:"equity_share"`
	Cycle              int     `yaml:"cycle" json:"cycle"` // years
	ConstructionYears  int     `yaml:"construction_years" json:"construction_years"`
	MarketLag          int     `yaml:"market_lag" json:"market_lag"`
	PreRetirementYears int     `yaml:"pre_retirement_years" json:"pre_retirement_years"`
	// RiskFreeRate overrides the scenario's when non-zero.
	RiskFreeRate   float64                   `yaml:"risk_free_rate" json:"risk_free_rate"`
	MinUtilization float64                   `yaml:"min_utilization" json:"min_utilization"`
	MinCapacity    float64                   `yaml:"min_capacity" json:"min_capacity"`
	ScarcityBuffer map[model.Product]float64 `yaml:"scarcity_buffer" json:"scarcity_buffer"` // $/t
	CapacityLimits map[model.Product]float64 `yaml:"capacity_limits" json:"capacity_limits"` // t/yr added per year
}

type PipelineConfig struct {
	Disabled                bool     `yaml:"disabled" json:"disabled"`
	ConsiderationYears      int      `yaml:"consideration_years" json:"consideration_years"`
	AnnouncementProbability float64  `yaml:"announcement_probability" json:"announcement_probability"`
	ConstructionProbability float64  `yaml:"construction_probability" json:"construction_probability"`
	CandidatesPerYear       int      `yaml:"candidates_per_year" json:"candidates_per_year"`
	TopK                    int      `yaml:"top_k" json:"top_k"`
	Capacity                float64  `yaml:"capacity" json:"capacity"` // t/yr per new asset
	Utilization             float64  `yaml:"utilization" json:"utilization"`
	Locations               []string `yaml:"locations" json:"locations"`
}

type OutputConfig struct {
	LedgerCSV   string `yaml:"ledger_csv" json:"ledger_csv"`
	PricesCSV   string `yaml:"prices_csv" json:"prices_csv"`
	CommandsCSV string `yaml:"commands_csv" json:"commands_csv"`
	SQLite      string `yaml:"sqlite" json:"sqlite"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config and resolves inputs_file, but does not
// default or validate it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if c.InputsFile != "" && !filepath.IsAbs(c.InputsFile) {
		// Prefer the config file's directory, but fall back to the path as
		// given (relative to cwd) if nothing is there.
		cand := filepath.Join(filepath.Dir(path), c.InputsFile)
		if _, err := os.Stat(cand); err == nil {
			c.InputsFile = cand
		}
	}
	return &c, nil
}

// ApplyDefaults fills every unset knob that has a sensible default.
// Market lag, pre-retirement years and the curve thresholds default to 0.
func (c *Config) ApplyDefaults() {
	s := &c.Simulation
	if s.EndYear == 0 && s.StartYear > 0 {
		s.EndYear = s.StartYear + 25
	}
	if s.Cycle == 0 {
		s.Cycle = 20
	}
	if s.EquityShare == 0 {
		s.EquityShare = 0.2
	}
	if s.ConstructionYears == 0 {
		s.ConstructionYears = 4
	}
	if s.Selection == "" {
		s.Selection = "argmax"
	}
	p := &c.Pipeline
	if p.ConsiderationYears == 0 {
		p.ConsiderationYears = 3
	}
	if p.AnnouncementProbability == 0 {
		p.AnnouncementProbability = 0.7
	}
	if p.ConstructionProbability == 0 {
		p.ConstructionProbability = 0.9
	}
	if p.CandidatesPerYear == 0 {
		p.CandidatesPerYear = 5
	}
	if p.TopK == 0 {
		p.TopK = 10
	}
	if p.Capacity == 0 {
		p.Capacity = 2.5e6
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	s := c.Simulation
	if err := c.SimulationParams().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if s.Cycle <= 0 {
		return errors.New("simulation.cycle must be > 0")
	}
	if s.EquityShare < 0 || s.EquityShare > 1 {
		return errors.New("simulation.equity_share must be in [0, 1]")
	}
	if s.ConstructionYears < 0 {
		return errors.New("simulation.construction_years must be >= 0")
	}
	if s.RiskFreeRate < 0 {
		return errors.New("simulation.risk_free_rate must be >= 0")
	}
	if s.MinUtilization < 0 || s.MinUtilization > 1 {
		return errors.New("simulation.min_utilization must be in [0, 1]")
	}
	if _, err := strategy.NewSelector(s.Selection, rand.New(rand.NewSource(0))); err != nil {
		return fmt.Errorf("simulation.selection: %w", err)
	}
	for p := range s.ScarcityBuffer {
		if !validProduct(p) {
			return fmt.Errorf("simulation.scarcity_buffer: unknown product %q", p)
		}
	}
	for p, v := range s.CapacityLimits {
		if !validProduct(p) {
			return fmt.Errorf("simulation.capacity_limits: unknown product %q", p)
		}
		if v < 0 {
			return fmt.Errorf("simulation.capacity_limits.%s must be >= 0", p)
		}
	}
	pc := c.Pipeline
	if pc.ConsiderationYears <= 0 {
		return errors.New("pipeline.consideration_years must be > 0")
	}
	if !probability(pc.AnnouncementProbability) || !probability(pc.ConstructionProbability) {
		return errors.New("pipeline probabilities must be in [0, 1]")
	}
	if pc.CandidatesPerYear < 0 || pc.TopK < 0 {
		return errors.New("pipeline.candidates_per_year and pipeline.top_k must be >= 0")
	}
	if pc.Capacity < 0 {
		return errors.New("pipeline.capacity must be >= 0")
	}
	if pc.Utilization < 0 || pc.Utilization > 1 {
		return errors.New("pipeline.utilization must be in [0, 1]")
	}
	return nil
}

func probability(v float64) bool { return v >= 0 && v <= 1 }

func validProduct(p model.Product) bool {
	return p == model.ProductIron || p == model.ProductSteel
}

func (c *Config) SimulationParams() simulation.Params {
	s := c.Simulation
	return simulation.Params{
		StartYear:          s.StartYear,
		EndYear:            s.EndYear,
		PreRetirementYears: s.PreRetirementYears,
		Market: market.Config{
			Thresholds:     market.Thresholds{MinUtilization: s.MinUtilization, MinCapacity: s.MinCapacity},
			Lag:            s.MarketLag,
			ScarcityBuffer: s.ScarcityBuffer,
		},
		CapacityLimits: s.CapacityLimits,
	}
}

func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		ConstructionYears: c.Simulation.ConstructionYears,
		Deterministic:     c.Simulation.Deterministic,
	}
}

func (c *Config) PipelineParams() opportunity.Params {
	p := c.Pipeline
	return opportunity.Params{
		ConsiderationYears:      p.ConsiderationYears,
		AnnouncementProbability: p.AnnouncementProbability,
		ConstructionProbability: p.ConstructionProbability,
		ConstructionYears:       c.Simulation.ConstructionYears,
		CandidatesPerYear:       p.CandidatesPerYear,
		TopK:                    p.TopK,
		Capacity:                p.Capacity,
		Utilization:             p.Utilization,
		EquityShare:             c.Simulation.EquityShare,
		Cycle:                   c.Simulation.Cycle,
		Deterministic:           c.Simulation.Deterministic,
		Locations:               p.Locations,
	}
}

// Scenario loads the scenario named by inputs_file.
func (c *Config) Scenario() (*data.Scenario, error) {
	if c.InputsFile == "" {
		return nil, errors.New("inputs_file is required")
	}
	return data.LoadScenario(c.InputsFile)
}

// NewEngine wires a simulation engine for sc: the opening fleet, the
// decision engine and the opportunity pipeline, all drawing from one
// random source seeded from simulation.seed.
func (c *Config) NewEngine(sc *data.Scenario, log *slog.Logger) (*simulation.Engine, error) {
	if sc == nil {
		return nil, errors.New("scenario is nil")
	}
	if c.Simulation.RiskFreeRate != 0 {
		sc.Inputs.RiskFreeRate = c.Simulation.RiskFreeRate
	}
	fleet, err := sc.BuildFleet(c.Simulation.StartYear, data.AssetDefaults{
		Cycle:       c.Simulation.Cycle,
		EquityShare: c.Simulation.EquityShare,
	})
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(c.Simulation.Seed))
	sel, err := strategy.NewSelector(c.Simulation.Selection, rng)
	if err != nil {
		return nil, err
	}
	strat := strategy.NewEngine(c.StrategyParams(), sel, rng, log)
	var pipe *opportunity.Pipeline
	if !c.Pipeline.Disabled {
		pipe = opportunity.NewPipeline(c.PipelineParams(), rng, log)
	}
	return simulation.New(c.SimulationParams(), &sc.Inputs, fleet, strat, pipe, rng, log)
}
