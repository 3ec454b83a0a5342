package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// AssetSpec describes one furnace group of the opening fleet.
type AssetSpec struct {
	Name       string  `yaml:"name" json:"name"`
	Location   string  `yaml:"location" json:"location"`
	Technology string  `yaml:"technology" json:"technology"`
	Capacity   float64 `yaml:"capacity" json:"capacity"` // t/yr
	// Utilization defaults to the technology's average.
	Utilization float64 `yaml:"utilization" json:"utilization"`
	// CycleStart is the year the current amortization cycle began;
	// defaults to the first simulated year.
	CycleStart     int     `yaml:"cycle_start" json:"cycle_start"`
	Cycle          int     `yaml:"cycle" json:"cycle"`
	EquityShare    float64 `yaml:"equity_share" json:"equity_share"`
	CarbonCapture  float64 `yaml:"carbon_capture" json:"carbon_capture"` // tCO2/t
	RetirementYear int     `yaml:"retirement_year" json:"retirement_year"`
}

// Scenario is everything a run needs besides its configuration: the
// inputs tables, the opening fleet and opening owner balances.
type Scenario struct {
	Name     string             `yaml:"name" json:"name"`
	Inputs   model.Inputs       `yaml:"inputs" json:"inputs"`
	Assets   []AssetSpec        `yaml:"assets" json:"assets"`
	Balances map[string]float64 `yaml:"balances" json:"balances"` // $ by location
}

// AssetDefaults fill in what an AssetSpec leaves out.
type AssetDefaults struct {
	Cycle       int
	EquityShare float64
}

// LoadScenario reads a scenario from a .yaml, .yml or .json file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	s, err := ParseScenario(raw, format)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes raw as "json" or YAML, then normalizes and
// validates the inputs.
func ParseScenario(raw []byte, format string) (*Scenario, error) {
	var s Scenario
	switch format {
	case "json":
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	case "", "yaml", "yml":
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", format)
	}
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Prepare normalizes input keys and checks the scenario is usable.
func (s *Scenario) Prepare() error {
	s.Inputs.Normalize()
	if err := s.Inputs.Validate(); err != nil {
		return fmt.Errorf("inputs: %w", err)
	}
	for i, a := range s.Assets {
		if _, err := model.ParseTechnology(a.Technology); err != nil {
			return fmt.Errorf("asset %d (%s): %w", i, a.Name, err)
		}
		if a.Location == "" {
			return fmt.Errorf("asset %d (%s): location is required", i, a.Name)
		}
	}
	return nil
}

// BuildFleet creates the opening fleet as of startYear. Each asset is
// financed at the greenfield quote for its location, and each owner
// starts with its configured balance.
func (s *Scenario) BuildFleet(startYear int, def AssetDefaults) (*model.Fleet, error) {
	if def.Cycle <= 0 {
		return nil, errors.New("default cycle must be > 0")
	}
	fleet := model.NewFleet()
	for loc, bal := range s.Balances {
		fleet.OwnerFor(loc).Credit(bal)
	}
	for i, spec := range s.Assets {
		a, err := s.buildAsset(spec, startYear, def)
		if err != nil {
			return nil, fmt.Errorf("asset %d (%s): %w", i, spec.Name, err)
		}
		fleet.Add(a)
	}
	return fleet, nil
}

func (s *Scenario) buildAsset(spec AssetSpec, startYear int, def AssetDefaults) (*model.Asset, error) {
	tech, err := model.ParseTechnology(spec.Technology)
	if err != nil {
		return nil, err
	}
	cycle := spec.Cycle
	if cycle == 0 {
		cycle = def.Cycle
	}
	cycleStart := spec.CycleStart
	if cycleStart == 0 {
		cycleStart = startYear
	}
	equity := spec.EquityShare
	if equity == 0 {
		equity = def.EquityShare
	}
	q, err := s.Inputs.Quote(model.QuoteRequest{
		Location:      spec.Location,
		Technology:    tech,
		Year:          startYear,
		Class:         model.CapexGreenfield,
		CarbonCapture: spec.CarbonCapture,
	})
	if err != nil {
		return nil, err
	}
	util := spec.Utilization
	if util == 0 {
		util = q.Utilization
	}
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", spec.Location, tech)
	}
	a, err := model.NewAsset(model.AssetParams{
		Name:        name,
		Location:    spec.Location,
		Capacity:    spec.Capacity,
		Utilization: util,
		Technology:  q.State(),
		Lifetime:    model.NewLifetime(startYear, cycleStart, cycle),
		CostOfDebt:  q.CostOfDebt,
		EquityShare: equity,
	})
	if err != nil {
		return nil, err
	}
	a.CostOfDebtNoSubsidy = q.CostOfDebtNoSubsidy
	a.CarbonCapture = spec.CarbonCapture
	a.RetirementYear = spec.RetirementYear
	return a, nil
}
