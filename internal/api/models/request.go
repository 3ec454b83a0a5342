package models

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/data"
)

// SimulationRequest represents the request body for running a simulation.
// Config.InputsFile is ignored; the scenario travels in Inputs.
type SimulationRequest struct {
	Name    string            `json:"name,omitempty"`
	Config  config.Config     `json:"config"`
	Inputs  data.Scenario     `json:"inputs"`
	Options SimulationOptions `json:"options,omitempty"`
}

type SimulationOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
	// Persist saves the run to the server's SQLite store, if it has one.
	Persist bool `json:"persist,omitempty"`
}

// CompareSimulationRequest runs one scenario under several configs.
type CompareSimulationRequest struct {
	Inputs     data.Scenario         `json:"inputs"`
	BaseConfig config.Config         `json:"base_config"`
	Variations []SimulationVariation `json:"variations" binding:"required,min=1"`
}

// SimulationVariation overrides the base config's simulation section.
type SimulationVariation struct {
	Name       string                  `json:"name" binding:"required"`
	Simulation config.SimulationConfig `json:"simulation"`
}
