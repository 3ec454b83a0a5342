package models

import (
	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/analysis"
	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
)

// SimulationResponse represents the response from a simulation run
type SimulationResponse struct {
	ID      string            `json:"id,omitempty"`
	Name    string            `json:"name,omitempty"`
	Status  string            `json:"status"`
	Summary SimulationSummary `json:"summary"`
	Ledger  []LedgerRow       `json:"ledger,omitempty"`
}

// SimulationSummary contains aggregated simulation results
type SimulationSummary struct {
	StartYear int                       `json:"start_year"`
	EndYear   int                       `json:"end_year"`
	Assets    map[model.Status]int      `json:"assets"`   // by final status
	Commands  map[model.CommandKind]int `json:"commands"` // excluding update_dynamic_costs
	Prices    []analysis.PriceStats     `json:"prices"`
	Owners    []analysis.RankedOwner    `json:"owners"`
	Years     []analysis.YearSummary    `json:"years,omitempty"`
	Persisted bool                      `json:"persisted"`
}

// LedgerRow represents one asset in one year of the ledger
type LedgerRow struct {
	Year             int               `json:"year"`
	AssetID          uuid.UUID         `json:"asset_id"`
	Name             string            `json:"name"`
	Location         string            `json:"location"`
	Technology       model.Technology  `json:"technology"`
	Product          model.Product     `json:"product"`
	Status           model.Status      `json:"status"`
	Capacity         float64           `json:"capacity"`
	Production       float64           `json:"production"`
	UnitTotalCost    float64           `json:"unit_total_cost"`
	Price            float64           `json:"price"`
	Balance          float64           `json:"balance"`
	HistoricBalance  float64           `json:"historic_balance"`
	EmissionsPerUnit float64           `json:"emissions_per_unit"`
	Emissions        float64           `json:"emissions"`
	Command          model.CommandKind `json:"command"`
}

// NewLedgerRows converts ledger rows for the wire.
func NewLedgerRows(rows []simulation.LedgerRow) []LedgerRow {
	out := make([]LedgerRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LedgerRow{
			Year:             r.Year,
			AssetID:          r.AssetID,
			Name:             r.Name,
			Location:         r.Location,
			Technology:       r.Technology,
			Product:          r.Product,
			Status:           r.Status,
			Capacity:         r.Capacity,
			Production:       r.Production,
			UnitTotalCost:    r.UnitTotalCost,
			Price:            r.Price,
			Balance:          r.Balance,
			HistoricBalance:  r.HistoricBalance,
			EmissionsPerUnit: r.EmissionsPerUnit,
			Emissions:        r.Emissions,
			Command:          r.Command,
		})
	}
	return out
}

// LedgerResponse is the ledger of a cached run
type LedgerResponse struct {
	ID     string      `json:"id"`
	Count  int         `json:"count"`
	Ledger []LedgerRow `json:"ledger"`
}

// PricesResponse is the price history of a run
type PricesResponse struct {
	ID     string              `json:"id"`
	Prices []market.PricePoint `json:"prices"`
}

// CompareSimulationResponse represents the response from a comparison
type CompareSimulationResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string            `json:"name"`
	ID      string            `json:"id"`
	Summary SimulationSummary `json:"summary"`
}

// RankResponse ranks the owners of a run by balance
type RankResponse struct {
	ID       string    `json:"id"`
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked owner
type Ranking struct {
	Rank int `json:"rank"`
	analysis.RankedOwner
}

// ScenarioInfo represents a scenario file available on the server
type ScenarioInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Assets    int      `json:"assets"`
	Locations []string `json:"locations"`
}

// SelectorInfo represents an available switch-selection strategy
type SelectorInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewError builds an ErrorResponse.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
