package simulation

import (
	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// LedgerRow is one asset in one year.
// This is the primary artifact for "what happened" in a run.
type LedgerRow struct {
	Year       int
	AssetID    uuid.UUID
	Name       string
	Location   string
	Technology model.Technology
	Product    model.Product
	Status     model.Status

	Capacity    float64 // t/yr
	Utilization float64
	Production  float64 // t

	UnitVOPEX     float64 // $/t
	UnitCarbon    float64 // $/t
	FixedCost     float64 // $
	DebtService   float64 // $, own and legacy
	LegacyDebt    float64 // $ still owed on earlier technologies
	UnitTotalCost float64 // $/t

	Price           float64 // $/t
	Balance         float64 // $
	HistoricBalance float64 // $

	EmissionsPerUnit float64 // tCO2/t
	Emissions        float64 // tCO2

	Command model.CommandKind
}

type Result struct {
	StartYear int
	EndYear   int
	Ledger    []LedgerRow
	Prices    []market.PricePoint
	Commands  []model.Command
	Fleet     *model.Fleet
}

// CommandsFor lists the commands issued about one asset.
func (r *Result) CommandsFor(id uuid.UUID) []model.Command {
	var out []model.Command
	for _, c := range r.Commands {
		if c.AssetID == id {
			out = append(out, c)
		}
	}
	return out
}

// PriceSeries is the clearing price of p by year.
func (r *Result) PriceSeries(p model.Product) []market.PricePoint {
	var out []market.PricePoint
	for _, pt := range r.Prices {
		if pt.Product == p {
			out = append(out, pt)
		}
	}
	return out
}

// record appends a row for every asset that exists physically this year:
// running, being built, or closed this year.
func (e *Engine) record(year int, assets []*model.Asset, prices map[uuid.UUID]float64, cmds []model.Command) {
	last := map[uuid.UUID]model.CommandKind{}
	for _, c := range cmds {
		if c.Kind != model.CommandUpdateDynamicCosts {
			last[c.AssetID] = c.Kind
		}
	}
	for _, a := range assets {
		switch {
		case a.Status.Active(), a.Status == model.StatusConstruction:
		case a.Status == model.StatusClosed && a.ClosedYear == year:
		default:
			continue
		}
		cmd, ok := last[a.ID]
		if !ok {
			cmd = model.CommandNone
		}
		e.result.Ledger = append(e.result.Ledger, LedgerRow{
			Year:             year,
			AssetID:          a.ID,
			Name:             a.Name,
			Location:         a.Location,
			Technology:       a.Technology.Kind,
			Product:          a.Product(),
			Status:           a.Status,
			Capacity:         a.Capacity,
			Utilization:      a.Utilization,
			Production:       a.Costs.Production,
			UnitVOPEX:        a.Costs.VOPEX,
			UnitCarbon:       a.Costs.Carbon,
			FixedCost:        a.Costs.FixedCost,
			DebtService:      a.Costs.DebtService,
			LegacyDebt:       a.Legacy.Total(),
			UnitTotalCost:    a.Costs.UnitTotal(),
			Price:            prices[a.ID],
			Balance:          a.Balance,
			HistoricBalance:  a.HistoricBalance,
			EmissionsPerUnit: a.Emissions.Total,
			Emissions:        a.Emissions.Total * a.Costs.Production,
			Command:          cmd,
		})
	}
}
