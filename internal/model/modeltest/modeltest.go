// Package modeltest provides a small, self-consistent scenario for tests of
// the packages built on model.
package modeltest

import (
	"testing"

	"github.com/systemiqofficial/steel-iq-sub000/internal/emissions"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

const (
	Country = "DE"
	Year    = 2025
	Cycle   = 20
)

func entry(demand float64) model.BOMEntry { return model.BOMEntry{Demand: demand} }

// Inputs returns prices and costs for every registered technology, valid in
// any country and any year.
func Inputs() *model.Inputs {
	all := emissions.AnyCountry
	capex := func(g, b float64) model.CapexEntry { return model.CapexEntry{Greenfield: g, Brownfield: b} }
	in := &model.Inputs{
		InputPrices: map[string]map[int]map[model.Key]float64{
			all: {Year: {
				"iron_ore": 100, "coking_coal": 200, "electricity": 50, "iron_ore_pellets": 130,
				"natural_gas": 30, "hydrogen": 3000, "hot_metal": 350, "scrap": 300,
			}},
		},
		AverageBOMs: map[model.Technology]model.AverageBOM{
			model.TechBF: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"iron_ore": entry(1.5), "coking_coal": entry(0.5)},
				Energy:    map[model.Key]model.BOMEntry{"electricity": entry(0.1)},
			}},
			model.TechDRING: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"iron_ore_pellets": entry(1.4)},
				Energy:    map[model.Key]model.BOMEntry{"natural_gas": entry(2), "electricity": entry(0.2)},
			}},
			model.TechDRIH2: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"iron_ore_pellets": entry(1.4)},
				Energy:    map[model.Key]model.BOMEntry{"hydrogen": entry(0.06), "electricity": entry(0.5)},
			}},
			model.TechESF: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"iron_ore_pellets": entry(1.5)},
				Energy:    map[model.Key]model.BOMEntry{"electricity": entry(1)},
			}},
			model.TechBOF: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"hot_metal": entry(0.9), "scrap": entry(0.2)},
				Energy:    map[model.Key]model.BOMEntry{"electricity": entry(0.05)},
			}},
			model.TechEAF: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"scrap": entry(1.1)},
				Energy:    map[model.Key]model.BOMEntry{"electricity": entry(0.6)},
			}},
			model.TechMOE: {Utilization: 0.8, BOM: model.BOM{
				Materials: map[model.Key]model.BOMEntry{"iron_ore": entry(1.6)},
				Energy:    map[model.Key]model.BOMEntry{"electricity": entry(4)},
			}},
		},
		Capex: map[string]map[model.Technology]model.CapexEntry{
			all: {
				model.TechBF: capex(300, 200), model.TechDRING: capex(400, 250), model.TechDRIH2: capex(500, 300),
				model.TechESF: capex(450, 280), model.TechBOF: capex(200, 120), model.TechEAF: capex(250, 150),
				model.TechMOE: capex(600, 400),
			},
		},
		FOPEX: map[string]map[model.Technology]float64{
			all: {
				model.TechBF: 20, model.TechDRING: 20, model.TechDRIH2: 20, model.TechESF: 20,
				model.TechBOF: 20, model.TechEAF: 20, model.TechMOE: 20,
			},
		},
		EmissionFactors: emissions.Factors{
			emissions.Scope1: {"BF": 1.8, "DRING": 0.6, "BOF": 0.2},
			emissions.Scope2: {"electricity": 0.4},
		},
		CostOfCapital: map[string]model.CostOfCapital{all: {Debt: 0.05, Equity: 0.1}},
		Demand: map[model.Product]map[int]float64{
			model.ProductIron:  {Year: 1e6},
			model.ProductSteel: {Year: 1e6},
		},
		RiskFreeRate: 0.02,
	}
	return in
}

// Asset builds an operating asset running t at Country whose cycle starts
// in year.
func Asset(tb testing.TB, in *model.Inputs, t model.Technology, capacity float64, year int) *model.Asset {
	tb.Helper()
	q, err := in.Quote(model.QuoteRequest{Location: Country, Technology: t, Year: year})
	if err != nil {
		tb.Fatalf("quote %s: %v", t, err)
	}
	a, err := model.NewAsset(model.AssetParams{
		Name:        string(t) + "-test",
		Location:    Country,
		Capacity:    capacity,
		Utilization: q.Utilization,
		Technology:  q.State(),
		Lifetime:    model.NewLifetime(year, year, Cycle),
		CostOfDebt:  q.CostOfDebt,
		EquityShare: 0.2,
	})
	if err != nil {
		tb.Fatalf("new asset %s: %v", t, err)
	}
	return a
}
