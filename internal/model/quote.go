package model

import (
	"fmt"

	"github.com/systemiqofficial/steel-iq-sub000/internal/emissions"
	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
)

// QuoteRequest asks what it costs to run technology at location from year.
type QuoteRequest struct {
	Location   string
	Technology Technology
	Year       int
	Class      CapexClass

	// CumulativeCapacity is the installed capacity of the technology across
	// the fleet, in t/yr. It drives the learning curve.
	CumulativeCapacity float64

	// CarbonCapture is captured tCO2 per t of product.
	CarbonCapture float64
}

// Quote is the subsidized and baseline cost of a technology at a location
// in a given year. Money is in $ and volumes in t.
type Quote struct {
	Technology          Technology
	Location            string
	Year                int
	Class               CapexClass
	Capex               float64 // $/t capacity
	CapexNoSubsidy      float64
	CostOfDebt          float64
	CostOfDebtNoSubsidy float64
	CostOfEquity        float64
	Utilization         float64 // average utilization of the technology
	BOM                 BOM
	VOPEX               float64 // $/t product, after opex subsidies
	FixedCost           float64 // $/t capacity/yr
	Emissions           emissions.Emissions
	Chargeable          float64 // tCO2/t product
	Subsidies           []finance.Subsidy
}

// Quote prices req. Any missing table entry is returned as a
// *MissingDataError.
func (in *Inputs) Quote(req QuoteRequest) (Quote, error) {
	if !req.Technology.Valid() {
		return Quote{}, fmt.Errorf("quote: unknown technology %q", req.Technology)
	}
	class := req.Class
	if class == "" {
		class = CapexGreenfield
	}
	tech := string(req.Technology)

	entry, err := in.CapexFor(req.Location, req.Technology)
	if err != nil {
		return Quote{}, err
	}
	base := entry.Greenfield
	if class == CapexBrownfield {
		base = entry.Brownfield
	}
	if lc, ok := in.LearningCurves[req.Technology]; ok {
		base = finance.LearningCurveCapex(base, req.CumulativeCapacity, lc.ReferenceCapacity, lc.Rate)
	}

	coc, err := in.CostOfCapitalFor(req.Location)
	if err != nil {
		return Quote{}, err
	}
	fixed, err := in.FixedCostFor(req.Location, req.Technology)
	if err != nil {
		return Quote{}, err
	}
	avg, err := in.BOMFor(req.Technology)
	if err != nil {
		return Quote{}, err
	}
	bom, vopex, err := in.costBOM(req.Location, req.Year, avg.BOM, avg.Utilization)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s at %s: %w", req.Technology, req.Location, err)
	}

	subs := func(item finance.CostItem) []finance.Subsidy {
		return finance.FilterSubsidies(in.Subsidies, req.Location, tech, item)
	}
	em := emissions.PerUnit(tech, bom.Demands(), in.EmissionFactors, emissions.AllBoundaries)
	return Quote{
		Technology:          req.Technology,
		Location:            req.Location,
		Year:                req.Year,
		Class:               class,
		Capex:               finance.ApplySubsidy(base, subs(finance.CostCapex), req.Year, 0),
		CapexNoSubsidy:      base,
		CostOfDebt:          finance.ApplySubsidy(coc.Debt, subs(finance.CostDebt), req.Year, in.RiskFreeRate),
		CostOfDebtNoSubsidy: coc.Debt,
		CostOfEquity:        coc.Equity,
		Utilization:         avg.Utilization,
		BOM:                 bom,
		VOPEX:               finance.ApplySubsidy(vopex, subs(finance.CostOpex), req.Year, 0),
		FixedCost:           fixed,
		Emissions:           em,
		Chargeable:          emissions.Chargeable(em, in.pricedBoundaries(), req.CarbonCapture),
		Subsidies:           in.ActiveSubsidies(req.Location, req.Technology, req.Year),
	}, nil
}

// costBOM reprices a copy of bom at location's input prices for year and
// returns it with the unsubsidized variable cost per t of product.
func (in *Inputs) costBOM(location string, year int, bom BOM, utilization float64) (BOM, float64, error) {
	out := bom.Clone()
	if err := out.Repair(utilization); err != nil {
		return BOM{}, 0, err
	}
	price := func(k Key) (float64, error) { return in.InputPrice(location, year, k) }
	if err := out.Reprice(price, 1); err != nil {
		return BOM{}, 0, err
	}
	return out, out.UnitCost(), nil
}

// State is the technology an asset would run after adopting q.
func (q Quote) State() TechnologyState {
	return TechnologyState{
		Kind:           q.Technology,
		Product:        q.Technology.Product(),
		Capex:          q.Capex,
		CapexNoSubsidy: q.CapexNoSubsidy,
		CapexClass:     q.Class,
		BOM:            q.BOM.Clone(),
	}
}

// UnitOpex is the operating cost per t of product at utilization.
func (q Quote) UnitOpex(utilization float64) float64 {
	if utilization <= 0 {
		return q.VOPEX
	}
	return q.VOPEX + q.FixedCost/utilization
}
