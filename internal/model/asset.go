package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/emissions"
	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
)

// Lifetime tracks the amortization cycle of an asset.
// Years are calendar years; End is exclusive.
type Lifetime struct {
	Current int `json:"current"`
	Start   int `json:"start"`
	End     int `json:"end"`
	Cycle   int `json:"cycle"`
}

// NewLifetime starts a cycle of cycle years at start.
func NewLifetime(current, start, cycle int) Lifetime {
	return Lifetime{Current: current, Start: start, End: start + cycle, Cycle: cycle}
}

// Remaining is the number of years left in the cycle, counting the current one.
func (l Lifetime) Remaining() int {
	if l.Current < l.Start {
		return l.Cycle
	}
	if r := l.End - l.Current; r > 0 {
		return r
	}
	return 0
}

func (l Lifetime) Expired() bool { return l.Current >= l.End }

// PendingSwitch is an approved technology change waiting for its
// construction lag to run out.
type PendingSwitch struct {
	Target              TechnologyState `json:"target"`
	Year                int             `json:"year"`
	CostOfDebt          float64         `json:"cost_of_debt"`
	CostOfDebtNoSubsidy float64         `json:"cost_of_debt_no_subsidy"`
}

// CostBreakdown is the cost of running an asset for one year.
type CostBreakdown struct {
	VOPEX       float64 `json:"vopex"`        // $/t product
	Carbon      float64 `json:"carbon"`       // $/t product
	FixedCost   float64 `json:"fixed_cost"`   // $/yr
	DebtService float64 `json:"debt_service"` // $/yr, own and legacy
	Production  float64 `json:"production"`   // t/yr
}

// UnitOpex is VOPEX plus FOPEX spread over production.
func (c CostBreakdown) UnitOpex() float64 {
	if c.Production <= 0 {
		return c.VOPEX
	}
	return c.VOPEX + c.FixedCost/c.Production
}

// UnitTotal is the full cost of one t of product including carbon and debt.
func (c CostBreakdown) UnitTotal() float64 {
	if c.Production <= 0 {
		return c.VOPEX + c.Carbon
	}
	return c.VOPEX + c.Carbon + (c.FixedCost+c.DebtService)/c.Production
}

// Total is the yearly cost in $.
func (c CostBreakdown) Total() float64 {
	return (c.VOPEX+c.Carbon)*c.Production + c.FixedCost + c.DebtService
}

// AssetParams defines a new asset.
// Units:
// - Capacity: t/yr
// - Utilization: 0..1
// - CostOfDebt: yearly rate
type AssetParams struct {
	Name        string
	Location    string
	Capacity    float64
	Utilization float64
	Technology  TechnologyState
	Lifetime    Lifetime
	CostOfDebt  float64
	EquityShare float64
	Status      Status
	ActiveYear  int
}

// Asset is a furnace group: one technology, one amortization cycle, one
// financial history. Closed assets are kept.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Capacity    float64   `json:"capacity"`
	Utilization float64   `json:"utilization"`

	Technology          TechnologyState    `json:"technology"`
	Lifetime            Lifetime           `json:"lifetime"`
	CostOfDebt          float64            `json:"cost_of_debt"`
	CostOfDebtNoSubsidy float64            `json:"cost_of_debt_no_subsidy"`
	EquityShare         float64            `json:"equity_share"`
	Legacy              finance.LegacyDebt `json:"-"`

	Balance         float64 `json:"balance"`          // $ this year
	HistoricBalance float64 `json:"historic_balance"` // $ since the asset started

	Subsidies     []finance.Subsidy   `json:"subsidies,omitempty"`
	Emissions     emissions.Emissions `json:"emissions"` // tCO2/t product
	Chargeable    float64             `json:"chargeable"`
	CarbonCapture float64             `json:"carbon_capture"` // tCO2/t product

	Status         Status          `json:"status"`
	Pending        *PendingSwitch  `json:"pending,omitempty"`
	ActiveYear     int             `json:"active_year,omitempty"`
	RetirementYear int             `json:"retirement_year,omitempty"`
	ClosedYear     int             `json:"closed_year,omitempty"`
	NPVHistory     map[int]float64 `json:"npv_history,omitempty"`
	Costs          CostBreakdown   `json:"costs"`
}

func NewAsset(p AssetParams) (*Asset, error) {
	if p.Status == "" {
		p.Status = StatusOperating
	}
	a := &Asset{
		ID:                  uuid.New(),
		Name:                p.Name,
		Location:            p.Location,
		Capacity:            p.Capacity,
		Utilization:         p.Utilization,
		Technology:          p.Technology,
		Lifetime:            p.Lifetime,
		CostOfDebt:          p.CostOfDebt,
		CostOfDebtNoSubsidy: p.CostOfDebt,
		EquityShare:         p.EquityShare,
		Status:              p.Status,
		ActiveYear:          p.ActiveYear,
	}
	if a.Technology.Product == "" {
		a.Technology.Product = a.Technology.Kind.Product()
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Asset) Validate() error {
	if !a.Technology.Kind.Valid() {
		return fmt.Errorf("asset %s: unknown technology %q", a.Name, a.Technology.Kind)
	}
	if a.Location == "" {
		return errors.New("asset location is required")
	}
	if a.Capacity <= 0 {
		return errors.New("asset capacity must be > 0")
	}
	if a.Utilization < 0 || a.Utilization > 1 {
		return errors.New("asset utilization must be in [0, 1]")
	}
	if a.EquityShare < 0 || a.EquityShare > 1 {
		return errors.New("asset equity share must be in [0, 1]")
	}
	if a.Lifetime.Cycle <= 0 {
		return errors.New("asset lifetime cycle must be > 0")
	}
	if a.Legacy.Len() > a.Lifetime.Remaining() {
		return fmt.Errorf("asset %s: legacy debt of %d years exceeds %d remaining years", a.ID, a.Legacy.Len(), a.Lifetime.Remaining())
	}
	if err := a.Technology.BOM.Repair(a.Utilization); err != nil {
		return fmt.Errorf("asset %s: %w", a.Name, err)
	}
	return nil
}

// Production is the yearly output in t.
func (a *Asset) Production() float64 { return a.Utilization * a.Capacity }

// ClosingThreshold is the cumulative loss, in $, at which the asset is closed.
func (a *Asset) ClosingThreshold() float64 { return a.Technology.Capex * a.Capacity }

func (a *Asset) Product() Product { return a.Technology.Product }

// OwnDebtPayments is what is still owed on the current technology's debt,
// one entry per remaining cycle year.
func (a *Asset) OwnDebtPayments() ([]float64, error) {
	rem := a.Lifetime.Remaining()
	if rem == 0 {
		return nil, nil
	}
	return finance.DebtPayments(a.Technology.Capex*a.Capacity, a.EquityShare, a.Lifetime.Cycle, a.CostOfDebt, rem)
}

// DebtService is the total debt paid this year: the current technology's
// payment plus the head of the legacy queue.
func (a *Asset) DebtService() (float64, error) {
	own, err := a.OwnDebtPayments()
	if err != nil {
		return 0, err
	}
	total := a.Legacy.Current()
	if len(own) > 0 {
		total += own[0]
	}
	return total, nil
}

// SetStatus moves the asset along the lifecycle graph.
func (a *Asset) SetStatus(to Status) error {
	if err := validateTransition(a.ID, a.Status, to); err != nil {
		return err
	}
	a.Status = to
	return nil
}

// RecordBalance books this year's result at price ($/t) and adds it to the
// historic balance. Call UpdateCosts first.
func (a *Asset) RecordBalance(price float64) float64 {
	a.Balance = price*a.Costs.Production - a.Costs.Total()
	a.HistoricBalance += a.Balance
	return a.Balance
}

// Renovate starts a new amortization cycle on the same technology at
// capex ($/t capacity). The asset stays operating.
func (a *Asset) Renovate(year int, capex, costOfDebt float64) error {
	if a.Status != StatusOperating {
		return fmt.Errorf("asset %s: cannot renovate while %q", a.ID, a.Status)
	}
	a.Technology.Capex = capex
	a.Technology.CapexClass = CapexBrownfield
	a.CostOfDebt = costOfDebt
	a.Lifetime = NewLifetime(year, year, a.Lifetime.Cycle)
	return nil
}

// ScheduleSwitch records an approved technology change taking effect in
// year. The asset keeps running the current technology until then.
func (a *Asset) ScheduleSwitch(p PendingSwitch) error {
	if p.Target.Product != a.Technology.Product {
		return fmt.Errorf("asset %s: cannot switch %s to %s (%s)", a.ID, a.Technology.Product, p.Target.Kind, p.Target.Product)
	}
	if err := a.SetStatus(StatusSwitching); err != nil {
		return err
	}
	a.Pending = &p
	return nil
}

// ApplyPendingSwitch performs a due technology change: the unexpired debt
// of the outgoing technology is cascaded into the legacy queue and a new
// cycle starts. It reports whether a switch happened.
func (a *Asset) ApplyPendingSwitch(year int) (bool, error) {
	if a.Pending == nil || year < a.Pending.Year {
		return false, nil
	}
	remaining, err := a.OwnDebtPayments()
	if err != nil {
		return false, err
	}
	next := NewLifetime(year, year, a.Lifetime.Cycle)
	legacy := a.Legacy
	if err := legacy.Cascade(remaining, next.Remaining()); err != nil {
		return false, fmt.Errorf("asset %s: %w", a.ID, err)
	}
	if err := a.SetStatus(StatusOperating); err != nil {
		return false, err
	}
	a.Legacy = legacy
	a.Technology = a.Pending.Target
	a.CostOfDebt = a.Pending.CostOfDebt
	a.CostOfDebtNoSubsidy = a.Pending.CostOfDebtNoSubsidy
	a.Lifetime = next
	a.Pending = nil
	return true, nil
}

// Commission puts a finished construction into operation once its active
// year arrives, starting its first cycle.
func (a *Asset) Commission(year int) (bool, error) {
	if a.Status != StatusConstruction || year < a.ActiveYear {
		return false, nil
	}
	if err := a.SetStatus(StatusOperating); err != nil {
		return false, err
	}
	a.Lifetime = NewLifetime(year, year, a.Lifetime.Cycle)
	return true, nil
}

// Close retires the asset in year. The record is kept.
func (a *Asset) Close(year int) error {
	if err := a.SetStatus(StatusClosed); err != nil {
		return err
	}
	a.ClosedYear = year
	a.Pending = nil
	return nil
}

// AdvanceYear moves the asset to the next year and drops the legacy debt
// payment that was due this year.
func (a *Asset) AdvanceYear() {
	a.Legacy.AdvanceOneYear()
	a.Lifetime.Current++
}

// RecordNPV stores the NPV evaluated in year.
func (a *Asset) RecordNPV(year int, npv float64) {
	if a.NPVHistory == nil {
		a.NPVHistory = map[int]float64{}
	}
	a.NPVHistory[year] = npv
}

// UpdateCosts recomputes this year's costs at the asset's location: the
// bill of materials at current input prices, subsidized VOPEX, FOPEX from
// the owner's fixed-cost table, emissions, carbon cost and debt service.
func (a *Asset) UpdateCosts(year int, in *Inputs, owner *AssetOwner) error {
	tech := a.Technology.Kind
	bom := a.Technology.BOM
	if len(bom.Materials) == 0 && len(bom.Energy) == 0 {
		avg, err := in.BOMFor(tech)
		if err != nil {
			return err
		}
		bom = avg.BOM
	}
	bom, vopex, err := in.costBOM(a.Location, year, bom, a.Utilization)
	if err != nil {
		return fmt.Errorf("asset %s: %w", a.ID, err)
	}
	if owner == nil {
		return fmt.Errorf("asset %s: no owner", a.ID)
	}
	fixed, err := owner.FixedCost(tech, in)
	if err != nil {
		return err
	}
	debt, err := a.DebtService()
	if err != nil {
		return err
	}
	price, err := in.CarbonPriceAt(a.Location, year)
	if err != nil {
		return err
	}
	opexSubs := finance.FilterSubsidies(in.Subsidies, a.Location, string(tech), finance.CostOpex)
	a.Technology.BOM = bom
	a.Emissions = emissions.PerUnit(string(tech), bom.Demands(), in.EmissionFactors, emissions.AllBoundaries)
	a.Chargeable = emissions.Chargeable(a.Emissions, in.pricedBoundaries(), a.CarbonCapture)
	a.Subsidies = in.ActiveSubsidies(a.Location, tech, year)
	a.Costs = CostBreakdown{
		VOPEX:       finance.ApplySubsidy(vopex, opexSubs, year, 0),
		Carbon:      a.Chargeable * price,
		FixedCost:   fixed * a.Capacity,
		DebtService: debt,
		Production:  a.Production(),
	}
	return nil
}
