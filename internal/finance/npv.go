// Package finance holds the pure financial primitives used by every
// investment decision: discounting, debt amortization, stranded-asset cost,
// subsidy application and the legacy debt queue.
//
// Nothing in this package keeps state between calls. Bad market inputs
// degrade to sentinels; bad arguments from the caller are returned as errors.
package finance

import (
	"errors"
	"math"
)

// NPVSentinel is returned instead of an error when an NPV cannot be
// computed from market inputs (NaN cash flows, discount rate <= -100%).
// It is low enough to never win a comparison.
const NPVSentinel = -1e18

var (
	ErrInvalidArgument = errors.New("finance: invalid argument")
	ErrLengthMismatch  = errors.New("finance: series length mismatch")
)

// NetPresentValue discounts cashFlows at discountRate and subtracts the
// equity-funded share of the initial investment.
//
// Cash flows are already net of debt service. The first flow is not
// discounted (t=0), matching the usual spreadsheet NPV over a cash flow
// vector that starts in the decision year.
func NetPresentValue(cashFlows []float64, discountRate, equityShare, investment float64) float64 {
	if math.IsNaN(discountRate) || discountRate <= -1 {
		return NPVSentinel
	}
	pv := 0.0
	factor := 1.0
	for _, cf := range cashFlows {
		if math.IsNaN(cf) {
			return NPVSentinel
		}
		pv += cf * factor
		factor /= 1 + discountRate
	}
	return pv - equityShare*investment
}

// NPVInput describes a single investment case: build (or keep) an asset and
// run it for Lifetime operating years after ConstructionYears of lag.
//
// Units:
// - Capacity: t/year
// - UnitOpex, UnitCarbonCost, Prices: $/t of product
// - Investment: $ total (0 when the capital is already sunk)
//
// Series shorter than Lifetime carry their last value forward.
type NPVInput struct {
	Investment        float64
	Capacity          float64
	Utilization       float64
	UnitOpex          []float64
	UnitCarbonCost    []float64
	Prices            []float64
	CostOfDebt        float64
	CostOfEquity      float64
	EquityShare       float64
	Lifetime          int
	ConstructionYears int

	// DebtPayments overrides the schedule derived from Investment.
	// Used when the debt of an existing asset is already running.
	DebtPayments []float64
}

// NPVBreakdown keeps the components behind an NPV so they can be traced
// when a candidate is never chosen.
type NPVBreakdown struct {
	CashFlows        []float64
	Revenue          float64
	Opex             float64
	CarbonCost       float64
	DebtService      float64
	EquityInvestment float64
	NPV              float64
}

// FullNPV builds the cash flow vector for in and discounts it at the cost of
// equity. Construction years contribute zero cash flow.
func FullNPV(in NPVInput) (NPVBreakdown, error) {
	if in.Lifetime < 0 || in.ConstructionYears < 0 {
		return NPVBreakdown{}, ErrInvalidArgument
	}
	debt := in.DebtPayments
	if debt == nil && in.Investment > 0 && in.Lifetime > 0 {
		d, err := DebtPayments(in.Investment, in.EquityShare, in.Lifetime, in.CostOfDebt, in.Lifetime)
		if err != nil {
			return NPVBreakdown{}, err
		}
		debt = d
	}
	if len(debt) > in.Lifetime {
		return NPVBreakdown{}, ErrLengthMismatch
	}

	production := in.Capacity * in.Utilization
	out := NPVBreakdown{
		CashFlows:        make([]float64, 0, in.ConstructionYears+in.Lifetime),
		EquityInvestment: in.EquityShare * in.Investment,
	}
	for i := 0; i < in.ConstructionYears; i++ {
		out.CashFlows = append(out.CashFlows, 0)
	}
	for y := 0; y < in.Lifetime; y++ {
		revenue := seriesAt(in.Prices, y) * production
		opex := seriesAt(in.UnitOpex, y) * production
		carbon := seriesAt(in.UnitCarbonCost, y) * production
		ds := 0.0
		if y < len(debt) {
			ds = debt[y]
		}
		out.Revenue += revenue
		out.Opex += opex
		out.CarbonCost += carbon
		out.DebtService += ds
		out.CashFlows = append(out.CashFlows, revenue-opex-carbon-ds)
	}
	out.NPV = NetPresentValue(out.CashFlows, in.CostOfEquity, in.EquityShare, in.Investment)
	return out, nil
}

// seriesAt returns s[i], the last element when i runs past the end, or 0 for
// an empty series.
func seriesAt(s []float64, i int) float64 {
	if len(s) == 0 {
		return 0
	}
	if i >= len(s) {
		return s[len(s)-1]
	}
	return s[i]
}

// Flat returns a series of n copies of v.
func Flat(v float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Sum adds up xs.
func Sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}
