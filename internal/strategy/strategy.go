// Package strategy decides, once a year, what each operating asset does
// next: keep running, renovate, switch technology or close.
package strategy

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// Context is everything a decision about one asset reads or spends.
// Market is frozen for the year; Owner, Fleet and Limits are shared and
// mutated by approvals in evaluation order.
type Context struct {
	Year   int
	Asset  *model.Asset
	Owner  *model.AssetOwner
	Fleet  *model.Fleet
	Market *market.State
	Inputs *model.Inputs
	Limits *model.CapacityLimits
}

// Candidate is one option for an asset with its evaluated NPV.
type Candidate struct {
	Technology model.Technology
	Switch     bool
	Quote      model.Quote
	NPV        float64
	COSA       float64 // subtracted from NPV, switches only
	Breakdown  finance.NPVBreakdown
}

// Selector picks one candidate among those evaluated.
type Selector interface {
	Name() string
	Select(cands []Candidate) (Candidate, bool)
}
