package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// AssetOwner holds the assets at one location and the equity they have
// earned together.
type AssetOwner struct {
	ID       uuid.UUID
	Location string
	Assets   []*Asset
	Balance  decimal.Decimal

	// FixedCosts is FOPEX in $/t capacity/yr by technology.
	FixedCosts map[Technology]float64
}

func NewAssetOwner(location string) *AssetOwner {
	return &AssetOwner{
		ID:         uuid.New(),
		Location:   location,
		Balance:    decimal.Zero,
		FixedCosts: map[Technology]float64{},
	}
}

func (o *AssetOwner) Credit(amount float64) {
	o.Balance = o.Balance.Add(decimal.NewFromFloat(amount))
}

func (o *AssetOwner) CanAfford(amount float64) bool {
	return o.Balance.GreaterThanOrEqual(decimal.NewFromFloat(amount))
}

// Withdraw takes amount out of the balance, or fails and leaves it untouched.
func (o *AssetOwner) Withdraw(amount float64) error {
	if !o.CanAfford(amount) {
		return fmt.Errorf("owner %s: %w: need %.2f, have %s", o.Location, ErrInsufficientBalance, amount, o.Balance.StringFixed(2))
	}
	o.Balance = o.Balance.Sub(decimal.NewFromFloat(amount))
	return nil
}

func (o *AssetOwner) Negative() bool { return o.Balance.IsNegative() }

// FixedCost is the owner's FOPEX for t, loaded from in on first use.
func (o *AssetOwner) FixedCost(t Technology, in *Inputs) (float64, error) {
	if v, ok := o.FixedCosts[t]; ok {
		return v, nil
	}
	v, err := in.FixedCostFor(o.Location, t)
	if err != nil {
		return 0, err
	}
	o.FixedCosts[t] = v
	return v, nil
}

// Fleet is every owner in the simulation. Owner balances double as the
// pool that equity for new assets is drawn from.
type Fleet struct {
	owners map[string]*AssetOwner
}

func NewFleet() *Fleet {
	return &Fleet{owners: map[string]*AssetOwner{}}
}

// OwnerFor returns the owner at location, creating it if needed.
func (f *Fleet) OwnerFor(location string) *AssetOwner {
	if o, ok := f.owners[location]; ok {
		return o
	}
	o := NewAssetOwner(location)
	f.owners[location] = o
	return o
}

// Add hands a to the owner at its location.
func (f *Fleet) Add(a *Asset) *AssetOwner {
	o := f.OwnerFor(a.Location)
	o.Assets = append(o.Assets, a)
	return o
}

// Owners lists owners ordered by location.
func (f *Fleet) Owners() []*AssetOwner {
	out := make([]*AssetOwner, 0, len(f.owners))
	for _, o := range f.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Assets lists every asset, closed ones included, ordered by owner location
// and then by the order they were added.
func (f *Fleet) Assets() []*Asset {
	var out []*Asset
	for _, o := range f.Owners() {
		out = append(out, o.Assets...)
	}
	return out
}

// OwnerOf returns the owner of a.
func (f *Fleet) OwnerOf(a *Asset) (*AssetOwner, bool) {
	o, ok := f.owners[a.Location]
	return o, ok
}

func (f *Fleet) Find(id uuid.UUID) (*Asset, bool) {
	for _, o := range f.owners {
		for _, a := range o.Assets {
			if a.ID == id {
				return a, true
			}
		}
	}
	return nil, false
}

func (f *Fleet) AggregateBalance() decimal.Decimal {
	total := decimal.Zero
	for _, o := range f.owners {
		total = total.Add(o.Balance)
	}
	return total
}

// Pool is the equity available for new assets: the aggregate owner balance
// as it stands now, after every withdrawal made so far this year.
func (f *Fleet) Pool() decimal.Decimal { return f.AggregateBalance() }

func (f *Fleet) CanDraw(amount float64) bool {
	return f.Pool().GreaterThanOrEqual(decimal.NewFromFloat(amount))
}

// Draw pays amount for a new asset at location out of owner balances. The
// owner at location pays first, then the others in location order, each up
// to its positive balance. Whoever draws first gets the money; a draw the
// pool cannot cover fails and changes nothing.
func (f *Fleet) Draw(location string, amount float64) error {
	need := decimal.NewFromFloat(amount)
	if f.Pool().LessThan(need) {
		return fmt.Errorf("fleet pool: %w: need %.2f, have %s", ErrInsufficientBalance, amount, f.Pool().StringFixed(2))
	}
	payers := f.Owners()
	sort.SliceStable(payers, func(i, j int) bool {
		return payers[i].Location == location && payers[j].Location != location
	})
	for _, o := range payers {
		if !need.IsPositive() {
			break
		}
		if !o.Balance.IsPositive() {
			continue
		}
		take := decimal.Min(need, o.Balance)
		o.Balance = o.Balance.Sub(take)
		need = need.Sub(take)
	}
	return nil
}

// CumulativeCapacity is the capacity, in t/yr, running or being built on t.
func (f *Fleet) CumulativeCapacity(t Technology) float64 {
	total := 0.0
	for _, o := range f.owners {
		for _, a := range o.Assets {
			if a.Technology.Kind == t && (a.Status.Active() || a.Status == StatusConstruction) {
				total += a.Capacity
			}
		}
	}
	return total
}
