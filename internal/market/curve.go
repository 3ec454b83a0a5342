// Package market builds per-product supply cost curves from the fleet and
// clears them against demand.
package market

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

var ErrEmptyCurve = errors.New("market: empty cost curve")

// Thresholds keep idle or negligible assets off the curve.
type Thresholds struct {
	MinUtilization float64 `yaml:"min_utilization" json:"min_utilization"`
	MinCapacity    float64 `yaml:"min_capacity" json:"min_capacity"` // t/yr
}

// Entry is one step of a cost curve.
type Entry struct {
	AssetID    uuid.UUID        `json:"asset_id"`
	Technology model.Technology `json:"technology"`
	Capacity   float64          `json:"capacity"`   // t/yr
	UnitCost   float64          `json:"unit_cost"`  // $/t
	Cumulative float64          `json:"cumulative"` // t/yr
}

// Curve is an ascending step function of cumulative capacity against unit
// cost for one product.
type Curve struct {
	Product        model.Product `json:"product"`
	Entries        []Entry       `json:"entries"`
	ScarcityBuffer float64       `json:"scarcity_buffer"` // $/t above the top entry
}

// Eligible reports whether a sits on a cost curve built with th.
func (th Thresholds) Eligible(a *model.Asset) bool {
	return a.Utilization > 0 &&
		a.Utilization >= th.MinUtilization &&
		a.Capacity > th.MinCapacity
}

// BuildCurve collects the active eligible assets making p. Entries are
// ordered by unit cost, ties broken by asset ID, so an unchanged fleet
// always yields the same curve.
func BuildCurve(p model.Product, assets []*model.Asset, th Thresholds, buffer float64) Curve {
	c := Curve{Product: p, ScarcityBuffer: buffer}
	for _, a := range assets {
		if !a.Status.Active() || a.Product() != p || !th.Eligible(a) {
			continue
		}
		c.add(a)
	}
	c.accumulate()
	return c
}

func (c *Curve) add(a *model.Asset) {
	c.Entries = append(c.Entries, Entry{
		AssetID:    a.ID,
		Technology: a.Technology.Kind,
		Capacity:   a.Capacity,
		UnitCost:   a.Costs.UnitTotal(),
	})
}

func (c *Curve) accumulate() {
	sort.SliceStable(c.Entries, func(i, j int) bool {
		if c.Entries[i].UnitCost != c.Entries[j].UnitCost {
			return c.Entries[i].UnitCost < c.Entries[j].UnitCost
		}
		return c.Entries[i].AssetID.String() < c.Entries[j].AssetID.String()
	})
	cum := 0.0
	for i := range c.Entries {
		cum += c.Entries[i].Capacity
		c.Entries[i].Cumulative = cum
	}
}

func (c Curve) TotalCapacity() float64 {
	if len(c.Entries) == 0 {
		return 0
	}
	return c.Entries[len(c.Entries)-1].Cumulative
}

// ExtractPrice is the unit cost of the first entry whose cumulative
// capacity covers demand. Demand beyond the curve is priced at the top
// entry plus the scarcity buffer.
func (c Curve) ExtractPrice(demand float64) (float64, error) {
	if len(c.Entries) == 0 {
		return 0, ErrEmptyCurve
	}
	i := sort.Search(len(c.Entries), func(i int) bool { return c.Entries[i].Cumulative >= demand })
	if i == len(c.Entries) {
		return c.Entries[len(c.Entries)-1].UnitCost + c.ScarcityBuffer, nil
	}
	return c.Entries[i].UnitCost, nil
}
