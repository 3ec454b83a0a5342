package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

type RankedOwner struct {
	Location string          `json:"location"`
	Balance  decimal.Decimal `json:"balance"`
	Assets   int             `json:"assets"`   // not closed or discarded
	Capacity float64         `json:"capacity"` // t/yr running
}

// RankOwnersByBalance sorts owners by equity balance, highest first.
func RankOwnersByBalance(f *model.Fleet) []RankedOwner {
	owners := f.Owners()
	out := make([]RankedOwner, 0, len(owners))
	for _, o := range owners {
		r := RankedOwner{Location: o.Location, Balance: o.Balance}
		for _, a := range o.Assets {
			if a.Status.Terminal() {
				continue
			}
			r.Assets++
			if a.Status.Active() {
				r.Capacity += a.Capacity
			}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Balance.GreaterThan(out[j].Balance)
	})
	return out
}

// RankAssetsByHistoricBalance returns the n assets with the highest
// cumulative balance; n <= 0 returns all of them.
func RankAssetsByHistoricBalance(f *model.Fleet, n int) []*model.Asset {
	var out []*model.Asset
	for _, a := range f.Assets() {
		if a.Status.Prospective() || a.Status == model.StatusDiscarded {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].HistoricBalance > out[j].HistoricBalance })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
