package analysis

import (
	"math"
	"sort"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
)

// PriceStats summarizes the clearing price of one product over a run.
type PriceStats struct {
	Product   model.Product `json:"product"`
	StartYear int           `json:"start_year"`
	EndYear   int           `json:"end_year"`
	Count     int           `json:"count"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	Spread      float64 `json:"spread"`       // P95 - P05
	ScarceYears int     `json:"scarce_years"` // demand exceeded supply
}

// ComputePriceStats summarizes the price points of a single product,
// ordered by year.
func ComputePriceStats(points []market.PricePoint) PriceStats {
	s := PriceStats{}
	if len(points) == 0 {
		return s
	}
	s.Product = points[0].Product
	s.Count = len(points)
	s.StartYear = points[0].Year
	s.EndYear = points[len(points)-1].Year

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(points))
	for _, pt := range points {
		v := pt.Price
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		if pt.Scarce {
			s.ScarceYears++
		}
	}
	sort.Float64s(vals)
	s.Min = minv
	s.Max = maxv
	s.Mean = sum / float64(len(vals))
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	s.Spread = s.P95 - s.P05
	return s
}

// PriceStatsByProduct summarizes every product in a run result.
func PriceStatsByProduct(res *simulation.Result) []PriceStats {
	byProduct := map[model.Product][]market.PricePoint{}
	for _, pt := range res.Prices {
		byProduct[pt.Product] = append(byProduct[pt.Product], pt)
	}
	out := make([]PriceStats, 0, len(byProduct))
	for _, pts := range byProduct {
		out = append(out, ComputePriceStats(pts))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// YearSummary is the fleet total for one year of the ledger.
type YearSummary struct {
	Year       int                          `json:"year"`
	Production map[model.Product]float64    `json:"production"` // t
	Emissions  float64                      `json:"emissions"`  // tCO2
	Capacity   map[model.Technology]float64 `json:"capacity"`   // t/yr running, by technology
}

// SummarizeByYear totals production, emissions and running capacity by
// technology for every year of the ledger.
func SummarizeByYear(ledger []simulation.LedgerRow) []YearSummary {
	byYear := map[int]*YearSummary{}
	for _, r := range ledger {
		if !r.Status.Active() {
			continue
		}
		s, ok := byYear[r.Year]
		if !ok {
			s = &YearSummary{Year: r.Year, Production: map[model.Product]float64{}, Capacity: map[model.Technology]float64{}}
			byYear[r.Year] = s
		}
		s.Production[r.Product] += r.Production
		s.Emissions += r.Emissions
		s.Capacity[r.Technology] += r.Capacity
	}
	out := make([]YearSummary, 0, len(byYear))
	for _, s := range byYear {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
