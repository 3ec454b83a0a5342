// Package emissions turns technology and feedstock emission factors into
// per-unit emissions and a yearly carbon cost series.
package emissions

import (
	"errors"
	"fmt"
	"sort"
)

// Boundary is the accounting scope an emission factor belongs to.
type Boundary string

const (
	Scope1 Boundary = "scope1" // direct process and combustion
	Scope2 Boundary = "scope2" // purchased electricity and heat
	Scope3 Boundary = "scope3" // upstream feedstock
)

// AllBoundaries lists every boundary in reporting order.
var AllBoundaries = []Boundary{Scope1, Scope2, Scope3}

var ErrNoCarbonPrice = errors.New("emissions: no carbon price")

// Factors are tCO2 per unit, keyed by boundary and then by either a
// technology name (process emissions per tonne of product) or a normalized
// bill-of-materials key (emissions per unit of that input consumed).
type Factors map[Boundary]map[string]float64

func (f Factors) Get(b Boundary, key string) float64 {
	if f == nil {
		return 0
	}
	return f[b][key]
}

// Emissions are tCO2 per tonne of product.
type Emissions struct {
	ByBoundary map[Boundary]float64 `json:"by_boundary"`
	Total      float64              `json:"total"`
}

// PerUnit computes emissions per tonne of product for a technology running
// on consumption (input key → demand per tonne of product).
func PerUnit(technology string, consumption map[string]float64, f Factors, boundaries []Boundary) Emissions {
	out := Emissions{ByBoundary: make(map[Boundary]float64, len(boundaries))}
	keys := make([]string, 0, len(consumption))
	for k := range consumption {
		keys = append(keys, k)
	}
	// Fixed order keeps float sums reproducible between runs.
	sort.Strings(keys)
	for _, b := range boundaries {
		v := f.Get(b, technology)
		for _, k := range keys {
			v += consumption[k] * f.Get(b, k)
		}
		out.ByBoundary[b] = v
		out.Total += v
	}
	return out
}

// Chargeable is the part of e that carries a carbon price: the sum over the
// priced boundaries, less captured CO2, never below zero.
func Chargeable(e Emissions, priced []Boundary, capturedPerUnit float64) float64 {
	v := 0.0
	for _, b := range priced {
		v += e.ByBoundary[b]
	}
	v -= capturedPerUnit
	if v < 0 {
		return 0
	}
	return v
}

// CarbonPrices are $/tCO2 by country and year. The "*" country applies
// wherever a country has no entry of its own.
type CarbonPrices map[string]map[int]float64

const AnyCountry = "*"

// PriceAt returns the carbon price for country in year. A year without an
// entry takes the latest earlier one. Years before the country's first entry
// are uncharged and price at 0: a table starting in 2030 means no carbon
// price until 2030. A country with no row of its own and no "*" row is
// ErrNoCarbonPrice.
func (p CarbonPrices) PriceAt(country string, year int) (float64, error) {
	byYear, ok := p[country]
	if !ok {
		byYear, ok = p[AnyCountry]
	}
	if !ok {
		return 0, fmt.Errorf("%w: country %q", ErrNoCarbonPrice, country)
	}
	if v, ok := byYear[year]; ok {
		return v, nil
	}
	best := -1
	for y := range byYear {
		if y <= year && y > best {
			best = y
		}
	}
	if best < 0 {
		return 0, nil
	}
	return byYear[best], nil
}

// CarbonCostSeries is the carbon cost in $/t of product for each of years
// consecutive years starting at startYear.
func CarbonCostSeries(chargeablePerUnit float64, prices CarbonPrices, country string, startYear, years int) ([]float64, error) {
	if years <= 0 {
		return nil, nil
	}
	out := make([]float64, years)
	for i := range out {
		price, err := prices.PriceAt(country, startYear+i)
		if err != nil {
			return nil, err
		}
		out[i] = price * chargeablePerUnit
	}
	return out, nil
}
