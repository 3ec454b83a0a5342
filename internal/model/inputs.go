package model

import (
	"fmt"
	"sort"

	"github.com/systemiqofficial/steel-iq-sub000/internal/emissions"
	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
)

// CapexEntry is $/t of capacity for building a technology.
type CapexEntry struct {
	Greenfield float64 `yaml:"greenfield" json:"greenfield"`
	Brownfield float64 `yaml:"brownfield" json:"brownfield"`
}

// CostOfCapital is the yearly rate paid on debt and expected on equity.
type CostOfCapital struct {
	Debt   float64 `yaml:"debt" json:"debt"`
	Equity float64 `yaml:"equity" json:"equity"`
}

// AverageBOM is the typical bill of materials of a technology together with
// the utilization it is typically run at.
type AverageBOM struct {
	BOM         BOM     `yaml:"bom" json:"bom"`
	Utilization float64 `yaml:"utilization" json:"utilization"`
}

// LearningCurve cuts CAPEX by Rate per doubling of installed capacity
// beyond ReferenceCapacity.
type LearningCurve struct {
	Rate              float64 `yaml:"rate" json:"rate"`
	ReferenceCapacity float64 `yaml:"reference_capacity" json:"reference_capacity"`
}

// Inputs is everything the decision engine consumes from outside: prices,
// costs, emission factors, policy and demand.
//
// Country-keyed tables accept "*" as a catch-all country. Year-keyed tables
// carry the latest year at or before the requested one forward.
type Inputs struct {
	InputPrices         map[string]map[int]map[Key]float64   `yaml:"input_prices" json:"input_prices"`
	AverageBOMs         map[Technology]AverageBOM            `yaml:"average_boms" json:"average_boms"`
	Capex               map[string]map[Technology]CapexEntry `yaml:"capex" json:"capex"` // by region
	Regions             map[string]string                    `yaml:"regions" json:"regions"` // country -> region
	LearningCurves      map[Technology]LearningCurve         `yaml:"learning_curves" json:"learning_curves"`
	FOPEX               map[string]map[Technology]float64    `yaml:"fopex" json:"fopex"` // $/t capacity/yr by country
	EmissionFactors     emissions.Factors                    `yaml:"emission_factors" json:"emission_factors"`
	PricedBoundaries    []emissions.Boundary                 `yaml:"priced_boundaries" json:"priced_boundaries"`
	CarbonPrices        emissions.CarbonPrices               `yaml:"carbon_prices" json:"carbon_prices"`
	Transitions         map[Technology][]Technology          `yaml:"transitions" json:"transitions"`
	AllowedTechnologies map[int][]Technology                 `yaml:"allowed_technologies" json:"allowed_technologies"`
	Subsidies           []finance.Subsidy                    `yaml:"subsidies" json:"subsidies"`
	Demand              map[Product]map[int]float64          `yaml:"demand" json:"demand"`
	CostOfCapital       map[string]CostOfCapital             `yaml:"cost_of_capital" json:"cost_of_capital"`
	RiskFreeRate        float64                              `yaml:"risk_free_rate" json:"risk_free_rate"`
}

// Normalize rewrites every material and carrier key through NormalizeKey.
// Call it once after loading.
func (in *Inputs) Normalize() {
	for country, byYear := range in.InputPrices {
		for year, prices := range byYear {
			norm := make(map[Key]float64, len(prices))
			for k, v := range prices {
				norm[NormalizeKey(string(k))] = v
			}
			in.InputPrices[country][year] = norm
		}
	}
	for t, avg := range in.AverageBOMs {
		avg.BOM = avg.BOM.Normalized()
		in.AverageBOMs[t] = avg
	}
	for b, byKey := range in.EmissionFactors {
		norm := make(map[string]float64, len(byKey))
		for k, v := range byKey {
			if t, err := ParseTechnology(k); err == nil {
				norm[string(t)] = v
				continue
			}
			norm[string(NormalizeKey(k))] = v
		}
		in.EmissionFactors[b] = norm
	}
}

// Validate checks the shape of the inputs that can be checked up front.
func (in *Inputs) Validate() error {
	for t, avg := range in.AverageBOMs {
		spec, ok := t.Spec()
		if !ok {
			return fmt.Errorf("average_boms: unknown technology %q", t)
		}
		if avg.Utilization < 0 || avg.Utilization > 1 {
			return fmt.Errorf("average_boms.%s: utilization %.2f outside [0, 1]", t, avg.Utilization)
		}
		if avg.Utilization > 0 {
			if miss := avg.BOM.MissingKeys(spec); len(miss) > 0 {
				return fmt.Errorf("average_boms.%s: missing inputs %v", t, miss)
			}
		}
	}
	for from, tos := range in.Transitions {
		if !from.Valid() {
			return fmt.Errorf("transitions: unknown technology %q", from)
		}
		for _, to := range tos {
			if !to.Valid() {
				return fmt.Errorf("transitions.%s: unknown technology %q", from, to)
			}
			if to.Product() != from.Product() {
				return fmt.Errorf("transitions.%s: %s makes %s, not %s", from, to, to.Product(), from.Product())
			}
		}
	}
	for year, techs := range in.AllowedTechnologies {
		for _, t := range techs {
			if !t.Valid() {
				return fmt.Errorf("allowed_technologies.%d: unknown technology %q", year, t)
			}
		}
	}
	if in.RiskFreeRate < 0 {
		return fmt.Errorf("risk_free_rate must be >= 0")
	}
	return nil
}

func lookupCountry[V any](m map[string]V, country string) (V, bool) {
	if v, ok := m[country]; ok {
		return v, true
	}
	v, ok := m[emissions.AnyCountry]
	return v, ok
}

// yearAtOrBefore picks the latest key <= year, or the earliest key if year
// precedes them all.
func yearAtOrBefore[V any](m map[int]V, year int) (int, bool) {
	if len(m) == 0 {
		return 0, false
	}
	if _, ok := m[year]; ok {
		return year, true
	}
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	best := years[0]
	for _, y := range years {
		if y <= year {
			best = y
		}
	}
	return best, true
}

func (in *Inputs) region(country string) string {
	if r, ok := in.Regions[country]; ok {
		return r
	}
	return country
}

// CapexFor returns the CAPEX of t in country's region.
func (in *Inputs) CapexFor(country string, t Technology) (CapexEntry, error) {
	byTech, ok := lookupCountry(in.Capex, in.region(country))
	if !ok {
		return CapexEntry{}, missing("capex", "region %q (country %q)", in.region(country), country)
	}
	e, ok := byTech[t]
	if !ok {
		return CapexEntry{}, missing("capex", "%s in region %q", t, in.region(country))
	}
	return e, nil
}

// FixedCostFor returns FOPEX in $/t capacity/yr.
func (in *Inputs) FixedCostFor(country string, t Technology) (float64, error) {
	byTech, ok := lookupCountry(in.FOPEX, country)
	if !ok {
		return 0, missing("fopex", "country %q", country)
	}
	v, ok := byTech[t]
	if !ok {
		return 0, missing("fopex", "%s in %q", t, country)
	}
	return v, nil
}

func (in *Inputs) CostOfCapitalFor(country string) (CostOfCapital, error) {
	c, ok := lookupCountry(in.CostOfCapital, country)
	if !ok {
		return CostOfCapital{}, missing("cost of capital", "country %q", country)
	}
	return c, nil
}

func (in *Inputs) BOMFor(t Technology) (AverageBOM, error) {
	avg, ok := in.AverageBOMs[t]
	if !ok {
		return AverageBOM{}, missing("bom", "%s", t)
	}
	return avg, nil
}

// InputPrice is the price of one unit of a material or energy carrier.
func (in *Inputs) InputPrice(country string, year int, k Key) (float64, error) {
	byYear, ok := lookupCountry(in.InputPrices, country)
	if !ok {
		return 0, missing("input price", "country %q", country)
	}
	y, ok := yearAtOrBefore(byYear, year)
	if !ok {
		return 0, missing("input price", "country %q", country)
	}
	p, ok := byYear[y][k]
	if !ok {
		return 0, missing("input price", "%s in %q (%d)", k, country, year)
	}
	return p, nil
}

// DemandFor is the demand for product in year, in t.
func (in *Inputs) DemandFor(p Product, year int) (float64, error) {
	byYear, ok := in.Demand[p]
	if !ok {
		return 0, missing("demand", "product %q", p)
	}
	y, _ := yearAtOrBefore(byYear, year)
	return byYear[y], nil
}

// Products lists the products that have demand, in a stable order.
func (in *Inputs) Products() []Product {
	out := make([]Product, 0, len(in.Demand))
	for p := range in.Demand {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TransitionsFrom is the static transition graph: the scenario's own graph
// if it defines one, the registry's otherwise.
func (in *Inputs) TransitionsFrom(t Technology) []Technology {
	if in.Transitions != nil {
		return in.Transitions[t]
	}
	return registry[t].Transitions
}

// Allowed is the allow-list of technologies for year. Without an allow-list
// every registered technology is allowed.
func (in *Inputs) Allowed(year int) map[Technology]bool {
	out := map[Technology]bool{}
	y, ok := yearAtOrBefore(in.AllowedTechnologies, year)
	if !ok {
		for t := range registry {
			out[t] = true
		}
		return out
	}
	for _, t := range in.AllowedTechnologies[y] {
		out[t] = true
	}
	return out
}

func (in *Inputs) pricedBoundaries() []emissions.Boundary {
	if len(in.PricedBoundaries) == 0 {
		return []emissions.Boundary{emissions.Scope1, emissions.Scope2}
	}
	return in.PricedBoundaries
}

// CarbonCostSeries is the carbon cost in $/t of product of an asset emitting
// chargeable tCO2/t at country, for years years from startYear. Without a
// carbon price table there is no carbon cost.
func (in *Inputs) CarbonCostSeries(country string, chargeable float64, startYear, years int) ([]float64, error) {
	if len(in.CarbonPrices) == 0 {
		return finance.Flat(0, years), nil
	}
	return emissions.CarbonCostSeries(chargeable, in.CarbonPrices, country, startYear, years)
}

// CarbonPriceAt is the carbon price in $/tCO2; zero without a price table.
func (in *Inputs) CarbonPriceAt(country string, year int) (float64, error) {
	if len(in.CarbonPrices) == 0 {
		return 0, nil
	}
	return in.CarbonPrices.PriceAt(country, year)
}

// ActiveSubsidies lists every subsidy for t at country active in year.
func (in *Inputs) ActiveSubsidies(country string, t Technology, year int) []finance.Subsidy {
	var out []finance.Subsidy
	for _, item := range []finance.CostItem{finance.CostCapex, finance.CostOpex, finance.CostDebt} {
		for _, s := range finance.FilterSubsidies(in.Subsidies, country, string(t), item) {
			if s.ActiveIn(year) {
				out = append(out, s)
			}
		}
	}
	return out
}
