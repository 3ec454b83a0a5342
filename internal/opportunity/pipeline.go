// Package opportunity proposes new furnace groups and tracks them through
// consideration, announcement and construction.
package opportunity

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// Params configures the pipeline.
type Params struct {
	// ConsiderationYears is how many consecutive years of positive (or
	// negative) NPV announce (or discard) a considered asset.
	ConsiderationYears      int
	AnnouncementProbability float64
	ConstructionProbability float64
	ConstructionYears       int
	// CandidatesPerYear caps how many new assets are proposed per year.
	CandidatesPerYear int
	// TopK is how many candidates survive the proxy pre-filter.
	TopK        int
	Capacity    float64 // t/yr
	Utilization float64 // 0 uses the technology's average
	EquityShare float64
	Cycle       int
	// Deterministic replaces every draw with a sure success.
	Deterministic bool
	// Locations to propose assets at; defaults to where the fleet already is.
	Locations []string
}

// Context is the state the pipeline reads and spends in one year.
type Context struct {
	Year   int
	Fleet  *model.Fleet
	Market *market.State
	Inputs *model.Inputs
	Limits *model.CapacityLimits
}

type Pipeline struct {
	Params Params
	Rand   *rand.Rand
	Log    *slog.Logger
}

func NewPipeline(p Params, rng *rand.Rand, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Params: p, Rand: rng, Log: log}
}

// candidate is a (location, technology) pair being screened.
type candidate struct {
	location string
	tech     model.Technology
	quote    model.Quote
	proxy    float64
	npv      float64
}

// Proxy is a cheap screen of a new asset's value: undiscounted margin over
// one cycle less the full investment.
func Proxy(q model.Quote, price, carbonPrice, capacity, utilization float64, cycle int) float64 {
	margin := price - q.UnitOpex(utilization) - q.Chargeable*carbonPrice
	return margin*capacity*utilization*float64(cycle) - q.Capex*capacity
}

func (p *Pipeline) draw(prob float64) bool {
	if p.Params.Deterministic {
		return true
	}
	return p.Rand.Float64() < prob
}

func (p *Pipeline) utilization(q model.Quote) float64 {
	if p.Params.Utilization > 0 {
		return p.Params.Utilization
	}
	return q.Utilization
}

func (p *Pipeline) locations(f *model.Fleet) []string {
	if len(p.Params.Locations) > 0 {
		return p.Params.Locations
	}
	var out []string
	for _, o := range f.Owners() {
		out = append(out, o.Location)
	}
	return out
}

// Generate screens every allowed (location, technology) pair with Proxy,
// keeps the best TopK, prices those exactly and adds the best positive ones
// to the fleet as considered assets.
func (p *Pipeline) Generate(ctx Context) ([]model.Command, error) {
	in := ctx.Inputs
	allowed := in.Allowed(ctx.Year)
	taken := map[string]bool{}
	for _, a := range ctx.Fleet.Assets() {
		if a.Status.Prospective() || a.Status == model.StatusConstruction {
			taken[a.Location+"/"+string(a.Technology.Kind)] = true
		}
	}

	var screened []candidate
	for _, loc := range p.locations(ctx.Fleet) {
		for _, spec := range model.Technologies() {
			t := spec.Name
			if !allowed[t] || taken[loc+"/"+string(t)] {
				continue
			}
			price, ok := ctx.Market.ForecastPrice(spec.Product)
			if !ok {
				continue
			}
			q, err := in.Quote(model.QuoteRequest{
				Location: loc, Technology: t, Year: ctx.Year,
				Class: model.CapexGreenfield, CumulativeCapacity: ctx.Fleet.CumulativeCapacity(t),
			})
			if err != nil {
				return nil, err
			}
			cp, err := in.CarbonPriceAt(loc, ctx.Year)
			if err != nil {
				return nil, err
			}
			c := candidate{location: loc, tech: t, quote: q}
			c.proxy = Proxy(q, price, cp, p.Params.Capacity, p.utilization(q), p.Params.Cycle)
			if c.proxy > 0 {
				screened = append(screened, c)
			}
		}
	}
	sort.SliceStable(screened, func(i, j int) bool { return screened[i].proxy > screened[j].proxy })
	if p.Params.TopK > 0 && len(screened) > p.Params.TopK {
		screened = screened[:p.Params.TopK]
	}

	lead := p.Params.ConsiderationYears + p.Params.ConstructionYears + 1
	var kept []candidate
	for _, c := range screened {
		npv, err := p.npv(ctx, c.location, c.quote, p.utilization(c.quote), lead)
		if err != nil {
			return nil, err
		}
		p.Log.Debug("Pipeline: candidate", slog.String("location", c.location), slog.String("technology", string(c.tech)),
			slog.Float64("proxy", c.proxy), slog.Float64("npv", npv))
		if npv > 0 {
			c.npv = npv
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].npv > kept[j].npv })
	if p.Params.CandidatesPerYear > 0 && len(kept) > p.Params.CandidatesPerYear {
		kept = kept[:p.Params.CandidatesPerYear]
	}

	var cmds []model.Command
	for _, c := range kept {
		start := ctx.Year + lead
		a, err := model.NewAsset(model.AssetParams{
			Name:        fmt.Sprintf("%s-%s-%d", c.location, c.tech, ctx.Year),
			Location:    c.location,
			Capacity:    p.Params.Capacity,
			Utilization: p.utilization(c.quote),
			Technology:  c.quote.State(),
			Lifetime:    model.NewLifetime(ctx.Year, start, p.Params.Cycle),
			CostOfDebt:  c.quote.CostOfDebt,
			EquityShare: p.Params.EquityShare,
			Status:      model.StatusConsidered,
			ActiveYear:  start,
		})
		if err != nil {
			return nil, err
		}
		a.CostOfDebtNoSubsidy = c.quote.CostOfDebtNoSubsidy
		a.RecordNPV(ctx.Year, c.npv)
		ctx.Fleet.Add(a)

		cmd := model.NewCommand(ctx.Year, model.CommandAddAsset, a.ID)
		cmd.Technology = c.tech
		cmd.ToStatus = model.StatusConsidered
		cmd.NPV = c.npv
		cmds = append(cmds, cmd)
		p.Log.Info("Pipeline: new opportunity", slog.String("location", c.location),
			slog.String("technology", string(c.tech)), slog.Float64("npv", c.npv))
	}
	return cmds, nil
}

// npv values a new asset that starts operating lead years from now.
func (p *Pipeline) npv(ctx Context, location string, q model.Quote, utilization float64, lead int) (float64, error) {
	prices, ok := ctx.Market.PriceSeries(q.Technology.Product(), lead+p.Params.Cycle)
	if !ok {
		return finance.NPVSentinel, nil
	}
	prices = prices[lead:]
	carbon, err := ctx.Inputs.CarbonCostSeries(location, q.Chargeable, ctx.Year+lead, p.Params.Cycle)
	if err != nil {
		return 0, err
	}
	b, err := finance.FullNPV(finance.NPVInput{
		Investment:        q.Capex * p.Params.Capacity,
		Capacity:          p.Params.Capacity,
		Utilization:       utilization,
		UnitOpex:          []float64{q.UnitOpex(utilization)},
		UnitCarbonCost:    carbon,
		Prices:            prices,
		CostOfDebt:        q.CostOfDebt,
		CostOfEquity:      q.CostOfEquity,
		EquityShare:       p.Params.EquityShare,
		Lifetime:          p.Params.Cycle,
		ConstructionYears: lead,
	})
	if err != nil {
		return 0, err
	}
	return b.NPV, nil
}

// streak reports whether every one of the n years up to year has an NPV
// satisfying ok.
func streak(history map[int]float64, year, n int, ok func(float64) bool) bool {
	if n <= 0 {
		n = 1
	}
	for y := year - n + 1; y <= year; y++ {
		v, found := history[y]
		if !found || !ok(v) {
			return false
		}
	}
	return true
}

// Update re-prices every considered and announced asset over its remaining
// lead time and moves it along the lifecycle.
func (p *Pipeline) Update(ctx Context) ([]model.Command, error) {
	in := ctx.Inputs
	allowed := in.Allowed(ctx.Year)
	var cmds []model.Command
	for _, a := range ctx.Fleet.Assets() {
		if !a.Status.Prospective() {
			continue
		}
		if a.Status == model.StatusAnnounced && !allowed[a.Technology.Kind] {
			cmd, err := p.move(ctx, a, model.StatusDiscarded, "technology no longer allowed")
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd)
			continue
		}

		lead := p.Params.ConstructionYears + 1
		if a.Status == model.StatusConsidered {
			lead += p.remainingConsideration(a, ctx.Year)
		}
		q, err := in.Quote(model.QuoteRequest{
			Location: a.Location, Technology: a.Technology.Kind, Year: ctx.Year,
			Class: model.CapexGreenfield, CumulativeCapacity: ctx.Fleet.CumulativeCapacity(a.Technology.Kind),
		})
		if err != nil {
			return nil, err
		}
		npv, err := p.npv(ctx, a.Location, q, a.Utilization, lead)
		if err != nil {
			return nil, err
		}
		a.RecordNPV(ctx.Year, npv)
		a.Technology = q.State()
		a.CostOfDebt = q.CostOfDebt
		a.CostOfDebtNoSubsidy = q.CostOfDebtNoSubsidy
		a.ActiveYear = ctx.Year + lead
		a.Lifetime = model.NewLifetime(a.Lifetime.Current, a.ActiveYear, a.Lifetime.Cycle)

		cmd, moved, err := p.advance(ctx, a, npv)
		if err != nil {
			return nil, err
		}
		if moved {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// remainingConsideration is how many more years a considered asset has to
// prove itself before it could be announced.
func (p *Pipeline) remainingConsideration(a *model.Asset, year int) int {
	first := year
	for y := range a.NPVHistory {
		if y < first {
			first = y
		}
	}
	left := p.Params.ConsiderationYears - (year - first)
	if left < 0 {
		return 0
	}
	return left
}

func (p *Pipeline) advance(ctx Context, a *model.Asset, npv float64) (model.Command, bool, error) {
	n := p.Params.ConsiderationYears
	switch a.Status {
	case model.StatusConsidered:
		if streak(a.NPVHistory, ctx.Year, n, func(v float64) bool { return v < 0 }) {
			cmd, err := p.move(ctx, a, model.StatusDiscarded, fmt.Sprintf("NPV negative for %d years", n))
			return cmd, true, err
		}
		if streak(a.NPVHistory, ctx.Year, n, func(v float64) bool { return v > 0 }) && p.draw(p.Params.AnnouncementProbability) {
			cmd, err := p.move(ctx, a, model.StatusAnnounced, fmt.Sprintf("NPV positive for %d years", n))
			return cmd, true, err
		}
	case model.StatusAnnounced:
		if npv <= 0 || !p.draw(p.Params.ConstructionProbability) {
			return model.Command{}, false, nil
		}
		equity := a.EquityShare * a.Technology.Capex * a.Capacity
		if !ctx.Fleet.CanDraw(equity) {
			p.Log.Debug("Pipeline: fleet pool short", slog.String("asset", a.ID.String()), slog.Float64("equity", equity))
			return model.Command{}, false, nil
		}
		if ctx.Limits != nil && !ctx.Limits.Consume(a.Product(), a.Capacity) {
			return model.Command{}, false, nil
		}
		if err := ctx.Fleet.Draw(a.Location, equity); err != nil {
			return model.Command{}, false, err
		}
		a.ActiveYear = ctx.Year + max(p.Params.ConstructionYears, 1)
		a.Lifetime = model.NewLifetime(a.Lifetime.Current, a.ActiveYear, a.Lifetime.Cycle)
		cmd, err := p.move(ctx, a, model.StatusConstruction, "construction started")
		cmd.Cost = equity
		return cmd, true, err
	}
	return model.Command{}, false, nil
}

func (p *Pipeline) move(ctx Context, a *model.Asset, to model.Status, reason string) (model.Command, error) {
	from := a.Status
	if err := a.SetStatus(to); err != nil {
		return model.Command{}, err
	}
	cmd := model.StatusChange(ctx.Year, a, from, to, reason)
	if n, ok := a.NPVHistory[ctx.Year]; ok {
		cmd.NPV = n
	}
	p.Log.Info("Pipeline: status change", slog.String("asset", a.ID.String()),
		slog.String("from", string(from)), slog.String("to", string(to)), slog.String("reason", reason))
	return cmd, nil
}
