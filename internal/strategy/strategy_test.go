package strategy

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model/modeltest"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func flatMarket(p model.Product, price float64) *market.State {
	return &market.State{
		Year:   modeltest.Year,
		Points: map[model.Product]market.PricePoint{p: {Year: modeltest.Year, Product: p, Price: price, ForecastPrice: price}},
	}
}

func newContext(t *testing.T, in *model.Inputs, tech model.Technology, capacity, price float64) Context {
	t.Helper()
	f := model.NewFleet()
	a := modeltest.Asset(t, in, tech, capacity, modeltest.Year)
	return Context{
		Year:   modeltest.Year,
		Asset:  a,
		Owner:  f.Add(a),
		Fleet:  f,
		Market: flatMarket(a.Product(), price),
		Inputs: in,
		Limits: model.NewCapacityLimits(nil),
	}
}

func deterministic(p Params) *Engine {
	p.Deterministic = true
	return NewEngine(p, ArgMax{}, rand.New(rand.NewSource(1)), quietLogger())
}

// switchInputs makes BF uneconomic next to two otherwise identical DRI
// routes, one costing $300M to build and the other $500M.
func switchInputs() *model.Inputs {
	in := modeltest.Inputs()
	in.InputPrices["*"][modeltest.Year]["coking_coal"] = 2000
	in.AverageBOMs[model.TechDRIH2] = in.AverageBOMs[model.TechDRING]
	in.Capex["*"][model.TechDRING] = model.CapexEntry{Greenfield: 300, Brownfield: 300}
	in.Capex["*"][model.TechDRIH2] = model.CapexEntry{Greenfield: 500, Brownfield: 500}
	in.Transitions = map[model.Technology][]model.Technology{
		model.TechBF: {model.TechDRIH2, model.TechDRING},
	}
	return in
}

func TestDecidePicksNPVDominantSwitch(t *testing.T) {
	ctx := newContext(t, switchInputs(), model.TechBF, 1e6, 600)
	ctx.Owner.Credit(1e9)

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandChangeTechnology, cmd.Reason)
	assert.Equal(t, cmd.Technology, model.TechDRING)
	assert.Equal(t, cmd.EffectiveYear, modeltest.Year)
	assert.Assert(t, cmd.NPV > 0)

	a := ctx.Asset
	assert.Equal(t, a.Technology.Kind, model.TechDRING)
	assert.Equal(t, a.Status, model.StatusOperating)
	assert.Equal(t, a.Legacy.Len(), modeltest.Cycle, "BF debt is carried forward")
	assert.Assert(t, ctx.Owner.Balance.Equal(decimal.NewFromInt(1e9-0.2*300*1e6)))
}

func TestDecideClosesAtThreshold(t *testing.T) {
	in := modeltest.Inputs()
	ctx := newContext(t, in, model.TechEAF, 1000, 600)
	ctx.Asset.HistoricBalance = -ctx.Asset.ClosingThreshold()

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandClose)
	assert.Equal(t, ctx.Asset.Status, model.StatusClosed)
	assert.Equal(t, ctx.Asset.ClosedYear, modeltest.Year)
}

func TestDecideKeepsAssetJustAboveThreshold(t *testing.T) {
	in := modeltest.Inputs()
	ctx := newContext(t, in, model.TechEAF, 1000, 600)
	ctx.Asset.HistoricBalance = -ctx.Asset.ClosingThreshold() + 0.01

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Assert(t, cmd.Kind != model.CommandClose)
	assert.Assert(t, ctx.Asset.Status != model.StatusClosed)
}

func TestDecideSkips(t *testing.T) {
	in := modeltest.Inputs()

	ctx := newContext(t, in, model.TechEAF, 1000, 600)
	ctx.Owner.Credit(-1)
	ctx.Asset.HistoricBalance = -1e12
	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Check(t, is.Contains(cmd.Reason, "negative"))
	assert.Equal(t, ctx.Asset.Status, model.StatusOperating)

	ctx = newContext(t, in, model.TechEAF, 1000, 600)
	assert.NilError(t, ctx.Asset.SetStatus(model.StatusPreRetirement))
	ctx.Asset.HistoricBalance = -1e12
	cmd, err = deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Equal(t, ctx.Asset.Status, model.StatusPreRetirement)
}

func TestDecideRejectsWhenNothingPays(t *testing.T) {
	ctx := newContext(t, modeltest.Inputs(), model.TechEAF, 1000, 0)
	ctx.Owner.Credit(1e9)
	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Check(t, is.Contains(cmd.Reason, "positive NPV"))
}

func TestDecideNoMarketPrice(t *testing.T) {
	ctx := newContext(t, modeltest.Inputs(), model.TechEAF, 1000, 600)
	ctx.Market = flatMarket(model.ProductIron, 600)
	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
}

func expired(ctx Context) {
	ctx.Asset.Lifetime = model.NewLifetime(modeltest.Year, modeltest.Year-modeltest.Cycle, modeltest.Cycle)
}

func TestDecideRenovatesExpiredCycle(t *testing.T) {
	ctx := newContext(t, modeltest.Inputs(), model.TechEAF, 1000, 600)
	expired(ctx)
	ctx.Owner.Credit(1e6)

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandRenovate, cmd.Reason)
	assert.Equal(t, ctx.Asset.Lifetime.Start, modeltest.Year)
	assert.Equal(t, ctx.Asset.Lifetime.Remaining(), modeltest.Cycle)
	assert.Equal(t, ctx.Asset.Technology.Capex, 150.0)
	assert.Assert(t, ctx.Owner.Balance.Equal(decimal.NewFromInt(1e6-30000)))
}

func TestDecideClosesWhenRenovationUnaffordable(t *testing.T) {
	ctx := newContext(t, modeltest.Inputs(), model.TechEAF, 1000, 600)
	expired(ctx)

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandClose)
	assert.Equal(t, cmd.Reason, "renovation unaffordable")
	assert.Equal(t, ctx.Asset.Status, model.StatusClosed)
}

func TestDecideDefersUnaffordableSwitch(t *testing.T) {
	ctx := newContext(t, switchInputs(), model.TechBF, 1e6, 600)

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Check(t, is.Contains(cmd.Reason, "unaffordable"))
	assert.Equal(t, ctx.Asset.Technology.Kind, model.TechBF)
	assert.Equal(t, ctx.Asset.Status, model.StatusOperating)
}

func TestDecideRespectsCapacityLimit(t *testing.T) {
	ctx := newContext(t, switchInputs(), model.TechBF, 1e6, 600)
	ctx.Owner.Credit(1e9)
	ctx.Limits = model.NewCapacityLimits(map[model.Product]float64{model.ProductIron: 1e5})

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Check(t, is.Contains(cmd.Reason, "limit"))
	assert.Assert(t, ctx.Owner.Balance.Equal(decimal.NewFromInt(1e9)), "nothing is spent")
	assert.Equal(t, ctx.Limits.Remaining(model.ProductIron), 1e5)
}

func TestDecideDefersSwitchByConstructionLag(t *testing.T) {
	ctx := newContext(t, switchInputs(), model.TechBF, 1e6, 600)
	ctx.Owner.Credit(1e9)
	e := deterministic(Params{ConstructionYears: 2})

	cmd, err := e.Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandChangeTechnology)
	assert.Equal(t, cmd.EffectiveYear, modeltest.Year+2)
	a := ctx.Asset
	assert.Equal(t, a.Status, model.StatusSwitching)
	assert.Equal(t, a.Technology.Kind, model.TechBF, "old technology runs until the switch is due")

	ctx.Year++
	a.AdvanceYear()
	cmd, err = e.Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)

	done, err := a.ApplyPendingSwitch(modeltest.Year + 2)
	assert.NilError(t, err)
	assert.Assert(t, done)
	assert.Equal(t, a.Technology.Kind, model.TechDRING)
}

func TestDecideHonoursAllowList(t *testing.T) {
	in := switchInputs()
	in.AllowedTechnologies = map[int][]model.Technology{modeltest.Year: {model.TechBF}}
	ctx := newContext(t, in, model.TechBF, 1e6, 600)
	ctx.Owner.Credit(1e9)

	cmd, err := deterministic(Params{}).Decide(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cmd.Kind, model.CommandNone)
	assert.Equal(t, ctx.Asset.Technology.Kind, model.TechBF)
}

func TestDecideMissingDataIsAnError(t *testing.T) {
	in := switchInputs()
	delete(in.Capex["*"], model.TechDRING)
	ctx := newContext(t, in, model.TechBF, 1e6, 600)

	_, err := deterministic(Params{}).Decide(ctx)
	assert.Assert(t, errors.Is(err, model.ErrMissingData))
	assert.ErrorContains(t, err, "DRING")
}

func TestSwitchIsPricedFromFirstOperatingYear(t *testing.T) {
	e := deterministic(Params{ConstructionYears: 2})
	switchCandidate := func(price float64) Candidate {
		ctx := newContext(t, switchInputs(), model.TechBF, 1e6, 600)
		ctx.Market = &market.State{Year: modeltest.Year, Points: map[model.Product]market.PricePoint{
			model.ProductIron: {Year: modeltest.Year, Product: model.ProductIron, Price: price, ForecastPrice: 600},
		}}
		cands, err := e.Evaluate(ctx)
		assert.NilError(t, err)
		for _, c := range cands {
			if c.Switch && c.Technology == model.TechDRING {
				return c
			}
		}
		t.Fatal("no DRING candidate")
		return Candidate{}
	}

	// The switch only runs after construction, so this year's clearing
	// price must not enter its revenue.
	low, high := switchCandidate(100), switchCandidate(600)
	assert.Equal(t, low.Breakdown.Revenue, high.Breakdown.Revenue)
	assert.Equal(t, low.Breakdown.NPV, high.Breakdown.NPV)
}

func TestStrandedCostNeedsMarketPrice(t *testing.T) {
	ctx := newContext(t, modeltest.Inputs(), model.TechBF, 1000, 600)
	ctx.Market = flatMarket(model.ProductSteel, 600)
	_, err := deterministic(Params{}).strandedCost(ctx, model.Quote{})
	assert.ErrorContains(t, err, "no iron market price")
}

func TestAcceptanceProbability(t *testing.T) {
	_, err := AcceptanceProbability(10, 0)
	assert.Assert(t, errors.Is(err, ErrNonPositiveNPV))
	_, err = AcceptanceProbability(10, -5)
	assert.Assert(t, errors.Is(err, ErrNonPositiveNPV))

	p, err := AcceptanceProbability(0, 100)
	assert.NilError(t, err)
	assert.Equal(t, p, 1.0)

	f := func(cost, npv uint32) bool {
		p, err := AcceptanceProbability(float64(cost), float64(npv)+1)
		return err == nil && p >= 0 && p <= 1
	}
	assert.NilError(t, quick.Check(f, &quick.Config{MaxCount: 300, Rand: rand.New(rand.NewSource(5))}))
}

func TestArgMaxPrefersEarlierOnTie(t *testing.T) {
	c, ok := ArgMax{}.Select([]Candidate{
		{Technology: model.TechBF, NPV: 10},
		{Technology: model.TechDRING, Switch: true, NPV: 10},
	})
	assert.Assert(t, ok)
	assert.Equal(t, c.Technology, model.TechBF)
}

func TestWeightedNeverDrawsNonPositive(t *testing.T) {
	w := &Weighted{Rand: rand.New(rand.NewSource(9))}
	cands := []Candidate{
		{Technology: model.TechBF, NPV: -5},
		{Technology: model.TechDRING, NPV: 0},
		{Technology: model.TechDRIH2, NPV: 30},
		{Technology: model.TechESF, NPV: 70},
	}
	seen := map[model.Technology]int{}
	for i := 0; i < 2000; i++ {
		c, ok := w.Select(cands)
		assert.Assert(t, ok)
		seen[c.Technology]++
	}
	assert.Equal(t, seen[model.TechBF], 0)
	assert.Equal(t, seen[model.TechDRING], 0)
	assert.Assert(t, seen[model.TechESF] > seen[model.TechDRIH2])

	_, ok := w.Select(cands[:2])
	assert.Assert(t, !ok)
}

func TestNewSelector(t *testing.T) {
	s, err := NewSelector("", nil)
	assert.NilError(t, err)
	assert.Equal(t, s.Name(), "argmax")

	_, err = NewSelector("weighted", nil)
	assert.ErrorContains(t, err, "random source")

	s, err = NewSelector("weighted", rand.New(rand.NewSource(1)))
	assert.NilError(t, err)
	assert.Equal(t, s.Name(), "weighted")

	_, err = NewSelector("oracle", nil)
	assert.ErrorContains(t, err, "unknown selection strategy")
}
