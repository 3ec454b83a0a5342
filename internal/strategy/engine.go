package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/systemiqofficial/steel-iq-sub000/internal/finance"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// ErrNonPositiveNPV is returned when a switch acceptance probability is
// asked for an NPV that is not strictly positive.
var ErrNonPositiveNPV = errors.New("strategy: acceptance probability needs NPV > 0")

// Params configures the decision engine.
type Params struct {
	// ConstructionYears is the lag between approving a switch and the
	// technology actually changing.
	ConstructionYears int
	// Deterministic accepts every affordable switch instead of drawing
	// against exp(-cost/NPV).
	Deterministic bool
}

type Engine struct {
	Params   Params
	Selector Selector
	Rand     *rand.Rand
	Log      *slog.Logger
}

func NewEngine(p Params, sel Selector, rng *rand.Rand, log *slog.Logger) *Engine {
	if sel == nil {
		sel = ArgMax{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Params: p, Selector: sel, Rand: rng, Log: log}
}

// AcceptanceProbability is exp(-cost/npv), the chance an owner goes ahead
// with a switch costing cost in equity for npv of value.
func AcceptanceProbability(cost, npv float64) (float64, error) {
	if !(npv > 0) {
		return 0, fmt.Errorf("%w: got %g", ErrNonPositiveNPV, npv)
	}
	return math.Exp(-math.Max(cost, 0) / npv), nil
}

// Decide evaluates one asset and applies the outcome to it, its owner and
// the capacity limits. Constraints that block an action produce a command
// of kind none; only missing input data is an error.
func (e *Engine) Decide(ctx Context) (model.Command, error) {
	a := ctx.Asset
	year := ctx.Year
	log := e.Log.With(slog.String("asset", a.ID.String()), slog.Int("year", year), slog.String("technology", string(a.Technology.Kind)))

	if ctx.Owner.Negative() {
		return model.NoAction(year, a.ID, "owner balance is negative"), nil
	}
	switch a.Status {
	case model.StatusPreRetirement:
		return model.NoAction(year, a.ID, "pre-retirement"), nil
	case model.StatusOperating, model.StatusSwitching:
	default:
		return model.NoAction(year, a.ID, fmt.Sprintf("not evaluated while %s", a.Status)), nil
	}

	if a.HistoricBalance <= -a.ClosingThreshold() {
		if err := a.Close(year); err != nil {
			return model.Command{}, err
		}
		c := model.NewCommand(year, model.CommandClose, a.ID)
		c.Technology = a.Technology.Kind
		c.Reason = fmt.Sprintf("historic balance %.0f breached closing threshold %.0f", a.HistoricBalance, a.ClosingThreshold())
		log.Info("Strategy: closing asset", slog.String("reason", c.Reason))
		return c, nil
	}
	if a.Status == model.StatusSwitching {
		return model.NoAction(year, a.ID, "switch pending"), nil
	}

	cands, err := e.evaluate(ctx, log)
	if err != nil {
		return model.Command{}, err
	}
	if len(cands) == 0 {
		return model.NoAction(year, a.ID, "no market price"), nil
	}
	positive := false
	for _, c := range cands {
		positive = positive || c.NPV > 0
	}
	if !positive {
		return model.NoAction(year, a.ID, "no option with positive NPV"), nil
	}

	chosen, _ := ArgMax{}.Select(cands)
	if chosen.Switch {
		if chosen, _ = e.Selector.Select(cands); !chosen.Switch {
			log.Debug("Strategy: draw kept current technology")
		}
	}
	if !chosen.Switch {
		return e.stay(ctx, chosen, log)
	}
	return e.switchTo(ctx, chosen, log)
}

// Evaluate prices the candidates for ctx.Asset without acting on them.
func (e *Engine) Evaluate(ctx Context) ([]Candidate, error) {
	return e.evaluate(ctx, e.Log)
}

// evaluate prices staying on the current technology and every allowed
// switch. The current technology is always the first candidate.
func (e *Engine) evaluate(ctx Context, log *slog.Logger) ([]Candidate, error) {
	a := ctx.Asset
	in := ctx.Inputs

	stay, ok, err := e.evaluateStay(ctx)
	if err != nil || !ok {
		return nil, err
	}
	cands := []Candidate{stay}

	allowed := in.Allowed(ctx.Year)
	var cosa *float64
	for _, t := range in.TransitionsFrom(a.Technology.Kind) {
		if !allowed[t] {
			continue
		}
		if cosa == nil {
			v, err := e.strandedCost(ctx, stay.Quote)
			if err != nil {
				return nil, err
			}
			cosa = &v
		}
		c, err := e.evaluateSwitch(ctx, t, *cosa)
		if err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	for _, c := range cands {
		log.Debug("Strategy: candidate",
			slog.String("candidate", string(c.Technology)),
			slog.Bool("switch", c.Switch),
			slog.Float64("npv", c.NPV),
			slog.Float64("cosa", c.COSA),
			slog.Float64("revenue", c.Breakdown.Revenue),
			slog.Float64("opex", c.Breakdown.Opex),
			slog.Float64("carbon", c.Breakdown.CarbonCost),
			slog.Float64("debt", c.Breakdown.DebtService),
			slog.Float64("equity", c.Breakdown.EquityInvestment),
		)
	}
	return cands, nil
}

func (e *Engine) quote(ctx Context, t model.Technology, class model.CapexClass) (model.Quote, error) {
	return ctx.Inputs.Quote(model.QuoteRequest{
		Location:           ctx.Asset.Location,
		Technology:         t,
		Year:               ctx.Year,
		Class:              class,
		CumulativeCapacity: ctx.Fleet.CumulativeCapacity(t),
		CarbonCapture:      ctx.Asset.CarbonCapture,
	})
}

// evaluateStay values running the current technology: over the rest of the
// cycle on its existing debt, or over a new cycle after renovation once the
// cycle has expired.
func (e *Engine) evaluateStay(ctx Context) (Candidate, bool, error) {
	a := ctx.Asset
	q, err := e.quote(ctx, a.Technology.Kind, model.CapexBrownfield)
	if err != nil {
		return Candidate{}, false, err
	}
	in := finance.NPVInput{
		Capacity:     a.Capacity,
		Utilization:  a.Utilization,
		UnitOpex:     []float64{q.UnitOpex(a.Utilization)},
		CostOfDebt:   a.CostOfDebt,
		CostOfEquity: q.CostOfEquity,
		EquityShare:  a.EquityShare,
	}
	if a.Lifetime.Expired() {
		in.Investment = q.Capex * a.Capacity
		in.CostOfDebt = q.CostOfDebt
		in.Lifetime = a.Lifetime.Cycle
	} else {
		in.Lifetime = a.Lifetime.Remaining()
		debt, err := a.OwnDebtPayments()
		if err != nil {
			return Candidate{}, false, err
		}
		in.DebtPayments = debt
	}
	ok, err := e.fillSeries(ctx, &in, q, 0)
	if err != nil || !ok {
		return Candidate{}, ok, err
	}
	b, err := finance.FullNPV(in)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("asset %s: stay NPV: %w", a.ID, err)
	}
	return Candidate{Technology: a.Technology.Kind, Quote: q, NPV: b.NPV, Breakdown: b}, true, nil
}

func (e *Engine) evaluateSwitch(ctx Context, t model.Technology, cosa float64) (Candidate, error) {
	a := ctx.Asset
	q, err := e.quote(ctx, t, model.CapexBrownfield)
	if err != nil {
		return Candidate{}, err
	}
	in := finance.NPVInput{
		Investment:        q.Capex * a.Capacity,
		Capacity:          a.Capacity,
		Utilization:       a.Utilization,
		UnitOpex:          []float64{q.UnitOpex(a.Utilization)},
		CostOfDebt:        q.CostOfDebt,
		CostOfEquity:      q.CostOfEquity,
		EquityShare:       a.EquityShare,
		Lifetime:          a.Lifetime.Cycle,
		ConstructionYears: e.Params.ConstructionYears,
	}
	ok, err := e.fillSeries(ctx, &in, q, e.Params.ConstructionYears)
	if err != nil {
		return Candidate{}, err
	}
	if !ok {
		return Candidate{}, fmt.Errorf("asset %s: switch to %s: no %s market price", a.ID, t, a.Product())
	}
	b, err := finance.FullNPV(in)
	if err != nil {
		return Candidate{}, fmt.Errorf("asset %s: switch to %s NPV: %w", a.ID, t, err)
	}
	npv := b.NPV
	if npv > finance.NPVSentinel {
		npv -= cosa
	}
	return Candidate{Technology: t, Switch: true, Quote: q, NPV: npv, COSA: cosa, Breakdown: b}, nil
}

// fillSeries sets the price and carbon cost paths for an asset operating
// in.Lifetime years after lag years of construction. Both paths start in
// the first operating year, ctx.Year+lag.
func (e *Engine) fillSeries(ctx Context, in *finance.NPVInput, q model.Quote, lag int) (bool, error) {
	if in.Lifetime == 0 {
		return true, nil
	}
	prices, ok := ctx.Market.PriceSeries(ctx.Asset.Product(), lag+in.Lifetime)
	if !ok {
		return false, nil
	}
	carbon, err := ctx.Inputs.CarbonCostSeries(ctx.Asset.Location, q.Chargeable, ctx.Year+lag, in.Lifetime)
	if err != nil {
		return false, err
	}
	in.Prices = prices[lag:]
	in.UnitCarbonCost = carbon
	return true, nil
}

// strandedCost is what abandoning the current technology now gives up.
func (e *Engine) strandedCost(ctx Context, current model.Quote) (float64, error) {
	a := ctx.Asset
	rem := a.Lifetime.Remaining()
	if rem == 0 {
		return 0, nil
	}
	debt, err := a.OwnDebtPayments()
	if err != nil {
		return 0, err
	}
	prices, ok := ctx.Market.PriceSeries(a.Product(), rem)
	if !ok {
		return 0, fmt.Errorf("asset %s: stranded cost: no %s market price", a.ID, a.Product())
	}
	carbon, err := ctx.Inputs.CarbonCostSeries(a.Location, current.Chargeable, ctx.Year, rem)
	if err != nil {
		return 0, err
	}
	opex := make([]float64, rem)
	for i := range opex {
		opex[i] = current.UnitOpex(a.Utilization) + carbon[i]
	}
	return finance.StrandedAssetCost(debt, opex, prices, rem, a.Production(), current.CostOfEquity)
}

func (e *Engine) stay(ctx Context, chosen Candidate, log *slog.Logger) (model.Command, error) {
	a := ctx.Asset
	year := ctx.Year
	if !a.Lifetime.Expired() {
		return model.NoAction(year, a.ID, "current technology is best"), nil
	}

	cost := a.EquityShare * chosen.Quote.Capex * a.Capacity
	if err := ctx.Owner.Withdraw(cost); err != nil {
		if !errors.Is(err, model.ErrInsufficientBalance) {
			return model.Command{}, err
		}
		if err := a.Close(year); err != nil {
			return model.Command{}, err
		}
		c := model.NewCommand(year, model.CommandClose, a.ID)
		c.Technology = a.Technology.Kind
		c.Cost = cost
		c.Reason = "renovation unaffordable"
		log.Info("Strategy: closing asset", slog.String("reason", c.Reason), slog.Float64("cost", cost))
		return c, nil
	}
	if err := a.Renovate(year, chosen.Quote.Capex, chosen.Quote.CostOfDebt); err != nil {
		return model.Command{}, err
	}
	a.CostOfDebtNoSubsidy = chosen.Quote.CostOfDebtNoSubsidy
	a.Technology.CapexNoSubsidy = chosen.Quote.CapexNoSubsidy

	c := model.NewCommand(year, model.CommandRenovate, a.ID)
	c.Technology = a.Technology.Kind
	c.NPV = chosen.NPV
	c.Cost = cost
	log.Info("Strategy: renovating", slog.Float64("npv", chosen.NPV), slog.Float64("cost", cost))
	return c, nil
}

func (e *Engine) switchTo(ctx Context, chosen Candidate, log *slog.Logger) (model.Command, error) {
	a := ctx.Asset
	year := ctx.Year
	cost := a.EquityShare * chosen.Quote.Capex * a.Capacity
	if !ctx.Owner.CanAfford(cost) {
		return model.NoAction(year, a.ID, fmt.Sprintf("switch to %s unaffordable, deferred", chosen.Technology)), nil
	}

	p := 1.0
	if !e.Params.Deterministic {
		var err error
		if p, err = AcceptanceProbability(cost, chosen.NPV); err != nil {
			return model.Command{}, err
		}
		if e.Rand.Float64() >= p {
			return model.NoAction(year, a.ID, fmt.Sprintf("switch to %s not accepted (p=%.3f)", chosen.Technology, p)), nil
		}
	}
	if ctx.Limits != nil && !ctx.Limits.Consume(a.Product(), a.Capacity) {
		return model.NoAction(year, a.ID, fmt.Sprintf("%s capacity addition limit reached", a.Product())), nil
	}
	if err := ctx.Owner.Withdraw(cost); err != nil {
		return model.Command{}, err
	}

	effective := year + e.Params.ConstructionYears
	err := a.ScheduleSwitch(model.PendingSwitch{
		Target:              chosen.Quote.State(),
		Year:                effective,
		CostOfDebt:          chosen.Quote.CostOfDebt,
		CostOfDebtNoSubsidy: chosen.Quote.CostOfDebtNoSubsidy,
	})
	if err != nil {
		return model.Command{}, err
	}
	if _, err := a.ApplyPendingSwitch(year); err != nil {
		return model.Command{}, err
	}

	c := model.NewCommand(year, model.CommandChangeTechnology, a.ID)
	c.Technology = chosen.Technology
	c.FromStatus = model.StatusOperating
	c.ToStatus = a.Status
	c.NPV = chosen.NPV
	c.Cost = cost
	c.EffectiveYear = effective
	log.Info("Strategy: switching technology",
		slog.String("to", string(chosen.Technology)),
		slog.Int("effective_year", effective),
		slog.Float64("npv", chosen.NPV),
		slog.Float64("cost", cost),
		slog.Float64("acceptance", p),
	)
	return c, nil
}
