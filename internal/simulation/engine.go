// Package simulation steps a fleet through the years: costs, market
// clearing, balances, decisions and new-asset pipeline, in that order.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/opportunity"
	"github.com/systemiqofficial/steel-iq-sub000/internal/strategy"
)

// Params configures a run.
type Params struct {
	StartYear int
	EndYear   int // inclusive
	// PreRetirementYears is how long before its retirement year an asset
	// stops being evaluated.
	PreRetirementYears int
	Market             market.Config
	CapacityLimits     map[model.Product]float64
}

func (p Params) Validate() error {
	if p.StartYear <= 0 || p.EndYear < p.StartYear {
		return fmt.Errorf("invalid year range %d-%d", p.StartYear, p.EndYear)
	}
	if p.PreRetirementYears < 0 {
		return errors.New("pre-retirement years must be >= 0")
	}
	if p.Market.Lag < 0 {
		return errors.New("market lag must be >= 0")
	}
	return nil
}

type Engine struct {
	Params   Params
	Inputs   *model.Inputs
	Fleet    *model.Fleet
	Strategy *strategy.Engine
	Pipeline *opportunity.Pipeline // nil runs without new assets
	Rand     *rand.Rand
	Log      *slog.Logger

	limits *model.CapacityLimits
	result *Result
}

func New(p Params, in *model.Inputs, fleet *model.Fleet, strat *strategy.Engine, pipe *opportunity.Pipeline, rng *rand.Rand, log *slog.Logger) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.New("inputs are nil")
	}
	if fleet == nil {
		return nil, errors.New("fleet is nil")
	}
	if strat == nil {
		return nil, errors.New("strategy is nil")
	}
	if rng == nil {
		return nil, errors.New("random source is nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		Params:   p,
		Inputs:   in,
		Fleet:    fleet,
		Strategy: strat,
		Pipeline: pipe,
		Rand:     rng,
		Log:      log,
		limits:   model.NewCapacityLimits(p.CapacityLimits),
		result:   &Result{Fleet: fleet, StartYear: p.StartYear, EndYear: p.EndYear},
	}, nil
}

// Run steps every year from StartYear to EndYear. It stops between years
// when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	for year := e.Params.StartYear; year <= e.Params.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return e.result, err
		}
		if err := e.Step(year); err != nil {
			return e.result, fmt.Errorf("year %d: %w", year, err)
		}
	}
	return e.result, nil
}

// Result is what a run has produced so far.
func (e *Engine) Result() *Result { return e.result }

// Step runs one simulated year.
func (e *Engine) Step(year int) error {
	assets := e.Fleet.Assets()
	var cmds []model.Command
	emit := func(c model.Command) { cmds = append(cmds, c) }

	if err := e.progress(year, assets, emit); err != nil {
		return err
	}
	for _, a := range assets {
		if !a.Status.Active() && a.Status != model.StatusConstruction {
			continue
		}
		owner, ok := e.Fleet.OwnerOf(a)
		if !ok {
			return fmt.Errorf("asset %s has no owner", a.ID)
		}
		if err := a.UpdateCosts(year, e.Inputs, owner); err != nil {
			return err
		}
		c := model.NewCommand(year, model.CommandUpdateDynamicCosts, a.ID)
		c.Technology = a.Technology.Kind
		c.Cost = a.Costs.UnitTotal()
		emit(c)
	}

	state, err := market.BuildState(year, assets, e.Inputs, e.Params.Market)
	if err != nil {
		return err
	}
	prices := map[uuid.UUID]float64{}
	for _, a := range assets {
		if !a.Status.Active() {
			continue
		}
		price, _ := state.Price(a.Product())
		owner, ok := e.Fleet.OwnerOf(a)
		if !ok {
			return fmt.Errorf("asset %s has no owner", a.ID)
		}
		owner.Credit(a.RecordBalance(price))
		prices[a.ID] = price
	}
	e.limits.Reset()

	order := make([]*model.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Status.Active() {
			order = append(order, a)
		}
	}
	e.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, a := range order {
		owner, _ := e.Fleet.OwnerOf(a)
		c, err := e.Strategy.Decide(strategy.Context{
			Year:   year,
			Asset:  a,
			Owner:  owner,
			Fleet:  e.Fleet,
			Market: state,
			Inputs: e.Inputs,
			Limits: e.limits,
		})
		if err != nil {
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
		if c.Acts() {
			emit(c)
		}
	}

	if e.Pipeline != nil {
		pctx := opportunity.Context{Year: year, Fleet: e.Fleet, Market: state, Inputs: e.Inputs, Limits: e.limits}
		updated, err := e.Pipeline.Update(pctx)
		if err != nil {
			return fmt.Errorf("pipeline update: %w", err)
		}
		added, err := e.Pipeline.Generate(pctx)
		if err != nil {
			return fmt.Errorf("pipeline generate: %w", err)
		}
		cmds = append(cmds, updated...)
		cmds = append(cmds, added...)
	}

	e.record(year, assets, prices, cmds)
	e.result.Prices = append(e.result.Prices, state.PricePoints()...)
	e.result.Commands = append(e.result.Commands, cmds...)

	for _, a := range e.Fleet.Assets() {
		a.AdvanceYear()
	}
	e.Log.Info("Simulation: year complete",
		slog.Int("year", year),
		slog.Int("assets", len(assets)),
		slog.Int("commands", len(cmds)),
	)
	return nil
}

// progress applies everything that is due this year before any cost or
// decision: finished constructions, deferred technology switches and
// retirements.
func (e *Engine) progress(year int, assets []*model.Asset, emit func(model.Command)) error {
	for _, a := range assets {
		from := a.Status
		done, err := a.Commission(year)
		if err != nil {
			return err
		}
		if done {
			emit(model.StatusChange(year, a, from, a.Status, "construction finished"))
			continue
		}

		done, err = a.ApplyPendingSwitch(year)
		if err != nil {
			return err
		}
		if done {
			emit(model.StatusChange(year, a, from, a.Status, "technology change took effect"))
			continue
		}

		if a.RetirementYear == 0 {
			continue
		}
		switch {
		case a.Status == model.StatusPreRetirement && year >= a.RetirementYear:
			if err := a.Close(year); err != nil {
				return err
			}
			c := model.NewCommand(year, model.CommandClose, a.ID)
			c.Technology = a.Technology.Kind
			c.Reason = "retirement year reached"
			emit(c)
		case a.Status == model.StatusOperating && year >= a.RetirementYear-e.Params.PreRetirementYears:
			if err := a.SetStatus(model.StatusPreRetirement); err != nil {
				return err
			}
			emit(model.StatusChange(year, a, from, a.Status, "approaching retirement"))
		}
	}
	return nil
}
