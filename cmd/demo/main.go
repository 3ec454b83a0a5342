package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/strategy"
)

// Demo:
// - Load a config and its scenario
// - Cost the opening fleet and clear the first year's market
// - Show every asset's candidates and the decision the engine takes
func main() {
	_ = godotenv.Load()
	cfgPath := flag.String("config", "configs/example.yaml", "Path to YAML config")
	verbose := flag.BoolP("verbose", "v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := run(*cfgPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, log *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	// Accept every affordable switch so the output is reproducible.
	cfg.Simulation.Deterministic = true
	sc, err := cfg.Scenario()
	if err != nil {
		return err
	}
	eng, err := cfg.NewEngine(sc, log)
	if err != nil {
		return err
	}
	year := cfg.Simulation.StartYear
	assets := eng.Fleet.Assets()
	for _, a := range assets {
		owner, _ := eng.Fleet.OwnerOf(a)
		if err := a.UpdateCosts(year, eng.Inputs, owner); err != nil {
			return err
		}
	}
	state, err := market.BuildState(year, assets, eng.Inputs, cfg.SimulationParams().Market)
	if err != nil {
		return err
	}
	fmt.Printf("Market %d\n", year)
	for _, p := range state.PricePoints() {
		fmt.Printf("  %-6s demand=%-10.0f supply=%-10.0f price=%-8.2f forecast=%-8.2f\n", p.Product, p.Demand, p.Supply, p.Price, p.ForecastPrice)
	}

	limits := model.NewCapacityLimits(cfg.Simulation.CapacityLimits)
	for _, a := range assets {
		if !a.Status.Active() {
			continue
		}
		owner, _ := eng.Fleet.OwnerOf(a)
		ctx := strategy.Context{
			Year: year, Asset: a, Owner: owner, Fleet: eng.Fleet,
			Market: state, Inputs: eng.Inputs, Limits: limits,
		}
		fmt.Printf("\n%s (%s at %s, %.0f t/yr, %d years left, unit cost %.2f $/t)\n",
			a.Name, a.Technology.Kind, a.Location, a.Capacity, a.Lifetime.Remaining(), a.Costs.UnitTotal())
		cands, err := eng.Strategy.Evaluate(ctx)
		if err != nil {
			return err
		}
		for _, c := range cands {
			kind := "stay"
			if c.Switch {
				kind = "switch"
			}
			fmt.Printf("  %-6s %-6s npv=%-16.0f cosa=%-14.0f capex=%.2f $/t\n", kind, c.Technology, c.NPV, c.COSA, c.Quote.Capex)
		}
		cmd, err := eng.Strategy.Decide(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  -> %s", cmd.Kind)
		if cmd.Technology != "" {
			fmt.Printf(" to %s from %d", cmd.Technology, cmd.EffectiveYear)
		}
		if cmd.Reason != "" {
			fmt.Printf(" (%s)", cmd.Reason)
		}
		fmt.Println()
	}
	return nil
}
