package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/systemiqofficial/steel-iq-sub000/internal/analysis"
	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "simulate":
		err = cmdSimulate(os.Args[2:])
	case "prices":
		err = cmdPrices(os.Args[2:])
	case "technologies":
		cmdTechnologies()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config configs/example.yaml [--out results/ledger.csv] [--prices results/prices.csv] [--commands results/commands.csv] [--db results/runs.db]")
	fmt.Println("  cli prices --db results/runs.db --run <id>")
	fmt.Println("  cli technologies")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate writes one ledger row per asset per year; flags override the config's output section")
	fmt.Println("  - prices prints the stored clearing prices of a saved run")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func cmdSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "", "Ledger CSV path")
	pricesPath := fs.String("prices", "", "Prices CSV path")
	commandsPath := fs.String("commands", "", "Commands CSV path")
	dbPath := fs.String("db", os.Getenv("STEELIQ_DB"), "SQLite database to save the run in")
	seed := fs.Int64("seed", 0, "Override simulation.seed")
	verbose := fs.BoolP("verbose", "v", false, "Log every candidate NPV")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		return fmt.Errorf("--config is required")
	}
	log := newLogger(*verbose)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if fs.Changed("seed") {
		cfg.Simulation.Seed = *seed
	}
	out := cfg.Output
	override(&out.LedgerCSV, *outPath)
	override(&out.PricesCSV, *pricesPath)
	override(&out.CommandsCSV, *commandsPath)
	override(&out.SQLite, *dbPath)

	sc, err := cfg.Scenario()
	if err != nil {
		return err
	}
	eng, err := cfg.NewEngine(sc, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeOutputs(res, out); err != nil {
		return err
	}
	if out.SQLite != "" {
		id := uuid.New()
		if err := saveRun(ctx, out.SQLite, id, cfg.Name, res); err != nil {
			return err
		}
		fmt.Printf("Saved run %s to %s\n", id, out.SQLite)
	}

	fmt.Printf("Simulated %d-%d: %d ledger rows, %d commands\n", res.StartYear, res.EndYear, len(res.Ledger), len(res.Commands))
	printPriceStats(analysis.PriceStatsByProduct(res))
	fmt.Println("")
	fmt.Printf("%-4s %-10s %-18s %-8s %-14s\n", "rank", "location", "balance", "assets", "capacity")
	for i, r := range analysis.RankOwnersByBalance(res.Fleet) {
		fmt.Printf("%-4d %-10s %-18s %-8d %-14.0f\n", i+1, r.Location, r.Balance.StringFixed(0), r.Assets, r.Capacity)
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func writeOutputs(res *simulation.Result, out config.OutputConfig) error {
	writes := []struct {
		path  string
		write func(string) error
	}{
		{out.LedgerCSV, func(p string) error { return simulation.WriteLedgerCSV(p, res.Ledger) }},
		{out.PricesCSV, func(p string) error { return simulation.WritePricesCSV(p, res.Prices) }},
		{out.CommandsCSV, func(p string) error { return simulation.WriteCommandsCSV(p, res.Commands) }},
	}
	for _, w := range writes {
		if w.path == "" {
			continue
		}
		// ensure output dir exists
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return err
		}
		if err := w.write(w.path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", w.path)
	}
	return nil
}

func saveRun(ctx context.Context, path string, id uuid.UUID, name string, res *simulation.Result) error {
	st, err := store.New(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, id, name, res)
}

func cmdPrices(args []string) error {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	dbPath := fs.String("db", os.Getenv("STEELIQ_DB"), "SQLite database")
	runID := fs.String("run", "", "Run id")
	_ = fs.Parse(args)

	if *dbPath == "" || *runID == "" {
		return fmt.Errorf("--db and --run are required")
	}
	id, err := uuid.Parse(*runID)
	if err != nil {
		return fmt.Errorf("--run: %w", err)
	}
	st, err := store.New(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	points, err := st.LoadPrices(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-6s %-12s %-12s %-10s %-10s %-6s\n", "year", "product", "demand", "supply", "price", "forecast", "scarce")
	for _, p := range points {
		fmt.Printf("%-6d %-6s %-12.0f %-12.0f %-10.2f %-10.2f %-6t\n", p.Year, p.Product, p.Demand, p.Supply, p.Price, p.ForecastPrice, p.Scarce)
	}
	return nil
}

func cmdTechnologies() {
	fmt.Printf("%-6s %-6s %-40s %s\n", "name", "makes", "inputs", "switches to")
	for _, t := range model.Technologies() {
		inputs := append(append([]model.Key{}, t.Materials...), t.Energy...)
		fmt.Printf("%-6s %-6s %-40v %v\n", t.Name, t.Product, inputs, t.Transitions)
	}
}

func printPriceStats(stats []analysis.PriceStats) {
	fmt.Printf("%-6s %-6s %-10s %-10s %-10s %-10s %-8s\n", "product", "years", "mean", "min", "max", "p95-p05", "scarce")
	for _, s := range stats {
		fmt.Printf("%-6s %-6d %-10.2f %-10.2f %-10.2f %-10.2f %-8d\n", s.Product, s.Count, s.Mean, s.Min, s.Max, s.Spread, s.ScarceYears)
	}
}
