package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"

	"github.com/systemiqofficial/steel-iq-sub000/internal/market"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "results", "runs.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *simulation.Result {
	asset := uuid.New()
	return &simulation.Result{
		StartYear: 2025,
		EndYear:   2026,
		Ledger: []simulation.LedgerRow{
			{Year: 2025, AssetID: asset, Name: "a", Location: "DE", Technology: model.TechEAF, Product: model.ProductSteel,
				Status: model.StatusOperating, Capacity: 100, Production: 80, Price: 400, Command: model.CommandNone},
			{Year: 2026, AssetID: asset, Name: "a", Location: "DE", Technology: model.TechEAF, Product: model.ProductSteel,
				Status: model.StatusOperating, Capacity: 100, Production: 80, Price: 410, Command: model.CommandNone},
		},
		Prices: []market.PricePoint{
			{Year: 2026, Product: model.ProductSteel, Demand: 80, Supply: 100, Price: 410, ForecastPrice: 420},
			{Year: 2025, Product: model.ProductSteel, Demand: 90, Supply: 100, Price: 400, ForecastPrice: 415},
			{Year: 2025, Product: model.ProductIron, Demand: 120, Supply: 100, Price: 350, Scarce: true},
		},
		Commands: []model.Command{
			model.NoAction(2025, asset, "nothing pays"),
			{ID: uuid.New(), Year: 2026, Kind: model.CommandChangeTechnology, AssetID: asset, Technology: model.TechMOE,
				FromStatus: model.StatusOperating, ToStatus: model.StatusSwitching, NPV: 1e6, Cost: 2e5, EffectiveYear: 2030},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()
	assert.NilError(t, s.SaveRun(ctx, id, "baseline", sampleResult()))

	run, err := s.GetRun(ctx, id)
	assert.NilError(t, err)
	assert.Equal(t, run.ID, id)
	assert.Equal(t, run.Name, "baseline")
	assert.Equal(t, run.EndYear, 2026)

	prices, err := s.LoadPrices(ctx, id)
	assert.NilError(t, err)
	assert.Equal(t, len(prices), 3)
	assert.Equal(t, prices[0].Year, 2025)
	assert.Equal(t, prices[0].Product, model.ProductIron)
	assert.Assert(t, prices[0].Scarce)
	assert.Equal(t, prices[2].ForecastPrice, 420.0)

	n, err := s.LedgerRows(ctx, id)
	assert.NilError(t, err)
	assert.Equal(t, n, 2)

	switches, err := s.LoadCommands(ctx, id, model.CommandChangeTechnology)
	assert.NilError(t, err)
	assert.Equal(t, len(switches), 1)
	assert.Equal(t, switches[0].Technology, model.TechMOE)
	assert.Equal(t, switches[0].EffectiveYear, 2030)
	assert.Equal(t, switches[0].ToStatus, model.StatusSwitching)

	all, err := s.LoadCommands(ctx, id)
	assert.NilError(t, err)
	assert.Equal(t, len(all), 2)
	assert.Equal(t, all[0].Reason, "nothing pays")
}

func TestRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadPrices(context.Background(), uuid.New())
	assert.Assert(t, errors.Is(err, store.ErrRunNotFound))
}

func TestSaveRunTwiceFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()
	assert.NilError(t, s.SaveRun(ctx, id, "a", sampleResult()))
	assert.ErrorContains(t, s.SaveRun(ctx, id, "a", sampleResult()), "insert run")
	assert.ErrorContains(t, s.SaveRun(ctx, uuid.New(), "nil", nil), "nil")
}
