package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api"
	"github.com/systemiqofficial/steel-iq-sub000/internal/api/handlers"
	"github.com/systemiqofficial/steel-iq-sub000/internal/api/models"
	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/data"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

const scenarioDir = "../data/testdata"

func init() { gin.SetMode(gin.TestMode) }

func testConfig() config.Config {
	return config.Config{
		Name: "api-test",
		Simulation: config.SimulationConfig{
			StartYear: 2025,
			EndYear:   2027,
			Seed:      7,
			MarketLag: 2,
		},
		Pipeline: config.PipelineConfig{Capacity: 500, CandidatesPerYear: 1},
	}
}

func testScenario(t *testing.T) data.Scenario {
	t.Helper()
	sc, err := data.LoadScenario(filepath.Join(scenarioDir, "scenario.yaml"))
	assert.NilError(t, err)
	return *sc
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "runs.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NilError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndRegistry(t *testing.T) {
	r := api.NewRouter(api.Options{ScenarioDir: scenarioDir})

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, w.Code, http.StatusOK)

	w = do(t, r, http.MethodGet, "/api/v1/technologies", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	techs := decode[struct {
		Technologies []model.TechnologySpec `json:"technologies"`
	}](t, w)
	assert.Equal(t, len(techs.Technologies), 7)

	w = do(t, r, http.MethodGet, "/api/v1/strategies", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	sel := decode[struct {
		Strategies []models.SelectorInfo `json:"strategies"`
	}](t, w)
	assert.Equal(t, sel.Strategies[0].Name, "argmax")

	w = do(t, r, http.MethodGet, "/api/v1/scenarios", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	sc := decode[struct {
		Scenarios []models.ScenarioInfo `json:"scenarios"`
	}](t, w)
	assert.Equal(t, len(sc.Scenarios), 1)
	assert.Equal(t, sc.Scenarios[0].ID, "scenario")
	assert.Equal(t, sc.Scenarios[0].Name, "two-country-test")
	assert.DeepEqual(t, sc.Scenarios[0].Locations, []string{"DE", "FR"})

	w = do(t, r, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, w.Code, http.StatusNotFound)
}

func TestRunSimulation(t *testing.T) {
	st := newStore(t)
	r := api.NewRouter(api.Options{Store: st, ScenarioDir: scenarioDir})

	w := do(t, r, http.MethodPost, "/api/v1/simulations", models.SimulationRequest{
		Config:  testConfig(),
		Inputs:  testScenario(t),
		Options: models.SimulationOptions{IncludeLedger: true, Persist: true},
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	resp := decode[models.SimulationResponse](t, w)
	assert.Equal(t, resp.Status, "completed")
	assert.Equal(t, resp.Name, "api-test")
	assert.Assert(t, resp.Summary.Persisted)
	assert.Equal(t, resp.Summary.StartYear, 2025)
	assert.Equal(t, len(resp.Summary.Prices), 2)
	assert.Equal(t, len(resp.Summary.Owners), 2)
	assert.Assert(t, len(resp.Ledger) >= 9)

	w = do(t, r, http.MethodGet, "/api/v1/simulations/"+resp.ID+"/ledger", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	ledger := decode[models.LedgerResponse](t, w)
	assert.Equal(t, ledger.Count, len(resp.Ledger))

	w = do(t, r, http.MethodGet, "/api/v1/simulations/"+resp.ID+"/owners", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	rank := decode[models.RankResponse](t, w)
	assert.Equal(t, len(rank.Rankings), 2)
	assert.Equal(t, rank.Rankings[0].Rank, 1)

	w = do(t, r, http.MethodGet, "/api/v1/simulations/"+resp.ID+"/prices", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	cached := decode[models.PricesResponse](t, w)

	// A fresh server without the cached run reads prices from the store.
	fresh := api.NewRouter(api.Options{Store: st, ScenarioDir: scenarioDir})
	w = do(t, fresh, http.MethodGet, "/api/v1/simulations/"+resp.ID+"/prices", nil)
	assert.Equal(t, w.Code, http.StatusOK)
	stored := decode[models.PricesResponse](t, w)
	assert.Equal(t, len(stored.Prices), len(cached.Prices))

	w = do(t, fresh, http.MethodGet, "/api/v1/simulations/"+resp.ID+"/ledger", nil)
	assert.Equal(t, w.Code, http.StatusNotFound)
}

func TestRunSimulationErrors(t *testing.T) {
	r := api.NewRouter(api.Options{Cache: handlers.NewRunCache(0), ScenarioDir: scenarioDir})

	w := do(t, r, http.MethodPost, "/api/v1/simulations", "not an object")
	assert.Equal(t, w.Code, http.StatusBadRequest)
	assert.Equal(t, decode[models.ErrorResponse](t, w).Error.Code, "INVALID_REQUEST")

	bad := testConfig()
	bad.Simulation.StartYear = 0
	w = do(t, r, http.MethodPost, "/api/v1/simulations", models.SimulationRequest{Config: bad, Inputs: testScenario(t)})
	assert.Equal(t, w.Code, http.StatusBadRequest)
	assert.Equal(t, decode[models.ErrorResponse](t, w).Error.Code, "INVALID_CONFIG")

	sc := testScenario(t)
	sc.Assets = append(sc.Assets, data.AssetSpec{Location: "DE", Technology: "MOE", Capacity: 100})
	w = do(t, r, http.MethodPost, "/api/v1/simulations", models.SimulationRequest{Config: testConfig(), Inputs: sc})
	assert.Equal(t, w.Code, http.StatusUnprocessableEntity, w.Body.String())
	e := decode[models.ErrorResponse](t, w)
	assert.Equal(t, e.Error.Code, "MISSING_DATA")
	assert.Equal(t, e.Error.Details["kind"], "capex")

	w = do(t, r, http.MethodGet, "/api/v1/simulations/not-a-uuid/ledger", nil)
	assert.Equal(t, w.Code, http.StatusBadRequest)
	w = do(t, r, http.MethodGet, "/api/v1/simulations/6f1c1f3e-7d43-4a55-9d0b-2d0c5b7f1a10/prices", nil)
	assert.Equal(t, w.Code, http.StatusNotFound)
}

func TestCompareSimulations(t *testing.T) {
	r := api.NewRouter(api.Options{ScenarioDir: scenarioDir})
	w := do(t, r, http.MethodPost, "/api/v1/simulations/compare", models.CompareSimulationRequest{
		Inputs:     testScenario(t),
		BaseConfig: testConfig(),
		Variations: []models.SimulationVariation{
			{Name: "baseline"},
			{Name: "short", Simulation: config.SimulationConfig{EndYear: 2025, Deterministic: true}},
		},
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	resp := decode[models.CompareSimulationResponse](t, w)
	assert.Equal(t, len(resp.Comparison), 2)
	assert.Equal(t, resp.Comparison[0].Summary.EndYear, 2027)
	assert.Equal(t, resp.Comparison[1].Summary.EndYear, 2025)
	assert.Assert(t, resp.Comparison[0].ID != resp.Comparison[1].ID)

	w = do(t, r, http.MethodPost, "/api/v1/simulations/compare", models.CompareSimulationRequest{BaseConfig: testConfig()})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestCORSPreflight(t *testing.T) {
	r := api.NewRouter(api.Options{ScenarioDir: scenarioDir})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, w.Code, http.StatusNoContent)
	assert.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "*")
}
