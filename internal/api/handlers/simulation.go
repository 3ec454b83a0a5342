package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/systemiqofficial/steel-iq-sub000/internal/analysis"
	"github.com/systemiqofficial/steel-iq-sub000/internal/api/models"
	"github.com/systemiqofficial/steel-iq-sub000/internal/config"
	"github.com/systemiqofficial/steel-iq-sub000/internal/data"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
	"github.com/systemiqofficial/steel-iq-sub000/internal/simulation"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

// SimulationHandler handles simulation-related requests
type SimulationHandler struct {
	cache *RunCache
	store *store.Store // nil disables persistence
	log   *slog.Logger
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(cache *RunCache, st *store.Store, log *slog.Logger) *SimulationHandler {
	if cache == nil {
		cache = NewRunCache(0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SimulationHandler{cache: cache, store: st, log: log}
}

// RunSimulation handles POST /api/v1/simulations
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req models.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_REQUEST", err.Error()))
		return
	}
	cfg := req.Config
	if err := prepareConfig(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_CONFIG", err.Error()))
		return
	}
	if err := req.Inputs.Prepare(); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_INPUTS", err.Error()))
		return
	}

	id, res, err := h.run(c.Request.Context(), &cfg, &req.Inputs)
	if err != nil {
		writeRunError(c, err)
		return
	}

	name := req.Name
	if name == "" {
		name = cfg.Name
	}
	resp := models.SimulationResponse{
		ID:      id.String(),
		Name:    name,
		Status:  "completed",
		Summary: buildSummary(res),
	}
	if req.Options.Persist && h.store != nil {
		if err := h.store.SaveRun(c.Request.Context(), id, name, res); err != nil {
			h.log.Error("SimulationHandler: persist run", slog.String("id", id.String()), slog.Any("err", err))
			c.JSON(http.StatusInternalServerError, models.NewError("PERSIST_ERROR", err.Error()))
			return
		}
		resp.Summary.Persisted = true
	}
	if req.Options.IncludeLedger {
		resp.Ledger = models.NewLedgerRows(res.Ledger)
	}
	c.JSON(http.StatusOK, resp)
}

// CompareSimulations handles POST /api/v1/simulations/compare
func (h *SimulationHandler) CompareSimulations(c *gin.Context) {
	var req models.CompareSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_REQUEST", err.Error()))
		return
	}
	raw, err := json.Marshal(req.Inputs)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_INPUTS", err.Error()))
		return
	}

	out := models.CompareSimulationResponse{}
	for _, v := range req.Variations {
		cfg := req.BaseConfig
		cfg.Simulation = mergeSimulation(cfg.Simulation, v.Simulation)
		if err := prepareConfig(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.ErrorDetail{
				Code:    "INVALID_CONFIG",
				Message: err.Error(),
				Details: map[string]interface{}{"variation": v.Name},
			}})
			return
		}
		// Every variation gets a fresh copy: a run mutates its inputs.
		sc, err := data.ParseScenario(raw, "json")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.NewError("INVALID_INPUTS", err.Error()))
			return
		}
		id, res, err := h.run(c.Request.Context(), &cfg, sc)
		if err != nil {
			writeRunError(c, fmt.Errorf("variation %s: %w", v.Name, err))
			return
		}
		out.Comparison = append(out.Comparison, models.ComparisonResult{Name: v.Name, ID: id.String(), Summary: buildSummary(res)})
	}
	c.JSON(http.StatusOK, out)
}

// GetLedger handles GET /api/v1/simulations/:id/ledger
func (h *SimulationHandler) GetLedger(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	res, ok := h.cache.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.NewError("RUN_NOT_FOUND", fmt.Sprintf("no cached run %s", id)))
		return
	}
	rows := models.NewLedgerRows(res.Ledger)
	c.JSON(http.StatusOK, models.LedgerResponse{ID: id.String(), Count: len(rows), Ledger: rows})
}

// GetPrices handles GET /api/v1/simulations/:id/prices. Runs that have left
// the cache are read back from the store.
func (h *SimulationHandler) GetPrices(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	if res, ok := h.cache.Get(id); ok {
		c.JSON(http.StatusOK, models.PricesResponse{ID: id.String(), Prices: res.Prices})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusNotFound, models.NewError("RUN_NOT_FOUND", fmt.Sprintf("no cached run %s", id)))
		return
	}
	prices, err := h.store.LoadPrices(c.Request.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, models.NewError("RUN_NOT_FOUND", err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewError("STORE_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.PricesResponse{ID: id.String(), Prices: prices})
}

// RankOwners handles GET /api/v1/simulations/:id/owners
func (h *SimulationHandler) RankOwners(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	res, ok := h.cache.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.NewError("RUN_NOT_FOUND", fmt.Sprintf("no cached run %s", id)))
		return
	}
	resp := models.RankResponse{ID: id.String()}
	for i, r := range analysis.RankOwnersByBalance(res.Fleet) {
		resp.Rankings = append(resp.Rankings, models.Ranking{Rank: i + 1, RankedOwner: r})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SimulationHandler) run(ctx context.Context, cfg *config.Config, sc *data.Scenario) (uuid.UUID, *simulation.Result, error) {
	eng, err := cfg.NewEngine(sc, h.log)
	if err != nil {
		return uuid.Nil, nil, err
	}
	res, err := eng.Run(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}
	id := uuid.New()
	h.cache.Set(id, res)
	h.log.Info("SimulationHandler: run complete", slog.String("id", id.String()),
		slog.Int("ledger_rows", len(res.Ledger)), slog.Int("commands", len(res.Commands)))
	return id, res, nil
}

func prepareConfig(cfg *config.Config) error {
	cfg.InputsFile = ""
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// mergeSimulation overlays non-zero fields of override onto base.
func mergeSimulation(base, override config.SimulationConfig) config.SimulationConfig {
	out := base
	if override.StartYear != 0 {
		out.StartYear = override.StartYear
	}
	if override.EndYear != 0 {
		out.EndYear = override.EndYear
	}
	if override.Seed != 0 {
		out.Seed = override.Seed
	}
	if override.Deterministic {
		out.Deterministic = true
	}
	if override.Selection != "" {
		out.Selection = override.Selection
	}
	if override.EquityShare != 0 {
		out.EquityShare = override.EquityShare
	}
	if override.Cycle != 0 {
		out.Cycle = override.Cycle
	}
	if override.ConstructionYears != 0 {
		out.ConstructionYears = override.ConstructionYears
	}
	if override.MarketLag != 0 {
		out.MarketLag = override.MarketLag
	}
	if override.PreRetirementYears != 0 {
		out.PreRetirementYears = override.PreRetirementYears
	}
	if override.RiskFreeRate != 0 {
		out.RiskFreeRate = override.RiskFreeRate
	}
	if override.MinUtilization != 0 {
		out.MinUtilization = override.MinUtilization
	}
	if override.MinCapacity != 0 {
		out.MinCapacity = override.MinCapacity
	}
	if override.ScarcityBuffer != nil {
		out.ScarcityBuffer = override.ScarcityBuffer
	}
	if override.CapacityLimits != nil {
		out.CapacityLimits = override.CapacityLimits
	}
	return out
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_ID", err.Error()))
		return uuid.Nil, false
	}
	return id, true
}

func writeRunError(c *gin.Context, err error) {
	var missing *model.MissingDataError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Error: models.ErrorDetail{
			Code:    "MISSING_DATA",
			Message: err.Error(),
			Details: map[string]interface{}{"kind": missing.Kind, "key": missing.Key},
		}})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, models.NewError("CANCELLED", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, models.NewError("SIMULATION_ERROR", err.Error()))
	}
}

func buildSummary(res *simulation.Result) models.SimulationSummary {
	s := models.SimulationSummary{
		StartYear: res.StartYear,
		EndYear:   res.EndYear,
		Assets:    map[model.Status]int{},
		Commands:  map[model.CommandKind]int{},
		Prices:    analysis.PriceStatsByProduct(res),
		Owners:    analysis.RankOwnersByBalance(res.Fleet),
		Years:     analysis.SummarizeByYear(res.Ledger),
	}
	for _, a := range res.Fleet.Assets() {
		s.Assets[a.Status]++
	}
	for _, cmd := range res.Commands {
		if cmd.Kind == model.CommandUpdateDynamicCosts {
			continue
		}
		s.Commands[cmd.Kind]++
	}
	return s
}
