// Package api exposes simulation runs over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api/handlers"
	"github.com/systemiqofficial/steel-iq-sub000/internal/api/middleware"
	"github.com/systemiqofficial/steel-iq-sub000/internal/store"
)

// Options are the router's dependencies. Zero values are usable.
type Options struct {
	Cache       *handlers.RunCache
	Store       *store.Store // nil disables persistence
	ScenarioDir string
	Log         *slog.Logger
}

func NewRouter(opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))

	simulationHandler := handlers.NewSimulationHandler(opts.Cache, opts.Store, log)
	scenarioHandler := handlers.NewScenarioHandler(opts.ScenarioDir, log)
	technologyHandler := handlers.NewTechnologyHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulations", simulationHandler.RunSimulation)
		v1.POST("/simulations/compare", simulationHandler.CompareSimulations)
		v1.GET("/simulations/:id/ledger", simulationHandler.GetLedger)
		v1.GET("/simulations/:id/prices", simulationHandler.GetPrices)
		v1.GET("/simulations/:id/owners", simulationHandler.RankOwners)

		v1.GET("/scenarios", scenarioHandler.ListScenarios)
		v1.GET("/technologies", technologyHandler.ListTechnologies)
		v1.GET("/strategies", technologyHandler.ListSelectors)
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
