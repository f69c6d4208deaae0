// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"

	"portfolio-frontier/internal/api/handlers"
	"portfolio-frontier/internal/api/middleware"
	"portfolio-frontier/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// Options are the router's collaborators.
type Options struct {
	Store       *storage.Store
	Prices      handlers.PriceFetcher // nil disables provider-backed runs
	UniverseDir string
	CORS        cors.Options
}

func NewRouter(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CORS(opts.CORS))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	simulationHandler := handlers.NewSimulationHandler(opts.Store, opts.Prices, opts.UniverseDir)
	universeHandler := handlers.NewUniverseHandler(opts.UniverseDir)
	solverHandler := handlers.NewSolverHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/simulations", simulationHandler.RunSimulation)
		api.POST("/simulations/compare", simulationHandler.CompareSimulations)
		api.GET("/simulations", simulationHandler.ListSimulations)
		api.GET("/simulations/:id", simulationHandler.GetSimulation)
		api.DELETE("/simulations/:id", simulationHandler.DeleteSimulation)
		api.GET("/simulations/:id/rank", simulationHandler.RankTrials)
		api.GET("/simulations/:id/sharpe.png", simulationHandler.SharpeChart)
		api.GET("/simulations/:id/trials.csv", simulationHandler.ExportCSV)
		api.GET("/simulations/:id/trials/:index", simulationHandler.GetTrial)
		api.GET("/simulations/:id/trials/:index/chart.png", simulationHandler.TrialChart)

		api.GET("/solvers", solverHandler.ListSolvers)
		api.GET("/universes", universeHandler.ListUniverses)
		api.GET("/universes/:id", universeHandler.GetUniverse)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
	return router
}
