package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sentimentreality/internal/handler/api"
	"sentimentreality/internal/middleware"
	"sentimentreality/internal/repository"
)

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, db *gorm.DB, logger *zap.Logger, apiKey string) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Repositories
	repos := &api.Repos{
		Task:      repository.NewTaskRepository(db),
		Stock:     repository.NewStockRepository(db),
		Aggregate: repository.NewAggregateRepository(db),
	}

	// Handlers
	stockHandler := api.NewStockHandler(repos, logger)
	taskHandler := api.NewTaskHandler(repos, logger)

	if apiKey == "" {
		logger.Warn("API_KEY is not set, producer API is unauthenticated")
	}

	// API group with auth + logging middleware
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.RequestLogger(logger))
	apiGroup.Use(middleware.APIAuth(apiKey))

	apiGroup.POST("/stocks", stockHandler.Track)
	apiGroup.POST("/stocks/refresh", stockHandler.Refresh)
	apiGroup.GET("/stocks/:ticker/daily", stockHandler.Daily)
	apiGroup.GET("/stocks/:ticker/metrics", stockHandler.Metrics)
	apiGroup.GET("/tasks", taskHandler.List)
	apiGroup.GET("/tasks/stats", taskHandler.Stats)
	apiGroup.GET("/tasks/:id", taskHandler.Get)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
