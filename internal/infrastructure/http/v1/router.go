// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"serialgen/internal/domain/numbering"
	"serialgen/internal/infrastructure/http/v1/handlers"
	"serialgen/internal/infrastructure/http/v1/middleware"
	"serialgen/internal/infrastructure/metrics"
	"serialgen/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Service issues numbers and manages prefix rules
	Service *numbering.Service

	// Backend is probed by /health/ready
	Backend handlers.Backend

	// Info is reported by /health/info
	Info handlers.BuildInfo

	// Logger for request logging
	Logger *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Client())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Backend, cfg.Info)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		registerPrefixConfigRoutes(v1, cfg)
		registerNumberRoutes(v1, cfg)
	}

	return router
}

// registerPrefixConfigRoutes registers prefix rule endpoints.
func registerPrefixConfigRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewPrefixConfigHandler(handlers.NewBaseHandler(), cfg.Service)

	group := rg.Group("/prefix-configs")
	group.PUT("/:prefixKey", handler.Register)
	group.GET("/:prefixKey", handler.Get)
}

// registerNumberRoutes registers number issuance endpoints.
func registerNumberRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewNumberHandler(handlers.NewBaseHandler(), cfg.Service)

	group := rg.Group("/numbers")
	group.POST("/:prefixKey", handler.Generate)
	group.GET("/:prefixKey", handler.Generate)
}
