package http

import (
	"github.com/gin-gonic/gin"

	"github.com/competitiveedge/engine/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(BodyLimitMiddleware(cfg.Server.MaxBodyBytes))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/schemas/validate", handler.ValidateSchema)

		records := v1.Group("/records")
		{
			records.POST("/validate", handler.ValidateRecord)
			records.POST("/normalize", handler.NormalizeRecord)
		}

		v1.POST("/compare", handler.Compare)
		v1.POST("/metrics/evaluate", handler.EvaluateMetric)

		matches := v1.Group("/matches")
		{
			matches.POST("/score", handler.ScoreMatch)
			matches.POST("/rank", handler.RankMatches)
			matches.POST("/best", handler.BestMatch)
		}

		v1.POST("/extract", handler.Extract)

		dashboard := v1.Group("/dashboard")
		{
			dashboard.POST("/summary", handler.DashboardSummary)
			dashboard.POST("/listings", handler.DashboardListings)
		}

		tmpl := v1.Group("/templates")
		{
			tmpl.GET("", handler.ListTemplates)
			tmpl.GET("/:id", handler.GetTemplate)
			tmpl.POST("", handler.CreateTemplate)
			tmpl.DELETE("/:id", handler.DeleteTemplate)
		}
	}

	return router
}
