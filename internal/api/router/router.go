package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/zeebe-docling-worker/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "journal-api-service"
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"service": serviceName,
			})
			return
		}

		if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
			deps.Logger.Warn("Health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	journalHandler := handler.NewJournalHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		journal := v1.Group("/journal")
		{
			// GET /api/v1/journal - List iterations with filtering and pagination
			journal.GET("", journalHandler.ListJournal)

			// GET /api/v1/journal/jobs/:job_key - Every iteration for one job
			journal.GET("/jobs/:job_key", journalHandler.GetJobHistory)
		}
	}

	return r
}
