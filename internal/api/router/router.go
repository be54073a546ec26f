package router

import (
	"net/http"

	"github.com/dpalacios/newsdesk-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "newsdesk-api-service",
		})
	})

	batchFetchHandler := handler.NewBatchFetchHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		batchFetch := v1.Group("/batch-fetch")
		{
			// POST /api/v1/batch-fetch - Trigger a batch fetch run
			batchFetch.POST("", batchFetchHandler.StartBatchFetch)

			// GET /api/v1/batch-fetch - List jobs
			batchFetch.GET("", batchFetchHandler.GetJobs)

			// GET /api/v1/batch-fetch/current - Active or latest job
			batchFetch.GET("/current", batchFetchHandler.GetCurrentJob)

			// GET /api/v1/batch-fetch/:job_id - Job detail with steps
			batchFetch.GET("/:job_id", batchFetchHandler.GetJob)
		}
	}

	return r
}
