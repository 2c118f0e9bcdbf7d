package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crosscasthq/crosscast-be/internal/api/handler"
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
			"service": "repurpose-api-service",
		})
	})

	pipelineHandler := handler.NewPipelineHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		pipeline := v1.Group("/pipeline")
		{
			// POST /api/v1/pipeline/scan - Scan all active workflows
			pipeline.POST("/scan", pipelineHandler.RunScan)

			// POST /api/v1/pipeline/drain - Process a batch of pending items
			pipeline.POST("/drain", pipelineHandler.DrainQueue)
		}

		queue := v1.Group("/queue")
		{
			// GET /api/v1/queue - List queue items with filtering and pagination
			queue.GET("", pipelineHandler.ListItems)

			// GET /api/v1/queue/:item_id - Get queue item details
			queue.GET("/:item_id", pipelineHandler.GetItem)

			// POST /api/v1/queue/:item_id/publish - Accept a publish-now trigger
			queue.POST("/:item_id/publish", pipelineHandler.PublishItem)

			// POST /api/v1/queue/:item_id/retry - Reset a failed item to pending
			queue.POST("/:item_id/retry", pipelineHandler.RetryItem)

			// POST /api/v1/queue/:item_id/pause - Return a processing item to pending
			queue.POST("/:item_id/pause", pipelineHandler.PauseItem)
		}

		workflows := v1.Group("/workflows")
		{
			// GET /api/v1/workflows/:workflow_id/republished - Republish history
			workflows.GET("/:workflow_id/republished", pipelineHandler.ListRepublished)
		}
	}

	return r
}
