package api

import (
	"net/http"

	accountDelivery "homeops-backend/internal/account/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	auth := accountDelivery.AuthMiddleware(h.accountUsecase)

	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Inbox routes (protected)
		inbox := api.Group("/inbox")
		inbox.Use(auth)
		{
			inbox.GET("/feed", h.inboxHandler.GetFeed)
			inbox.GET("/calibration", h.inboxHandler.GetCalibration)
			inbox.GET("/search", h.inboxHandler.Search)
			inbox.GET("/emails/:id", h.inboxHandler.GetEmail)
			inbox.POST("/sync", h.inboxHandler.Sync)
			inbox.POST("/rescore", h.inboxHandler.Rescore)
			inbox.POST("/watch", h.inboxHandler.Watch)
		}

		api.POST("/scoring/preview", auth, h.inboxHandler.Preview)
		api.GET("/dashboard", auth, h.dashboardHandler.GetOverview)
		api.POST("/assistant/chat", auth, h.assistantHandler.Chat)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(auth)
		{
			tasks.GET("", h.taskHandler.GetTasks)
			tasks.POST("", h.taskHandler.CreateTask)
			tasks.GET("/:id", h.taskHandler.GetTaskByID)
			tasks.PUT("/:id", h.taskHandler.UpdateTask)
			tasks.DELETE("/:id", h.taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", h.taskHandler.UpdateTaskStatus)
			tasks.POST("/extract/:emailId", h.taskHandler.ExtractTasksFromEmail)
		}

		// Settings routes (protected) - runtime configuration
		settings := api.Group("/settings")
		settings.Use(auth)
		{
			settings.GET("/scoring", h.settingsHandler.GetScoringSettings)
			settings.PUT("/scoring", h.settingsHandler.UpdateScoringSettings)
			settings.GET("/scoring/rules", h.settingsHandler.GetScoringRules)
			settings.GET("/ollama", h.settingsHandler.GetOllamaSettings)
			settings.PUT("/ollama", h.settingsHandler.UpdateOllamaSettings)
			settings.POST("/ollama/test", h.settingsHandler.TestOllamaConnection)
		}
	}
}
