package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/rubberduck/internal/http/handler"
	"basegraph.app/rubberduck/internal/http/handler/webhook"
)

type Handlers struct {
	Health  *handler.HealthHandler
	Webhook *webhook.GitLabWebhookHandler
}

func SetupRoutes(router *gin.Engine, handlers Handlers) {
	router.GET("/health", handlers.Health.Live)
	router.GET("/ready", handlers.Health.Ready)

	webhooks := router.Group("/webhooks")
	{
		WebhookRouter(webhooks, handlers.Webhook)
	}
}

func WebhookRouter(router *gin.RouterGroup, h *webhook.GitLabWebhookHandler) {
	router.POST("/gitlab", h.HandleEvent)
}
