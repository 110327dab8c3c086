package api

import (
	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/handlers"
)

func registerSendRoutes(r *gin.Engine, deps Deps) {
	sendHandler := handlers.NewSendHandler(deps.SendAuth)

	api := r.Group("/api")
	{
		api.POST("/send-intent", sendHandler.Intent)
		api.POST("/send-confirm", sendHandler.Confirm)
	}
}
