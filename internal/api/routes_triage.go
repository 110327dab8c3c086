package api

import (
	"github.com/gin-gonic/gin"

	"github.com/autou/mailtriage/internal/handlers"
	"github.com/autou/mailtriage/internal/services"
)

func registerTriageRoutes(r *gin.Engine, deps Deps) error {
	emailHandler, err := handlers.NewEmailHandler(deps.DB)
	if err != nil {
		return err
	}
	emailService, err := services.NewEmailService(deps.DB)
	if err != nil {
		return err
	}

	processHandler := handlers.NewProcessHandler()
	ingestHandler := handlers.NewIngestHandler(deps.Ingestor)
	suggestHandler := handlers.NewSuggestHandler(deps.Suggester, emailService)

	api := r.Group("/api")
	{
		api.POST("/translate", processHandler.Translate)
		api.POST("/process", processHandler.Process)

		api.GET("/emails", emailHandler.List)
		api.GET("/emails/:id", emailHandler.Get)

		api.GET("/ingest-from-inbox", ingestHandler.Preview)
		api.POST("/ingest-and-save", ingestHandler.IngestAndSave)

		api.POST("/groq/suggest", suggestHandler.Suggest)
	}
	return nil
}
