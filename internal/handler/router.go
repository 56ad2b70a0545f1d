package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/documind-io/documind/internal/pkg/response"
)

type RouterDeps struct {
	Ingest *IngestHandler
	Search *SearchHandler
	QA     *QAHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok", "service": "documind"})
	})

	api.POST("/ingest/text", deps.Ingest.IngestText)
	api.POST("/ingest/file", deps.Ingest.IngestFile)
	api.POST("/search", deps.Search.Search)
	api.POST("/ask", deps.QA.Ask)
}
