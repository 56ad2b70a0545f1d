package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/documind-io/documind/internal/model"
	"github.com/documind-io/documind/internal/pkg/errcode"
	"github.com/documind-io/documind/internal/pkg/response"
	"github.com/documind-io/documind/internal/service"
)

const defaultTopK = 5

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	results, err := h.search.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	response.Success(c, gin.H{"query": req.Query, "results": results})
}
