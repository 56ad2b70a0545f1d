package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/documind-io/documind/internal/pkg/errcode"
	"github.com/documind-io/documind/internal/pkg/response"
	"github.com/documind-io/documind/internal/service"
)

type QAHandler struct {
	qa *service.QAService
}

func NewQAHandler(qa *service.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	record, err := h.qa.Ask(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}
