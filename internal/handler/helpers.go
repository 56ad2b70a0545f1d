package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/pkg/errcode"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
	"github.com/documind-io/documind/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsConfiguration(err):
		response.Error(c, errcode.ErrConfiguration, "configuration error")
	case appErr.IsCollaborator(err):
		response.Error(c, errcode.ErrCollaborator, "upstream collaborator unavailable")
	case errors.Is(err, appErr.ErrEmptyDocument):
		response.Error(c, errcode.ErrEmptyDocument, "document has no extractable content")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
