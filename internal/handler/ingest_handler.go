package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/chunker"
	"github.com/documind-io/documind/internal/filestore"
	"github.com/documind-io/documind/internal/pkg/errcode"
	"github.com/documind-io/documind/internal/pkg/response"
	"github.com/documind-io/documind/internal/service"
)

const maxUploadBytes = 10 << 20

type IngestHandler struct {
	ingest  *service.IngestService
	archive filestore.Store
}

// NewIngestHandler wires the ingestion pipeline; archive may be nil, in which
// case uploaded originals are not kept.
func NewIngestHandler(ingest *service.IngestService, archive filestore.Store) *IngestHandler {
	return &IngestHandler{ingest: ingest, archive: archive}
}

type ingestTextRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

func (h *IngestHandler) IngestText(c *gin.Context) {
	var req ingestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Filename == "" {
		req.Filename = "inline_document"
	}
	summary, err := h.ingest.Ingest(c.Request.Context(), req.Text, req.Filename)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, summary)
}

func (h *IngestHandler) IngestFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".txt" && ext != ".md" {
		response.Error(c, errcode.ErrInvalidFile, "only .txt and .md files are supported")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}

	text := string(data)
	if ext == ".md" {
		text = chunker.MarkdownToText(text)
	}
	summary, err := h.ingest.Ingest(c.Request.Context(), text, filepath.Base(file.Filename))
	if err != nil {
		handleError(c, err)
		return
	}

	if h.archive != nil {
		key := summary.DocID + ext
		if err := h.archive.Save(c.Request.Context(), key, data); err != nil {
			// The chunks are already indexed; losing the archived original is
			// not worth failing the request over.
			logutil.GetLogger(c.Request.Context()).Warn("failed to archive upload",
				zap.String("key", key), zap.Error(err))
		}
	}
	response.Success(c, summary)
}
