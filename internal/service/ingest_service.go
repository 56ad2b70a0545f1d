package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/ai"
	"github.com/documind-io/documind/internal/chunker"
	"github.com/documind-io/documind/internal/model"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
	"github.com/documind-io/documind/internal/vectorstore"
)

type IngestService struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	chunkSize int
	overlap   int
	dimension int
}

func NewIngestService(embedder ai.IEmbedder, store vectorstore.Store, chunkSize, overlap, dimension int) *IngestService {
	return &IngestService{
		embedder:  embedder,
		store:     store,
		chunkSize: chunkSize,
		overlap:   overlap,
		dimension: dimension,
	}
}

// Ingest chunks the document, embeds every chunk and upserts the whole batch.
// Nothing is written before all embeddings succeed, and a failed upsert rolls
// the batch back, so the index never holds a partial document.
func (s *IngestService) Ingest(ctx context.Context, text, filename string) (*model.IngestSummary, error) {
	if filename == "" {
		filename = "document"
	}
	logger := logutil.GetLogger(ctx).With(zap.String("filename", filename))

	windows, err := chunker.Split(text, s.chunkSize, s.overlap)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, appErr.ErrEmptyDocument
	}
	docID := newDocID(filename, chunker.Normalize(text))
	logger = logger.With(zap.String("doc_id", docID))

	items := make([]vectorstore.Item, 0, len(windows))
	for _, w := range windows {
		vector, err := s.embedder.Embed(ctx, w.Text, ai.TaskRetrievalDocument)
		if err != nil {
			logger.Error("failed to embed chunk", zap.Int("seq", w.Seq), zap.Error(err))
			return nil, appErr.Collaborator("embed chunk", err)
		}
		if len(vector) != s.dimension {
			return nil, appErr.Configuration("embedder returned dimension %d, configured %d", len(vector), s.dimension)
		}
		id := chunkID(docID, w.Seq)
		items = append(items, vectorstore.Item{
			ID:     id,
			Vector: vector,
			Chunk: model.Chunk{
				ChunkID:  id,
				DocID:    docID,
				Filename: filename,
				Seq:      w.Seq,
				Start:    w.Start,
				Text:     w.Text,
			},
		})
	}

	if err := s.store.Upsert(ctx, items); err != nil {
		logger.Error("failed to upsert chunks, rolling back", zap.Int("chunks", len(items)), zap.Error(err))
		s.rollback(ctx, items)
		return nil, err
	}
	logger.Info("document ingested", zap.Int("chunks", len(items)))
	return &model.IngestSummary{
		DocID:     docID,
		Filename:  filename,
		NumChunks: len(items),
	}, nil
}

// rollback is best-effort: a backend that applied the batch partially gets
// its ids deleted; a backend that rejected it atomically ignores the ids.
func (s *IngestService) rollback(ctx context.Context, items []vectorstore.Item) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := s.store.Delete(ctx, ids); err != nil {
		logutil.GetLogger(ctx).Warn("rollback delete failed", zap.Int("ids", len(ids)), zap.Error(err))
	}
}
