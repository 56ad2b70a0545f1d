package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/ai"
	"github.com/documind-io/documind/internal/model"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
	"github.com/documind-io/documind/internal/vectorstore"
)

type SearchService struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	dimension int
}

func NewSearchService(embedder ai.IEmbedder, store vectorstore.Store, dimension int) *SearchService {
	return &SearchService{embedder: embedder, store: store, dimension: dimension}
}

// Search embeds the query with the same embedder used at ingestion and asks
// the store for the top-k matches. Ranking is entirely the store's job; an
// empty result set is a valid outcome, not an error.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, appErr.Invalid("query must not be empty")
	}
	if topK < 1 {
		return nil, appErr.Invalid("top_k must be >= 1, got %d", topK)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("query", query), zap.Int("top_k", topK))

	vector, err := s.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Error("failed to embed query", zap.Error(err))
		return nil, appErr.Collaborator("embed query", err)
	}
	if len(vector) != s.dimension {
		return nil, appErr.Configuration("embedder returned dimension %d, configured %d", len(vector), s.dimension)
	}
	results, err := s.store.Query(ctx, vector, topK)
	if err != nil {
		logger.Error("vector store query failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("search completed", zap.Int("results", len(results)))
	return results, nil
}
