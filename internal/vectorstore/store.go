package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/documind-io/documind/internal/model"
)

// Supported similarity metrics. Scores are "higher is more relevant" for all
// of them; cosine scores are bounded in [-1, 1].
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// Item is one chunk ready for indexing. The metadata carries everything a
// citation needs so answering never round-trips to the original document.
type Item struct {
	ID     string
	Vector []float32
	Chunk  model.Chunk
}

// Store is the similarity-index capability consumed by the pipeline.
// Implementations must be safe for concurrent use.
type Store interface {
	// EnsureIndex creates the index for the given dimensionality if absent.
	// Re-creating with matching parameters is a no-op; a parameter mismatch
	// is a configuration error.
	EnsureIndex(ctx context.Context, dimension int) error
	// Upsert writes the batch keyed by item id; existing ids are replaced.
	Upsert(ctx context.Context, items []Item) error
	// Query returns up to topK results in descending similarity order.
	Query(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error)
	// Delete removes the given ids; unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
}

type Factory func(metric string, args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, metric string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	metric = strings.ToLower(strings.TrimSpace(metric))
	if metric == "" {
		metric = MetricCosine
	}
	if metric != MetricCosine && metric != MetricDot {
		return nil, fmt.Errorf("unsupported similarity metric: %s", metric)
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", typ)
	}
	return factory(metric, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
