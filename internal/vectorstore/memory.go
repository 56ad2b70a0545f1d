package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/documind-io/documind/internal/model"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
)

// memoryStore keeps vectors in process memory. It backs tests and local runs;
// production deployments use the endee or pgvector backends.
type memoryStore struct {
	mu        sync.RWMutex
	metric    string
	dimension int
	items     map[string]*memoryEntry
	order     int
}

type memoryEntry struct {
	item Item
	seq  int
}

func init() {
	Register("memory", createMemoryStore)
}

func createMemoryStore(metric string, args interface{}) (Store, error) {
	_ = args
	return NewMemory(metric), nil
}

// NewMemory is exported for tests that want a store without the registry.
func NewMemory(metric string) Store {
	if metric == "" {
		metric = MetricCosine
	}
	return &memoryStore{
		metric: metric,
		items:  map[string]*memoryEntry{},
	}
}

func (s *memoryStore) EnsureIndex(ctx context.Context, dimension int) error {
	_ = ctx
	if dimension <= 0 {
		return appErr.Configuration("index dimension must be positive, got %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return appErr.Configuration("index exists with dimension %d, requested %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *memoryStore) Upsert(ctx context.Context, items []Item) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if s.dimension != 0 && len(item.Vector) != s.dimension {
			return appErr.Configuration("vector dimension %d does not match index dimension %d", len(item.Vector), s.dimension)
		}
	}
	for _, item := range items {
		if existing, ok := s.items[item.ID]; ok {
			existing.item = item
			continue
		}
		s.items[item.ID] = &memoryEntry{item: item, seq: s.order}
		s.order++
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, appErr.Configuration("query dimension %d does not match index dimension %d", len(vector), s.dimension)
	}
	type scored struct {
		entry *memoryEntry
		score float32
	}
	matches := make([]scored, 0, len(s.items))
	for _, entry := range s.items {
		matches = append(matches, scored{entry: entry, score: s.score(vector, entry.item.Vector)})
	}
	// Ties resolve by insertion order so result ordering is deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].entry.seq < matches[j].entry.seq
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	results := make([]model.SearchResult, 0, len(matches))
	for _, m := range matches {
		chunk := m.entry.item.Chunk
		results = append(results, model.SearchResult{
			ChunkID:    m.entry.item.ID,
			DocID:      chunk.DocID,
			Filename:   chunk.Filename,
			Seq:        chunk.Seq,
			Text:       chunk.Text,
			Similarity: m.score,
		})
	}
	return results, nil
}

func (s *memoryStore) Delete(ctx context.Context, ids []string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

// Len reports the number of stored vectors; used by tests.
func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *memoryStore) score(a, b []float32) float32 {
	switch s.metric {
	case MetricDot:
		return dotProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func dotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
