package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/documind-io/documind/internal/chunker"
	"github.com/documind-io/documind/internal/vectorstore"
)

type Config struct {
	Port          int               `json:"port"`
	LogConfig     logger.LogConfig  `json:"log_config"`
	Chunk         ChunkConfig       `json:"chunk"`
	Embedding     EmbeddingConfig   `json:"embedding"`
	Generation    []ProviderConfig  `json:"generation"`
	VectorStore   VectorStoreConfig `json:"vector_store"`
	Archive       ArchiveConfig     `json:"archive"`
	CacheDB       CacheDBConfig     `json:"cache_db"`
	Ask           AskConfig         `json:"ask"`
	CORSAllowlist []string          `json:"cors_allowlist"`
	RateLimitSecs int               `json:"rate_limit_secs"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type EmbeddingConfig struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Dimension int            `json:"dimension"`
	Data      interface{}    `json:"data"`
	Cache     LruCacheConfig `json:"cache"`
}

type LruCacheConfig struct {
	Size    int `json:"size"`
	TTLSecs int `json:"ttl_secs"`
}

type VectorStoreConfig struct {
	Type   string      `json:"type"`
	Metric string      `json:"metric"`
	Data   interface{} `json:"data"`
}

type ArchiveConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// CacheDBConfig enables the persistent embedding cache. An empty DSN disables
// both the cache and its cleanup job.
type CacheDBConfig struct {
	DSN         string `json:"dsn"`
	MaxAgeDays  int    `json:"max_age_days"`
	CleanupSpec string `json:"cleanup_spec"`
}

type AskConfig struct {
	MaxContextChars int `json:"max_context_chars"`
	TimeoutSecs     int `json:"timeout_secs"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = chunker.DefaultChunkSize
		if cfg.Chunk.Overlap == 0 {
			cfg.Chunk.Overlap = chunker.DefaultOverlap
		}
	}
	if cfg.Chunk.Size < 0 {
		return nil, fmt.Errorf("chunk.size must be > 0")
	}
	if cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		return nil, fmt.Errorf("chunk.overlap must be in [0, chunk.size)")
	}
	if cfg.Embedding.Provider == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	if cfg.Embedding.Model == "" {
		return nil, fmt.Errorf("embedding.model is required")
	}
	if cfg.Embedding.Dimension <= 0 {
		return nil, fmt.Errorf("embedding.dimension must be > 0")
	}
	for i, gen := range cfg.Generation {
		if gen.Provider == "" || gen.Model == "" {
			return nil, fmt.Errorf("generation[%d] provider and model are required", i)
		}
	}
	if cfg.VectorStore.Type == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	if cfg.VectorStore.Metric == "" {
		cfg.VectorStore.Metric = vectorstore.MetricCosine
	}
	if cfg.VectorStore.Metric != vectorstore.MetricCosine && cfg.VectorStore.Metric != vectorstore.MetricDot {
		return nil, fmt.Errorf("vector_store.metric must be cosine or dot")
	}
	if cfg.CacheDB.DSN != "" {
		if cfg.CacheDB.MaxAgeDays == 0 {
			cfg.CacheDB.MaxAgeDays = 30
		}
		if cfg.CacheDB.CleanupSpec == "" {
			cfg.CacheDB.CleanupSpec = "30 3 * * *"
		}
	}
	return &cfg, nil
}
