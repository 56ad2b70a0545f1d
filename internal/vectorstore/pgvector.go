package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/documind-io/documind/internal/model"
	"github.com/documind-io/documind/internal/pkg/dbutil"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
	"github.com/documind-io/documind/internal/repo"
)

// pgStore persists chunks in Postgres with a pgvector column and lets the
// database do the similarity ranking.
type pgStore struct {
	db     *sql.DB
	table  string
	metric string
}

type pgConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

func init() {
	Register("pgvector", createPgStore)
}

func createPgStore(metric string, args interface{}) (Store, error) {
	cfg := &pgConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "documind_chunks"
	}
	if strings.ContainsAny(cfg.Table, ` ";`) {
		return nil, fmt.Errorf("invalid pgvector table name: %q", cfg.Table)
	}
	db, err := repo.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return NewPg(db, cfg.Table, metric), nil
}

// NewPg wraps an already-open database handle; the factory and tests share it.
func NewPg(db *sql.DB, table, metric string) Store {
	if metric == "" {
		metric = MetricCosine
	}
	return &pgStore{db: db, table: table, metric: metric}
}

func (s *pgStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return appErr.Configuration("index dimension must be positive, got %d", dimension)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return appErr.Collaborator("pgvector create extension", err)
	}
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			seq INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, dimension)
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return appErr.Collaborator("pgvector create table", err)
	}
	// CREATE TABLE IF NOT EXISTS silently keeps an existing table, so the
	// declared dimension must be compared against the actual column.
	var existingDim int
	dimQuery := `SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`
	if err := s.db.QueryRowContext(ctx, dimQuery, s.table).Scan(&existingDim); err != nil {
		return appErr.Collaborator("pgvector inspect table", err)
	}
	if existingDim != dimension {
		return appErr.Configuration("table %s exists with dimension %d, requested %d", s.table, existingDim, dimension)
	}
	indexName := s.table + "_embedding_idx"
	createIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)`,
		indexName, s.table, s.opclass())
	if _, err := s.db.ExecContext(ctx, createIndex); err != nil {
		return appErr.Collaborator("pgvector create index", err)
	}
	return nil
}

func (s *pgStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]interface{}{
			"chunk_id":  item.ID,
			"doc_id":    item.Chunk.DocID,
			"filename":  item.Chunk.Filename,
			"seq":       item.Chunk.Seq,
			"content":   item.Chunk.Text,
			"embedding": pgvector.NewVector(item.Vector),
		})
	}
	sqlStr, args, err := builder.BuildInsert(s.table, rows)
	if err != nil {
		return err
	}
	sqlStr += ` ON CONFLICT (chunk_id) DO UPDATE SET
		doc_id = EXCLUDED.doc_id,
		filename = EXCLUDED.filename,
		seq = EXCLUDED.seq,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding`
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return appErr.Collaborator("pgvector upsert", err)
	}
	return nil
}

func (s *pgStore) Query(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error) {
	query := fmt.Sprintf(`
		SELECT chunk_id, doc_id, filename, seq, content, %s AS similarity
		FROM %s
		ORDER BY embedding %s $1, chunk_id
		LIMIT $2`, s.similarityExpr(), s.table, s.operator())
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, appErr.Collaborator("pgvector query", err)
	}
	defer rows.Close()
	var results []model.SearchResult
	for rows.Next() {
		var item model.SearchResult
		if err := rows.Scan(&item.ChunkID, &item.DocID, &item.Filename, &item.Seq, &item.Text, &item.Similarity); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (s *pgStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	where := map[string]interface{}{"chunk_id in": ids}
	sqlStr, args, err := builder.BuildDelete(s.table, where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return appErr.Collaborator("pgvector delete", err)
	}
	return nil
}

func (s *pgStore) operator() string {
	if s.metric == MetricDot {
		return "<#>"
	}
	return "<=>"
}

func (s *pgStore) opclass() string {
	if s.metric == MetricDot {
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

func (s *pgStore) similarityExpr() string {
	// Both operators return distances (inner product negated), so flip them
	// back into higher-is-better scores.
	if s.metric == MetricDot {
		return "-(embedding <#> $1)"
	}
	return "1 - (embedding <=> $1)"
}
