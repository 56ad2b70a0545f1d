package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/documind-io/documind/internal/model"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
)

// endeeStore is a REST client for the Endee vector database. Endee owns the
// similarity ranking; this client only moves vectors and metadata across the
// wire.
type endeeStore struct {
	host      string
	token     string
	index     string
	metric    string
	precision string
	client    *http.Client
}

type endeeConfig struct {
	Host        string `json:"host"`
	Token       string `json:"token"`
	Index       string `json:"index"`
	Precision   string `json:"precision"`
	TimeoutSecs int    `json:"timeout_secs"`
}

func init() {
	Register("endee", createEndeeStore)
}

func createEndeeStore(metric string, args interface{}) (Store, error) {
	cfg := &endeeConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("endee host is required")
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		token = os.Getenv("ENDEE_AUTH_TOKEN")
	}
	if cfg.Index == "" {
		cfg.Index = "documind_chunks"
	}
	if cfg.Precision == "" {
		cfg.Precision = "float32"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &endeeStore{
		host:      strings.TrimRight(cfg.Host, "/"),
		token:     token,
		index:     cfg.Index,
		metric:    metric,
		precision: cfg.Precision,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type endeeIndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	SpaceType string `json:"space_type"`
	Precision string `json:"precision"`
}

type endeeMeta struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Seq      int    `json:"seq"`
	Text     string `json:"text"`
}

type endeeVector struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Meta   endeeMeta `json:"meta"`
}

func (s *endeeStore) spaceType() string {
	if s.metric == MetricDot {
		return "ip"
	}
	return "cosine"
}

func (s *endeeStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return appErr.Configuration("index dimension must be positive, got %d", dimension)
	}
	spec := endeeIndexSpec{
		Name:      s.index,
		Dimension: dimension,
		SpaceType: s.spaceType(),
		Precision: s.precision,
	}
	status, err := s.do(ctx, http.MethodPost, "/api/v1/index", spec, nil)
	if err != nil {
		return appErr.Collaborator("endee create index", err)
	}
	if status != http.StatusConflict && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		return appErr.Collaborator("endee create index", fmt.Errorf("status %d", status))
	}
	// Creating is idempotent only for matching parameters; read the index
	// back and compare.
	var existing endeeIndexSpec
	status, err = s.do(ctx, http.MethodGet, "/api/v1/index/"+s.index, nil, &existing)
	if err != nil {
		return appErr.Collaborator("endee get index", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return appErr.Collaborator("endee get index", fmt.Errorf("status %d", status))
	}
	if existing.Dimension != dimension || existing.SpaceType != spec.SpaceType {
		return appErr.Configuration("index %q exists with dimension=%d space=%s, requested dimension=%d space=%s",
			s.index, existing.Dimension, existing.SpaceType, dimension, spec.SpaceType)
	}
	return nil
}

func (s *endeeStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	vectors := make([]endeeVector, 0, len(items))
	for _, item := range items {
		vectors = append(vectors, endeeVector{
			ID:     item.ID,
			Vector: item.Vector,
			Meta: endeeMeta{
				DocID:    item.Chunk.DocID,
				Filename: item.Chunk.Filename,
				Seq:      item.Chunk.Seq,
				Text:     item.Chunk.Text,
			},
		})
	}
	body := map[string]interface{}{"vectors": vectors}
	status, err := s.do(ctx, http.MethodPost, "/api/v1/index/"+s.index+"/vectors", body, nil)
	if err != nil {
		return appErr.Collaborator("endee upsert", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return appErr.Collaborator("endee upsert", fmt.Errorf("status %d", status))
	}
	return nil
}

func (s *endeeStore) Query(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error) {
	req := map[string]interface{}{
		"vector": vector,
		"top_k":  topK,
	}
	var resp struct {
		Results []struct {
			ID         string    `json:"id"`
			Similarity float32   `json:"similarity"`
			Meta       endeeMeta `json:"meta"`
		} `json:"results"`
	}
	status, err := s.do(ctx, http.MethodPost, "/api/v1/index/"+s.index+"/search", req, &resp)
	if err != nil {
		return nil, appErr.Collaborator("endee query", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, appErr.Collaborator("endee query", fmt.Errorf("status %d", status))
	}
	results := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, model.SearchResult{
			ChunkID:    r.ID,
			DocID:      r.Meta.DocID,
			Filename:   r.Meta.Filename,
			Seq:        r.Meta.Seq,
			Text:       r.Meta.Text,
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

func (s *endeeStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]interface{}{"ids": ids}
	status, err := s.do(ctx, http.MethodPost, "/api/v1/index/"+s.index+"/vectors/delete", body, nil)
	if err != nil {
		return appErr.Collaborator("endee delete", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return appErr.Collaborator("endee delete", fmt.Errorf("status %d", status))
	}
	return nil
}

func (s *endeeStore) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.host+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
