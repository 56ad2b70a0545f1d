package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/documind-io/documind/internal/filestore"
	"github.com/documind-io/documind/internal/handler"
	"github.com/documind-io/documind/internal/pkg/errcode"
	"github.com/documind-io/documind/internal/service"
	"github.com/documind-io/documind/internal/vectorstore"
)

// wordEmbedder projects text onto a fixed vocabulary, one axis per word, so
// retrieval order in tests is fully predictable.
type wordEmbedder struct {
	vocabulary []string
	err        error
}

func (e *wordEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	vector := make([]float32, len(e.vocabulary))
	for i, word := range e.vocabulary {
		if strings.Contains(lower, word) {
			vector[i] = 1
		}
	}
	return vector, nil
}

func (e *wordEmbedder) ModelName() string { return "word-test" }

type scriptedGenerator struct {
	answer string
	err    error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, embedder *wordEmbedder, gen *scriptedGenerator) (http.Handler, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dimension := len(embedder.vocabulary)
	store := vectorstore.NewMemory(vectorstore.MetricCosine)
	require.NoError(t, store.EnsureIndex(context.Background(), dimension))

	archiveDir := t.TempDir()
	archive, err := filestore.New("local", map[string]interface{}{"dir": archiveDir})
	require.NoError(t, err)

	ingestService := service.NewIngestService(embedder, store, 200, 20, dimension)
	searchService := service.NewSearchService(embedder, store, dimension)
	var qaService *service.QAService
	if gen == nil {
		qaService = service.NewQAService(searchService, nil, service.QAConfig{})
	} else {
		qaService = service.NewQAService(searchService, gen, service.QAConfig{})
	}

	deps := handler.RouterDeps{
		Ingest: handler.NewIngestHandler(ingestService, archive),
		Search: handler.NewSearchHandler(searchService),
		QA:     handler.NewQAHandler(qaService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
	)
	require.NoError(t, err)
	return engine, archiveDir
}

func doJSON(t *testing.T, router http.Handler, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return resp, env
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"alpha"}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "ok")
}

func TestIngestTextEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, nil)

	resp, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text":     "kafka moves event streams between services.",
		"filename": "kafka.txt",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, env.Code)

	var summary struct {
		DocID     string `json:"doc_id"`
		Filename  string `json:"filename"`
		NumChunks int    `json:"num_chunks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.NotEmpty(t, summary.DocID)
	require.Equal(t, "kafka.txt", summary.Filename)
	require.Equal(t, 1, summary.NumChunks)
}

func TestIngestTextEmptyDocument(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, nil)

	_, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "   \n  ",
	})
	require.Equal(t, int(errcode.ErrEmptyDocument), env.Code)
}

func TestIngestTextEmbedderDown(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}, err: errors.New("down")}, nil)

	_, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "kafka text",
	})
	require.Equal(t, int(errcode.ErrCollaborator), env.Code)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestIngestFileEndpoint(t *testing.T) {
	router, archiveDir := setupRouter(t, &wordEmbedder{vocabulary: []string{"release"}}, nil)

	body, contentType := multipartUpload(t, "notes.md", "# Release Notes\n\nrelease went out on time.")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/file", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.Zero(t, env.Code)

	var summary struct {
		DocID string `json:"doc_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.NotEmpty(t, summary.DocID)

	// Original upload is archived under the doc id.
	archived, err := os.ReadFile(filepath.Join(archiveDir, summary.DocID+".md"))
	require.NoError(t, err)
	require.Contains(t, string(archived), "# Release Notes")
}

func TestIngestFileRejectsUnsupportedExtension(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"a"}}, nil)

	body, contentType := multipartUpload(t, "binary.pdf", "%PDF-1.4")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/file", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.Equal(t, int(errcode.ErrInvalidFile), env.Code)
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka", "postgres"}}, nil)

	_, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "kafka moves event streams.", "filename": "kafka.txt",
	})
	require.Zero(t, env.Code)
	_, env = doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "postgres stores rows.", "filename": "pg.txt",
	})
	require.Zero(t, env.Code)

	_, env = doJSON(t, router, "/api/v1/search", map[string]interface{}{
		"query": "kafka", "top_k": 1,
	})
	require.Zero(t, env.Code)

	var result struct {
		Query   string `json:"query"`
		Results []struct {
			ChunkID    string  `json:"chunk_id"`
			Filename   string  `json:"filename"`
			Similarity float32 `json:"similarity"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Equal(t, "kafka", result.Query)
	require.Len(t, result.Results, 1)
	require.Equal(t, "kafka.txt", result.Results[0].Filename)
	require.NotEmpty(t, result.Results[0].ChunkID)
}

func TestSearchEndpointEmptyIndex(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, nil)

	_, env := doJSON(t, router, "/api/v1/search", map[string]interface{}{"query": "kafka"})
	require.Zero(t, env.Code)

	var result struct {
		Results []interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Results)
	require.Empty(t, result.Results)
}

func TestSearchEndpointInvalidTopK(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, nil)

	_, env := doJSON(t, router, "/api/v1/search", map[string]interface{}{
		"query": "kafka", "top_k": -1,
	})
	require.Equal(t, int(errcode.ErrInvalid), env.Code)
}

func TestAskEndpointGenerative(t *testing.T) {
	gen := &scriptedGenerator{answer: "Kafka moves event streams."}
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, gen)

	_, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "kafka moves event streams between services.", "filename": "kafka.txt",
	})
	require.Zero(t, env.Code)

	_, env = doJSON(t, router, "/api/v1/ask", map[string]interface{}{
		"question": "what does kafka do",
	})
	require.Zero(t, env.Code)

	var record struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Mode     string `json:"mode"`
		Sources  []struct {
			Filename string `json:"filename"`
			Excerpt  string `json:"excerpt"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &record))
	require.Equal(t, "what does kafka do", record.Question)
	require.Equal(t, gen.answer, record.Answer)
	require.Equal(t, "generative", record.Mode)
	require.NotEmpty(t, record.Sources)
	require.Equal(t, "kafka.txt", record.Sources[0].Filename)
}

func TestAskEndpointFallsBackWhenGeneratorFails(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model overloaded")}
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, gen)

	_, env := doJSON(t, router, "/api/v1/ingest/text", map[string]interface{}{
		"text": "kafka moves event streams. it keeps ordered logs.", "filename": "kafka.txt",
	})
	require.Zero(t, env.Code)

	_, env = doJSON(t, router, "/api/v1/ask", map[string]interface{}{
		"question": "kafka?",
	})
	require.Zero(t, env.Code)

	var record struct {
		Answer string `json:"answer"`
		Mode   string `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &record))
	require.Equal(t, "extractive", record.Mode)
	require.Contains(t, record.Answer, "[Source: kafka.txt]")
}

func TestAskEndpointNoResults(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, &scriptedGenerator{answer: "x"})

	_, env := doJSON(t, router, "/api/v1/ask", map[string]interface{}{
		"question": "anything at all",
	})
	require.Zero(t, env.Code)

	var record struct {
		Mode    string        `json:"mode"`
		Sources []interface{} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &record))
	require.Equal(t, "extractive", record.Mode)
	require.NotNil(t, record.Sources)
	require.Empty(t, record.Sources)
}

func TestAskEndpointBlankQuestion(t *testing.T) {
	router, _ := setupRouter(t, &wordEmbedder{vocabulary: []string{"kafka"}}, nil)

	_, env := doJSON(t, router, "/api/v1/ask", map[string]interface{}{"question": "  "})
	require.Equal(t, int(errcode.ErrInvalid), env.Code)
}
