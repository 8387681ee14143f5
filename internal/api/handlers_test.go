package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-search/internal/chunker"
	"paper-search/internal/index"
	"paper-search/internal/ingest"
	"paper-search/internal/registry"
)

const testDim = 4

type fakeExtractor struct {
	text string
}

func (f *fakeExtractor) Extract(data []byte) (string, error) {
	return f.text, nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, float32(i), 0, 0}
	}
	return vectors, nil
}

func newTestServer(t *testing.T, extractedText string) (*Server, *registry.Registry, index.Store) {
	t.Helper()
	store := index.NewMemoryStore(testDim)
	ch, err := chunker.New(60, 10)
	require.NoError(t, err)

	pipeline := ingest.NewPipeline(&fakeExtractor{text: extractedText}, ch, &fakeEmbedder{}, store, nil)
	reg := registry.New()
	return New(pipeline, store, reg, 1<<20, nil), reg, store
}

func uploadPDF(t *testing.T, handler http.Handler, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/papers/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUpload_AcceptsAndIndexesInBackground(t *testing.T) {
	server, reg, store := newTestServer(t, strings.Repeat("Indexable sentence here. ", 8))
	handler := server.Router([]string{"*"})

	rec := uploadPDF(t, handler, "paper.pdf")
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	paperID, _ := body["paper_id"].(string)
	require.NotEmpty(t, paperID)
	assert.Equal(t, string(registry.StatusPending), body["processing_status"])

	assert.Eventually(t, func() bool {
		record, ok := reg.Get(paperID)
		return ok && record.Status == registry.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond, "background indexing should complete")

	chunks, err := store.ChunksForPaper(context.Background(), paperID)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	server, _, _ := newTestServer(t, "ignored")
	handler := server.Router([]string{"*"})

	rec := uploadPDF(t, handler, "notes.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_RejectsMissingFile(t *testing.T) {
	server, _, _ := newTestServer(t, "ignored")
	handler := server.Router([]string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/papers/", strings.NewReader("no multipart"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ReturnsRankedResults(t *testing.T) {
	server, reg, _ := newTestServer(t, strings.Repeat("Consensus protocols explained. ", 6))
	handler := server.Router([]string{"*"})

	rec := uploadPDF(t, handler, "paper.pdf")
	require.Equal(t, http.StatusAccepted, rec.Code)
	paperID := decodeBody(t, rec)["paper_id"].(string)

	require.Eventually(t, func() bool {
		record, ok := reg.Get(paperID)
		return ok && record.Status == registry.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	reqBody := `{"query": "consensus", "top_k": 3}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(reqBody))
	searchRec := httptest.NewRecorder()
	handler.ServeHTTP(searchRec, req)

	require.Equal(t, http.StatusOK, searchRec.Code)
	body := decodeBody(t, searchRec)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)

	first := results[0].(map[string]any)
	assert.Equal(t, paperID, first["paper_id"])
	score := first["score"].(float64)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 2.0)
}

func TestSearch_RequiresQuery(t *testing.T) {
	server, _, _ := newTestServer(t, "ignored")
	handler := server.Router([]string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query": "  "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePaper_RemovesChunksAndRecord(t *testing.T) {
	server, reg, store := newTestServer(t, strings.Repeat("Disposable text content. ", 8))
	handler := server.Router([]string{"*"})

	rec := uploadPDF(t, handler, "paper.pdf")
	require.Equal(t, http.StatusAccepted, rec.Code)
	paperID := decodeBody(t, rec)["paper_id"].(string)

	require.Eventually(t, func() bool {
		record, ok := reg.Get(paperID)
		return ok && record.Status == registry.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodDelete, "/papers/"+paperID, nil)
	delRec := httptest.NewRecorder()
	handler.ServeHTTP(delRec, req)

	require.Equal(t, http.StatusOK, delRec.Code)
	body := decodeBody(t, delRec)
	assert.Greater(t, body["deleted_chunks"].(float64), 0.0)

	chunks, err := store.ChunksForPaper(context.Background(), paperID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	_, ok := reg.Get(paperID)
	assert.False(t, ok)
}

func TestGetPaper_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t, "ignored")
	handler := server.Router([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/papers/no-such-id", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t, "ignored")
	handler := server.Router([]string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
