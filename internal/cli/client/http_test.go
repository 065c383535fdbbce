package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *APIClient {
	return &APIClient{
		baseURL:    serverURL,
		apiKey:     "rfq_0123456789abcdef0123456789abcdef",
		httpClient: http.DefaultClient,
	}
}

func TestAPIClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/documents/doc-1", r.URL.Path)
		assert.Equal(t, "Bearer rfq_0123456789abcdef0123456789abcdef", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"id":"doc-1"}}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Get("/documents/doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"doc-1"}`, string(resp.Data))
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"brake caliper","top_k":5}`, string(body))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"results":[]}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Post("/search", SearchRequest{Query: "brake caliper", TopK: 5})
	require.NoError(t, err)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"document not found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Get("/documents/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "status 404")
}

func TestAPIClient_ErrorWithoutMessageUsesStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Get("/search")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), apiErr.Message)
}

func TestAPIClient_UploadFile(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "caliper-spec.pdf")
	require.NoError(t, os.WriteFile(localPath, []byte("%PDF-1.4 fake"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "design", r.FormValue("category"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "caliper-spec.pdf", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 fake"), data)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "doc-1"},
		})
	}))
	defer server.Close()

	var lastCurrent, lastTotal int64
	resp, err := newTestClient(server.URL).UploadFile("/documents/upload", localPath,
		map[string]string{"category": "design"},
		func(current, total int64) { lastCurrent, lastTotal = current, total })
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"doc-1"}`, string(resp.Data))
	assert.Equal(t, lastTotal, lastCurrent)
}

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")
	reader := bytes.NewReader(data)

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
	assert.NotEmpty(t, progressCalls)

	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")

	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}
