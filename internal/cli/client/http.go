package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// APIClient is a thin HTTP client for the rfqsmith API.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// NewAPIClient resolves credentials (flag > env > config file) and
// returns a client. Commands pass their --api-key/--api-url overrides.
func NewAPIClient(flagKey, flagURL string) (*APIClient, error) {
	source, apiKey, apiURL := GetCredentialSource(flagKey, flagURL)
	if source == SourceNone {
		return nil, fmt.Errorf("no API key configured: run 'rfqsmith auth login', set RFQSMITH_API_KEY, or pass --api-key")
	}

	return &APIClient{
		baseURL: apiURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (c *APIClient) do(method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := apiResp.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return &apiResp, nil
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do(http.MethodGet, path, nil, "")
}

// Post performs a POST request with a JSON body.
func (c *APIClient) Post(path string, payload interface{}) (*APIResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// Patch performs a PATCH request with a JSON body.
func (c *APIClient) Patch(path string, payload interface{}) (*APIResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(http.MethodPatch, path, bytes.NewReader(data), "application/json")
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.do(http.MethodDelete, path, nil, "")
}

// UploadFile posts a local file as multipart form data under the
// "file" field, plus any extra form fields. onProgress may be nil.
func (c *APIClient) UploadFile(path, localPath string, fields map[string]string, onProgress func(current, total int64)) (*APIResponse, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	reader := &progressReader{
		reader:     file,
		total:      info.Size(),
		onProgress: onProgress,
	}
	if _, err := io.Copy(part, reader); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	return c.do(http.MethodPost, path, &buf, writer.FormDataContentType())
}

// progressReader wraps a reader and reports cumulative bytes read.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress func(current, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.current += int64(n)
		if r.onProgress != nil {
			r.onProgress(r.current, r.total)
		}
	}
	return n, err
}
