//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcingworks/rfqsmith/internal/api/handlers"
	"github.com/sourcingworks/rfqsmith/internal/jobs"
	"github.com/sourcingworks/rfqsmith/internal/repository"
	"github.com/sourcingworks/rfqsmith/internal/rfq"
	"github.com/sourcingworks/rfqsmith/internal/server"
	"github.com/sourcingworks/rfqsmith/internal/service"
	"github.com/sourcingworks/rfqsmith/internal/storage"
	"github.com/sourcingworks/rfqsmith/internal/testutil"
)

// TestAPIKey is the static bearer key the e2e server runs with.
const TestAPIKey = "rfq_0123456789abcdef0123456789abcdef"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Worker       *jobs.Worker
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and
// an in-process server. Model providers are deterministic fakes: text
// is embedded by token hashing so overlapping words correlate, and the
// completer emits schema-valid RFQ bodies.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, worker := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Worker:       worker,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the rfqsmith and rfqsmithd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "rfqsmith-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"rfqsmith", "rfqsmithd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunCLI runs the rfqsmith CLI against the test server
func (e *E2ETestEnv) RunCLI(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "rfqsmith"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("RFQSMITH_API_KEY=%s", TestAPIKey),
		fmt.Sprintf("RFQSMITH_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PATCH", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadDocument posts a multipart document upload
func (e *E2ETestEnv) UploadDocument(filename, category string, content []byte) (*APIResponse, error) {
	return e.uploadMultipart("/documents/upload", filename, content, map[string]string{"category": category})
}

// UploadImage posts a multipart image upload under a document
func (e *E2ETestEnv) UploadImage(documentID, filename string, content []byte, fields map[string]string) (*APIResponse, error) {
	return e.uploadMultipart("/documents/"+documentID+"/images", filename, content, fields)
}

func (e *E2ETestEnv) uploadMultipart(path, filename string, content []byte, fields map[string]string) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+TestAPIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// startServer starts the HTTP server with fake model providers
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *jobs.Worker) {
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	imageRepo := repository.NewImageRepository(pool)
	draftRepo := repository.NewDraftRepository(pool)
	jobRepo := repository.NewReclassifyJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	textEmbedder := &fakeTextEmbedder{dims: 1536}
	multimodal := &fakeMultimodalEmbedder{dims: 512, model: "clip-test-v2"}
	completer := &fakeCompleter{}

	imageSvc := service.NewImageService(imageRepo, jobRepo, multimodal)
	ingestionSvc := service.NewIngestionService(documentRepo, imageSvc, txRunner, s3Client, passthroughExtractor{}, textEmbedder)
	retrievalSvc := service.NewRetrievalService(chunkRepo, textEmbedder)
	draftingSvc := service.NewDraftingService(completer)
	draftSvc := service.NewDraftService(draftRepo, draftingSvc)
	documentSvc := service.NewDocumentService(documentRepo, imageRepo, s3Client)
	exportSvc := service.NewExportService(draftRepo, imageRepo, s3Client)
	orchestrator := service.NewOrchestratorService(retrievalSvc, imageSvc, draftingSvc, draftSvc, documentRepo, completer)

	processor := jobs.NewReclassifyWorker(jobRepo, imageRepo, imageSvc, s3Client)
	worker := jobs.NewWorker(processor, 500*time.Millisecond)
	go worker.Start(context.Background())

	cfg := server.RouterConfig{
		APIKey:          TestAPIKey,
		DocumentHandler: handlers.NewDocumentHandler(ingestionSvc, documentSvc),
		SearchHandler:   handlers.NewSearchHandler(retrievalSvc, imageSvc),
		DraftHandler:    handlers.NewDraftHandler(orchestrator, draftSvc, exportSvc),
		ChatHandler:     handlers.NewChatHandler(orchestrator, draftingSvc),
		AdminHandler:    handlers.NewAdminHandler(imageSvc),
	}

	router := server.NewRouter(cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, worker
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// passthroughExtractor treats the uploaded bytes as the document text,
// skipping real PDF/DOCX parsing so fixtures stay tiny.
type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(filename string, data []byte) (string, error) {
	return string(data), nil
}

// fakeTextEmbedder embeds text as a normalized sum of per-token hash
// vectors. Texts sharing words get correlated embeddings, which makes
// semantic search behave plausibly without a real provider.
type fakeTextEmbedder struct {
	dims int
}

func (f *fakeTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return hashEmbedding(text, f.dims), nil
}

// fakeMultimodalEmbedder maps text and images into one hash space. An
// image whose bytes mention automotive words lands near the positive
// label prompts.
type fakeMultimodalEmbedder struct {
	dims  int
	model string
}

func (f *fakeMultimodalEmbedder) Model() string { return f.model }

func (f *fakeMultimodalEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return hashEmbedding(text, f.dims), nil
}

func (f *fakeMultimodalEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return hashEmbedding(string(image), f.dims), nil
}

func hashEmbedding(text string, dims int) []float32 {
	vec := make([]float64, dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		for i := 0; i < dims; i++ {
			chunk := sum[(i*4)%28:]
			bits := binary.LittleEndian.Uint32(chunk[:4]) ^ uint32(i*2654435761)
			vec[i] += float64(int32(bits)) / float64(math.MaxInt32)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, dims)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// fakeCompleter answers each prompt family deterministically: drafting
// prompts get a schema-valid body, validation gets yes, intent
// classification echoes a drafting intent.
type fakeCompleter struct{}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "procurement specialist"):
		return draftBody(user), nil
	case strings.Contains(system, "judge whether"):
		return "yes", nil
	case strings.Contains(system, "classify one user message"):
		if strings.Contains(user, "a draft already exists") {
			return "edit_draft", nil
		}
		return "request_draft", nil
	case strings.Contains(system, "summarize what changed"):
		return "Technical requirements changed; review compliance and evaluation criteria.", nil
	default:
		return "yes", nil
	}
}

func draftBody(prompt string) string {
	body := rfq.Skeleton("requested automotive component")
	// Edit prompts get a different technical section so revisions are
	// observable end to end.
	if strings.Contains(prompt, "instruction") || strings.Contains(prompt, "Instruction") {
		body = strings.Replace(body,
			rfq.SectionTechnical+"\nTo be completed.",
			rfq.SectionTechnical+"\nRevised per buyer instruction.", 1)
	}
	return body
}
