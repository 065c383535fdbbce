package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

func newTestDocumentHandler() (*DocumentHandler, *MockIngestionService, *MockDocumentService) {
	ingestion := new(MockIngestionService)
	documents := new(MockDocumentService)
	return NewDocumentHandler(ingestion, documents), ingestion, documents
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	assert.NoError(t, err)
	_, err = part.Write(data)
	assert.NoError(t, err)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	assert.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	handler, ingestion, _ := newTestDocumentHandler()

	ingestion.On("IngestDocument", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.Filename == "caliper-spec.pdf" &&
			input.Category == "design" &&
			string(input.Data) == "%PDF-1.4 fake"
	})).Return(newTestDocument(), nil)

	body, contentType := multipartUpload(t, "caliper-spec.pdf", []byte("%PDF-1.4 fake"), map[string]string{
		"category": "design",
	})
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"doc-1"`)
	assert.NotContains(t, w.Body.String(), "Caliper bore")
	ingestion.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	handler, ingestion, _ := newTestDocumentHandler()

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", bytes.NewBufferString("not multipart"))
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ingestion.AssertNotCalled(t, "IngestDocument", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_UnsupportedTypeMapsTo400(t *testing.T) {
	handler, ingestion, _ := newTestDocumentHandler()

	ingestion.On("IngestDocument", mock.Anything, mock.Anything).
		Return(nil, domain.ErrUnsupportedFileType)

	body, contentType := multipartUpload(t, "malware.exe", []byte("MZ"), map[string]string{"category": "design"})
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestDocumentHandler_Upload_DuplicateMapsTo409(t *testing.T) {
	handler, ingestion, _ := newTestDocumentHandler()

	ingestion.On("IngestDocument", mock.Anything, mock.Anything).
		Return(nil, domain.ErrDocumentAlreadyExists)

	body, contentType := multipartUpload(t, "caliper-spec.pdf", []byte("%PDF"), map[string]string{"category": "design"})
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentHandler_UploadImage_Success(t *testing.T) {
	handler, ingestion, _ := newTestDocumentHandler()

	asset := &domain.ImageAsset{
		ID:         7,
		DocumentID: "doc-1",
		Label:      domain.ImageLabelAutomobile,
		Confidence: 0.82,
		Format:     "png",
		Page:       3,
	}
	ingestion.On("IngestImage", mock.Anything, mock.MatchedBy(func(input service.ImageInput) bool {
		return input.DocumentID == "doc-1" && input.Format == "png" && input.Page == 3
	})).Return(asset, nil)

	body, contentType := multipartUpload(t, "figure.png", []byte{0x89, 0x50, 0x4E, 0x47}, map[string]string{
		"format": "png",
		"page":   "3",
	})
	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/images", body)
	req.Header.Set("Content-Type", contentType)
	req = withURLParam(req, "id", "doc-1")
	w := httptest.NewRecorder()

	handler.UploadImage(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"automobile"`)
	ingestion.AssertExpectations(t)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	documents.On("List", mock.Anything, service.ListInput{Cursor: "", Limit: 20}).
		Return(&service.DocumentPageResult{
			Items:      []*domain.SourceDocument{newTestDocument()},
			NextCursor: "next",
			HasMore:    true,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_more":true`)
	assert.Contains(t, w.Body.String(), `"cursor":"next"`)
}

func TestDocumentHandler_List_PassesLimit(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	documents.On("List", mock.Anything, service.ListInput{Cursor: "abc", Limit: 5}).
		Return(&service.DocumentPageResult{Items: nil}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?cursor=abc&limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	documents.AssertExpectations(t)
}

func TestDocumentHandler_Get_IncludesText(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	documents.On("GetByID", mock.Anything, "doc-1").Return(newTestDocument(), nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	req = withURLParam(req, "id", "doc-1")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Caliper bore 54 mm.")
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	documents.On("GetByID", mock.Anything, "missing").
		Return(nil, domain.ErrDocumentNotFound)

	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	req = withURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	documents.On("Delete", mock.Anything, "doc-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil)
	req = withURLParam(req, "id", "doc-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"deleted"`)
	documents.AssertExpectations(t)
}

func TestDocumentHandler_GetImage_StreamsBytes(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	asset := &domain.ImageAsset{
		ID:         12,
		DocumentID: "doc-1",
		Label:      domain.ImageLabelAutomobile,
		Format:     "png",
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	documents.On("GetImage", mock.Anything, int64(12)).Return(asset, []byte("png-bytes"), nil)

	req := httptest.NewRequest(http.MethodGet, "/images/12", nil)
	req = withURLParam(req, "id", "12")
	w := httptest.NewRecorder()

	handler.GetImage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestDocumentHandler_GetImage_InvalidID(t *testing.T) {
	handler, _, documents := newTestDocumentHandler()

	req := httptest.NewRequest(http.MethodGet, "/images/not-a-number", nil)
	req = withURLParam(req, "id", "not-a-number")
	w := httptest.NewRecorder()

	handler.GetImage(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	documents.AssertNotCalled(t, "GetImage", mock.Anything, mock.Anything)
}
