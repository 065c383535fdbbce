package service

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/pagination"
)

// MockCompleter mocks the LLM completion client
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// MockTextEmbedder mocks the text embedding client
type MockTextEmbedder struct {
	mock.Mock
}

func (m *MockTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockMultimodalEmbedder mocks the shared-space embedder
type MockMultimodalEmbedder struct {
	mock.Mock
}

func (m *MockMultimodalEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockMultimodalEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockMultimodalEmbedder) Model() string {
	args := m.Called()
	return args.String(0)
}

// MockChunkRepo mocks the chunk repository
type MockChunkRepo struct {
	mock.Mock
}

func (m *MockChunkRepo) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.TextChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepo) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]*ChunkSearchResult, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ChunkSearchResult), args.Error(1)
}

func (m *MockChunkRepo) SearchLexical(ctx context.Context, query string, limit int) ([]*ChunkSearchResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ChunkSearchResult), args.Error(1)
}

// MockImageRepo mocks the image repository
type MockImageRepo struct {
	mock.Mock
}

func (m *MockImageRepo) Create(ctx context.Context, a *domain.ImageAsset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockImageRepo) GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImageAsset), args.Error(1)
}

func (m *MockImageRepo) ListByDocument(ctx context.Context, documentID string) ([]*domain.ImageAsset, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImageAsset), args.Error(1)
}

func (m *MockImageRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockImageRepo) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*ImageSearchResult, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ImageSearchResult), args.Error(1)
}

func (m *MockImageRepo) UpdateLabel(ctx context.Context, id int64, label domain.ImageLabel, labelModel string, confidence float32) error {
	args := m.Called(ctx, id, label, labelModel, confidence)
	return args.Error(0)
}

func (m *MockImageRepo) ListByLabelModelNot(ctx context.Context, targetModel string, limit int) ([]*domain.ImageAsset, error) {
	args := m.Called(ctx, targetModel, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImageAsset), args.Error(1)
}

// MockReclassifyJobRepo mocks the reclassify job repository
type MockReclassifyJobRepo struct {
	mock.Mock
}

func (m *MockReclassifyJobRepo) Create(ctx context.Context, job *domain.ReclassifyJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockDraftRepo mocks the draft repository
type MockDraftRepo struct {
	mock.Mock
}

func (m *MockDraftRepo) Create(ctx context.Context, d *domain.RFQDraft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDraftRepo) GetByID(ctx context.Context, id string) (*domain.RFQDraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RFQDraft), args.Error(1)
}

func (m *MockDraftRepo) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DraftPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DraftPageResult), args.Error(1)
}

func (m *MockDraftRepo) Update(ctx context.Context, d *domain.RFQDraft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDraftRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDocumentRepo mocks the document repository
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, d *domain.SourceDocument) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.SourceDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

func (m *MockDocumentRepo) GetByFilename(ctx context.Context, filename string) (*domain.SourceDocument, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

func (m *MockDocumentRepo) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStorage mocks object storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// sequentialUUIDGen yields deterministic IDs for tests
type sequentialUUIDGen struct {
	prefix string
	n      int
}

func (g *sequentialUUIDGen) NewString() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
