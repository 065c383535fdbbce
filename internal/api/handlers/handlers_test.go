package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

// withURLParam injects a chi route parameter for handler-level tests.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newTestDocument() *domain.SourceDocument {
	return &domain.SourceDocument{
		ID:         "doc-1",
		Filename:   "caliper-spec.pdf",
		Category:   domain.CategoryDesign,
		SizeBytes:  2048,
		Text:       "Caliper bore 54 mm.",
		StorageKey: "documents/doc-1.pdf",
		UploadedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestDraft() *domain.RFQDraft {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return domain.NewRFQDraft("draft-1", "RFQ: brake caliper", "BACKGROUND & OBJECTIVE\nBody.", now)
}

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestDocument(ctx context.Context, input service.IngestInput) (*domain.SourceDocument, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

func (m *MockIngestionService) IngestImage(ctx context.Context, input service.ImageInput) (*domain.ImageAsset, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImageAsset), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListInput) (*service.DocumentPageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPageResult), args.Error(1)
}

func (m *MockDocumentService) GetByID(ctx context.Context, id string) (*domain.SourceDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentService) GetImage(ctx context.Context, id int64) (*domain.ImageAsset, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.ImageAsset), args.Get(1).([]byte), args.Error(2)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, topK int) ([]*service.DocumentHit, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.DocumentHit), args.Error(1)
}

type MockImageSearchService struct {
	mock.Mock
}

func (m *MockImageSearchService) SearchImages(ctx context.Context, query string, topK int) ([]*service.ImageSearchResult, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.ImageSearchResult), args.Error(1)
}

type MockDraftComposer struct {
	mock.Mock
}

func (m *MockDraftComposer) ComposeDraft(ctx context.Context, requirement string) (*domain.RFQDraft, *service.DraftResult, []domain.DocumentRef, error) {
	args := m.Called(ctx, requirement)
	if args.Get(0) == nil {
		return nil, nil, nil, args.Error(3)
	}
	return args.Get(0).(*domain.RFQDraft), args.Get(1).(*service.DraftResult), args.Get(2).([]domain.DocumentRef), args.Error(3)
}

func (m *MockDraftComposer) ComposeEdit(ctx context.Context, draftID, instruction string) (*domain.RFQDraft, *service.DraftResult, string, error) {
	args := m.Called(ctx, draftID, instruction)
	if args.Get(0) == nil {
		return nil, nil, "", args.Error(3)
	}
	return args.Get(0).(*domain.RFQDraft), args.Get(1).(*service.DraftResult), args.String(2), args.Error(3)
}

type MockDraftService struct {
	mock.Mock
}

func (m *MockDraftService) GetByID(ctx context.Context, id string) (*domain.RFQDraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RFQDraft), args.Error(1)
}

func (m *MockDraftService) List(ctx context.Context, input service.ListInput) (*service.DraftPageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftPageResult), args.Error(1)
}

func (m *MockDraftService) UpdateStatus(ctx context.Context, id string, status domain.DraftStatus) (*domain.RFQDraft, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RFQDraft), args.Error(1)
}

func (m *MockDraftService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, draftID string) (*service.ExportBundle, error) {
	args := m.Called(ctx, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportBundle), args.Error(1)
}

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) HandleTurn(ctx context.Context, input service.TurnInput) (*service.TurnOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TurnOutput), args.Error(1)
}

type MockDraftingService struct {
	mock.Mock
}

func (m *MockDraftingService) ValidateRequirement(ctx context.Context, requirement string) (service.Validation, error) {
	args := m.Called(ctx, requirement)
	return args.Get(0).(service.Validation), args.Error(1)
}

func (m *MockDraftingService) ImpactAnalysis(ctx context.Context, oldBody, newBody string) (string, error) {
	args := m.Called(ctx, oldBody, newBody)
	return args.String(0), args.Error(1)
}
