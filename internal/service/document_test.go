package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
)

func TestDocumentService_List_InvalidCursor(t *testing.T) {
	svc := NewDocumentService(new(MockDocumentRepo), new(MockImageRepo), new(MockStorage))

	_, err := svc.List(context.Background(), ListInput{Cursor: "%%%not-a-cursor%%%"})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestDocumentService_Delete_RemovesImagesAndBytes(t *testing.T) {
	mockDocRepo := new(MockDocumentRepo)
	mockImageRepo := new(MockImageRepo)
	mockStorage := new(MockStorage)
	mockDocRepo.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.SourceDocument{ID: "doc-1", StorageKey: "documents/doc-1.pdf"}, nil)
	mockImageRepo.On("ListByDocument", mock.Anything, "doc-1").Return([]*domain.ImageAsset{
		{ID: 1, StorageKey: "images/doc-1/a"},
		{ID: 2, StorageKey: "images/doc-1/b"},
	}, nil)
	mockStorage.On("DeleteObject", mock.Anything, "images/doc-1/a").Return(nil)
	mockStorage.On("DeleteObject", mock.Anything, "images/doc-1/b").Return(nil)
	mockImageRepo.On("DeleteByDocument", mock.Anything, "doc-1").Return(nil)
	mockStorage.On("DeleteObject", mock.Anything, "documents/doc-1.pdf").Return(nil)
	mockDocRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
	svc := NewDocumentService(mockDocRepo, mockImageRepo, mockStorage)

	err := svc.Delete(context.Background(), "doc-1")

	assert.NoError(t, err)
	mockStorage.AssertExpectations(t)
	mockImageRepo.AssertExpectations(t)
	mockDocRepo.AssertExpectations(t)
}

func TestDocumentService_Delete_StorageFailureIsNotFatal(t *testing.T) {
	mockDocRepo := new(MockDocumentRepo)
	mockImageRepo := new(MockImageRepo)
	mockStorage := new(MockStorage)
	mockDocRepo.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.SourceDocument{ID: "doc-1", StorageKey: "documents/doc-1.pdf"}, nil)
	mockImageRepo.On("ListByDocument", mock.Anything, "doc-1").Return([]*domain.ImageAsset{}, nil)
	mockImageRepo.On("DeleteByDocument", mock.Anything, "doc-1").Return(nil)
	mockStorage.On("DeleteObject", mock.Anything, "documents/doc-1.pdf").
		Return(errors.New("bucket unreachable"))
	mockDocRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
	svc := NewDocumentService(mockDocRepo, mockImageRepo, mockStorage)

	err := svc.Delete(context.Background(), "doc-1")

	assert.NoError(t, err)
	mockDocRepo.AssertCalled(t, "Delete", mock.Anything, "doc-1")
}

func TestDocumentService_Delete_NotFound(t *testing.T) {
	mockDocRepo := new(MockDocumentRepo)
	mockDocRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)
	svc := NewDocumentService(mockDocRepo, new(MockImageRepo), new(MockStorage))

	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentService_GetImage_ReturnsMetadataAndBytes(t *testing.T) {
	mockImageRepo := new(MockImageRepo)
	mockStorage := new(MockStorage)
	mockImageRepo.On("GetByID", mock.Anything, int64(7)).
		Return(&domain.ImageAsset{ID: 7, StorageKey: "images/doc-1/a", Format: "png"}, nil)
	mockStorage.On("GetObject", mock.Anything, "images/doc-1/a").Return([]byte("png-bytes"), nil)
	svc := NewDocumentService(new(MockDocumentRepo), mockImageRepo, mockStorage)

	img, data, err := svc.GetImage(context.Background(), 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), img.ID)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestDocumentService_GetImage_NotFound(t *testing.T) {
	mockImageRepo := new(MockImageRepo)
	mockImageRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, domain.ErrImageNotFound)
	svc := NewDocumentService(new(MockDocumentRepo), mockImageRepo, new(MockStorage))

	_, _, err := svc.GetImage(context.Background(), 404)

	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}
