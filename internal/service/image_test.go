package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
)

// stubLabelPrompts points every positive prompt at one axis of a 2-D
// space and every negative prompt at the other, so classification
// outcomes are fully determined by the image vector.
func stubLabelPrompts(m *MockMultimodalEmbedder) {
	for _, prompt := range positiveLabelPrompts {
		m.On("EmbedText", mock.Anything, prompt).Return([]float32{1, 0}, nil)
	}
	for _, prompt := range negativeLabelPrompts {
		m.On("EmbedText", mock.Anything, prompt).Return([]float32{0, 1}, nil)
	}
}

func TestImageService_Classify_Automobile(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	mockEmbedder.On("EmbedImage", mock.Anything, mock.Anything).Return([]float32{1, 0.1}, nil)
	stubLabelPrompts(mockEmbedder)
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	c := svc.Classify(context.Background(), []byte("caliper-diagram-bytes"))

	assert.Equal(t, domain.ImageLabelAutomobile, c.Label)
	assert.Equal(t, "clip-vit-b32", c.Model)
	assert.Greater(t, c.Confidence, float32(classifyThreshold))
	assert.NotEmpty(t, c.Embedding)
}

func TestImageService_Classify_NonAutomobile(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	mockEmbedder.On("EmbedImage", mock.Anything, mock.Anything).Return([]float32{0.1, 1}, nil)
	stubLabelPrompts(mockEmbedder)
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	c := svc.Classify(context.Background(), []byte("marketing-photo-bytes"))

	assert.Equal(t, domain.ImageLabelNonAutomobile, c.Label)
}

func TestImageService_Classify_BelowThresholdIsNonAutomobile(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	// Orthogonal to every positive prompt: best positive similarity 0.
	mockEmbedder.On("EmbedImage", mock.Anything, mock.Anything).Return([]float32{0, 0.5}, nil)
	stubLabelPrompts(mockEmbedder)
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	c := svc.Classify(context.Background(), []byte("bytes"))

	assert.Equal(t, domain.ImageLabelNonAutomobile, c.Label)
}

func TestImageService_Classify_ProviderFailureYieldsUnknown(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	mockEmbedder.On("EmbedImage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	c := svc.Classify(context.Background(), []byte("bytes"))

	assert.Equal(t, domain.ImageLabelUnknown, c.Label)
	assert.Nil(t, c.Embedding)
}

func TestImageService_Classify_MemoizesLabelEmbeddings(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	mockEmbedder.On("EmbedImage", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	stubLabelPrompts(mockEmbedder)
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	svc.Classify(context.Background(), []byte("one"))
	svc.Classify(context.Background(), []byte("two"))

	prompts := len(positiveLabelPrompts) + len(negativeLabelPrompts)
	mockEmbedder.AssertNumberOfCalls(t, "EmbedText", prompts)
}

func TestImageService_SearchImages_EmptyQuery(t *testing.T) {
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), new(MockMultimodalEmbedder))

	_, err := svc.SearchImages(context.Background(), "", 3)

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestImageService_SearchImages_InvalidTopK(t *testing.T) {
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), new(MockMultimodalEmbedder))

	_, err := svc.SearchImages(context.Background(), "brake caliper", -1)

	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
}

func TestImageService_SearchImages_DropsWeakMatches(t *testing.T) {
	mockRepo := new(MockImageRepo)
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("EmbedText", mock.Anything, "brake caliper diagram").Return([]float32{0.5, 0.5}, nil)
	mockRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, 3).Return([]*ImageSearchResult{
		{Image: &domain.ImageAsset{ID: 1, Label: domain.ImageLabelAutomobile}, Score: 0.81},
		{Image: &domain.ImageAsset{ID: 2, Label: domain.ImageLabelAutomobile}, Score: 0.64},
		{Image: &domain.ImageAsset{ID: 3, Label: domain.ImageLabelAutomobile}, Score: 0.12},
	}, nil)
	svc := NewImageService(mockRepo, new(MockReclassifyJobRepo), mockEmbedder)

	results, err := svc.SearchImages(context.Background(), "brake caliper diagram", 3)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Image.ID)
	assert.Equal(t, int64(2), results[1].Image.ID)
}

func TestImageService_SearchImages_EmbedderFailure(t *testing.T) {
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	svc := NewImageService(new(MockImageRepo), new(MockReclassifyJobRepo), mockEmbedder)

	_, err := svc.SearchImages(context.Background(), "brake caliper", 3)

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}

func TestImageService_EnqueueReclassification_CreatesJobsForStaleLabels(t *testing.T) {
	mockRepo := new(MockImageRepo)
	mockJobRepo := new(MockReclassifyJobRepo)
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-l14")
	mockRepo.On("ListByLabelModelNot", mock.Anything, "clip-vit-l14", reclassifyBatchSize).
		Return([]*domain.ImageAsset{
			{ID: 10, CreatedAt: time.Now()},
			{ID: 11, CreatedAt: time.Now()},
		}, nil)
	mockJobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.ReclassifyJob) bool {
		return job.TargetModel == "clip-vit-l14" && job.Status == domain.ReclassifyJobStatusPending
	})).Return(nil).Twice()
	svc := NewImageService(mockRepo, mockJobRepo, mockEmbedder)
	svc.uuidGen = &sequentialUUIDGen{prefix: "job"}

	created, err := svc.EnqueueReclassification(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, created)
	mockJobRepo.AssertExpectations(t)
}

func TestImageService_EnqueueReclassification_NothingStale(t *testing.T) {
	mockRepo := new(MockImageRepo)
	mockEmbedder := new(MockMultimodalEmbedder)
	mockEmbedder.On("Model").Return("clip-vit-b32")
	mockRepo.On("ListByLabelModelNot", mock.Anything, "clip-vit-b32", reclassifyBatchSize).
		Return([]*domain.ImageAsset{}, nil)
	svc := NewImageService(mockRepo, new(MockReclassifyJobRepo), mockEmbedder)

	created, err := svc.EnqueueReclassification(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, created)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
