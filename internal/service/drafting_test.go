package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/rfq"
)

// testDraftBody builds a structurally valid document, optionally
// overriding individual section bodies.
func testDraftBody(overrides map[string]string) string {
	var b strings.Builder
	for _, heading := range rfq.CanonicalSections() {
		b.WriteString(heading + "\n")
		if body, ok := overrides[heading]; ok {
			b.WriteString(body + "\n\n")
		} else {
			b.WriteString("To be completed.\n\n")
		}
	}
	return b.String()
}

func TestDraftingService_ValidateRequirement_Empty(t *testing.T) {
	mockCompleter := new(MockCompleter)
	svc := NewDraftingService(mockCompleter)

	v, err := svc.ValidateRequirement(context.Background(), "   ")

	assert.NoError(t, err)
	assert.Equal(t, VerdictNo, v.Verdict)
	mockCompleter.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDraftingService_ValidateRequirement_TooShort(t *testing.T) {
	mockCompleter := new(MockCompleter)
	svc := NewDraftingService(mockCompleter)

	v, err := svc.ValidateRequirement(context.Background(), "brake caliper")

	assert.NoError(t, err)
	assert.Equal(t, VerdictNo, v.Verdict)
	mockCompleter.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDraftingService_ValidateRequirement_Gibberish(t *testing.T) {
	mockCompleter := new(MockCompleter)
	svc := NewDraftingService(mockCompleter)

	v, err := svc.ValidateRequirement(context.Background(), "asdfgh qwrtpz zxcvbn")

	assert.NoError(t, err)
	assert.Equal(t, VerdictNo, v.Verdict)
	mockCompleter.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDraftingService_ValidateRequirement_Yes(t *testing.T) {
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, validatorSystemPrompt, mock.Anything).Return(" Yes\n", nil)
	svc := NewDraftingService(mockCompleter)

	v, err := svc.ValidateRequirement(context.Background(), "aluminium brake caliper for a mid-size SUV, 10k units per year")

	assert.NoError(t, err)
	assert.Equal(t, VerdictYes, v.Verdict)
	mockCompleter.AssertExpectations(t)
}

func TestDraftingService_ValidateRequirement_CompleterError(t *testing.T) {
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, validatorSystemPrompt, mock.Anything).Return("", errors.New("timeout"))
	svc := NewDraftingService(mockCompleter)

	_, err := svc.ValidateRequirement(context.Background(), "aluminium brake caliper for a mid-size SUV")

	assert.Error(t, err)
	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}

func TestDraftingService_DraftNew_Success(t *testing.T) {
	body := testDraftBody(map[string]string{
		rfq.SectionTechnical: "Caliper bore 54 mm, operating pressure 180 bar.",
	})
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(body, nil).Once()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.DraftNew(context.Background(), "brake caliper for a mid-size SUV", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.True(t, result.Changed)
	assert.NoError(t, rfq.ValidateStructure(result.Body))
	mockCompleter.AssertExpectations(t)
	mockCompleter.AssertNumberOfCalls(t, "Complete", 1)
}

func TestDraftingService_DraftNew_RetryAfterBadStructure(t *testing.T) {
	valid := testDraftBody(nil)
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return("Sure! Here is your RFQ: it covers everything.", nil).Once()
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "previous answer was rejected")
	})).Return(valid, nil).Once()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.DraftNew(context.Background(), "brake caliper for a mid-size SUV", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.NoError(t, rfq.ValidateStructure(result.Body))
	mockCompleter.AssertExpectations(t)
}

func TestDraftingService_DraftNew_FallsBackToSkeleton(t *testing.T) {
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return("still not a document", nil).Twice()
	svc := NewDraftingService(mockCompleter)

	requirement := "brake caliper for a mid-size SUV"
	result, err := svc.DraftNew(context.Background(), requirement, RetrievedContext{})

	assert.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.True(t, result.Changed)
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, rfq.Skeleton(requirement), result.Body)
	assert.NoError(t, rfq.ValidateStructure(result.Body))
	mockCompleter.AssertExpectations(t)
}

func TestDraftingService_DraftNew_RejectsFabricatedImageID(t *testing.T) {
	fabricated := testDraftBody(nil)
	fabricated = strings.Replace(fabricated,
		rfq.SectionTechnical+"\n",
		rfq.SectionTechnical+"\n[[IMAGE_ID:99]]\n", 1)
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return(fabricated, nil).Twice()
	svc := NewDraftingService(mockCompleter)

	rctx := RetrievedContext{Images: []ContextImage{{ID: 7, Description: "caliper assembly"}}}
	result, err := svc.DraftNew(context.Background(), "brake caliper for a mid-size SUV", rctx)

	assert.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.NotContains(t, result.Body, "[[IMAGE_ID:99]]")
}

func TestDraftingService_DraftNew_AcceptsAllowedImageID(t *testing.T) {
	body := testDraftBody(nil)
	body = strings.Replace(body,
		rfq.SectionTechnical+"\n",
		rfq.SectionTechnical+"\n[[IMAGE_ID:7]]\n", 1)
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(body, nil).Once()
	svc := NewDraftingService(mockCompleter)

	rctx := RetrievedContext{Images: []ContextImage{{ID: 7, Description: "caliper assembly"}}}
	result, err := svc.DraftNew(context.Background(), "brake caliper for a mid-size SUV", rctx)

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Contains(t, result.Body, "[[IMAGE_ID:7]]")
}

func TestDraftingService_DraftNew_StripsCodeFence(t *testing.T) {
	body := testDraftBody(nil)
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return("```\n"+body+"\n```", nil).Once()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.DraftNew(context.Background(), "brake caliper for a mid-size SUV", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.NotContains(t, result.Body, "```")
}

func TestDraftingService_ApplyEdit_Success(t *testing.T) {
	current := testDraftBody(nil)
	revised := testDraftBody(map[string]string{
		rfq.SectionDelivery: "First articles in 6 weeks, series delivery weekly thereafter.",
	})
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(revised, nil).Once()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.ApplyEdit(context.Background(), current, "tighten the delivery timeline", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.True(t, result.Changed)
	assert.Contains(t, result.Body, "First articles in 6 weeks")
}

func TestDraftingService_ApplyEdit_NoOpReturnsUnchanged(t *testing.T) {
	current := rfq.CleanBody(testDraftBody(nil))
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(current, nil).Once()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.ApplyEdit(context.Background(), current, "delete the warranty section", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.False(t, result.Changed)
	assert.Equal(t, current, result.Body)
}

func TestDraftingService_ApplyEdit_FallbackKeepsCurrentBody(t *testing.T) {
	current := testDraftBody(nil)
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return("I removed the sections you did not need.", nil).Twice()
	svc := NewDraftingService(mockCompleter)

	result, err := svc.ApplyEdit(context.Background(), current, "remove everything", RetrievedContext{})

	assert.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.False(t, result.Changed)
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, current, result.Body)
}

func TestDraftingService_ApplyEdit_ExistingPlaceholderStaysLegal(t *testing.T) {
	current := testDraftBody(nil)
	current = strings.Replace(current,
		rfq.SectionScope+"\n",
		rfq.SectionScope+"\n[[IMAGE_ID:12]]\n", 1)
	revised := strings.Replace(current, "To be completed.", "Machining and anodizing of the housing.", 1)

	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(revised, nil).Once()
	svc := NewDraftingService(mockCompleter)

	// Retrieval returned nothing this turn; the placeholder already in
	// the document must still be accepted.
	result, err := svc.ApplyEdit(context.Background(), current, "describe the scope", RetrievedContext{})

	assert.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Contains(t, result.Body, "[[IMAGE_ID:12]]")
}

func TestDraftingService_ImpactAnalysis_NoChanges(t *testing.T) {
	body := testDraftBody(nil)
	mockCompleter := new(MockCompleter)
	svc := NewDraftingService(mockCompleter)

	summary, err := svc.ImpactAnalysis(context.Background(), body, body)

	assert.NoError(t, err)
	assert.Equal(t, "No changes detected between the two revisions.", summary)
	mockCompleter.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDraftingService_ImpactAnalysis_SummarizesDeliveryChange(t *testing.T) {
	oldBody := testDraftBody(nil)
	newBody := testDraftBody(map[string]string{
		rfq.SectionDelivery: "SOP moved forward by 8 weeks.",
	})
	mockCompleter := new(MockCompleter)
	mockCompleter.On("Complete", mock.Anything, impactSystemPrompt, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, rfq.SectionDelivery) &&
			strings.Contains(prompt, rfq.SectionCommercial)
	})).Return("Delivery moved up; review commercial terms for expedite fees.", nil).Once()
	svc := NewDraftingService(mockCompleter)

	summary, err := svc.ImpactAnalysis(context.Background(), oldBody, newBody)

	assert.NoError(t, err)
	assert.Contains(t, summary, "Delivery moved up")
	mockCompleter.AssertExpectations(t)
}

func TestLooksLikeGibberish(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"asdfgh", true},
		{"zxcvbn mnbvcx", true},
		{"!!!???", true},
		{"", true},
		{"brake caliper for a mid-size SUV", false},
		{"M8 hex bolts DIN 933", false},
		{"stainless steel exhaust manifold", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LooksLikeGibberish(c.text), "text: %q", c.text)
	}
}
