package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/rfq"
)

// orchestratorFixture wires an OrchestratorService over mocked
// repositories, embedders and completer.
type orchestratorFixture struct {
	svc           *OrchestratorService
	completer     *MockCompleter
	chunkRepo     *MockChunkRepo
	textEmbedder  *MockTextEmbedder
	imageRepo     *MockImageRepo
	imageEmbedder *MockMultimodalEmbedder
	draftRepo     *MockDraftRepo
	documentRepo  *MockDocumentRepo
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		completer:     new(MockCompleter),
		chunkRepo:     new(MockChunkRepo),
		textEmbedder:  new(MockTextEmbedder),
		imageRepo:     new(MockImageRepo),
		imageEmbedder: new(MockMultimodalEmbedder),
		draftRepo:     new(MockDraftRepo),
		documentRepo:  new(MockDocumentRepo),
	}
	retrieval := NewRetrievalService(f.chunkRepo, f.textEmbedder)
	images := NewImageService(f.imageRepo, new(MockReclassifyJobRepo), f.imageEmbedder)
	drafting := NewDraftingService(f.completer)
	drafts := NewDraftServiceWithUUIDGen(f.draftRepo, drafting, &sequentialUUIDGen{prefix: "draft"})
	f.svc = NewOrchestratorService(retrieval, images, drafting, drafts, f.documentRepo, f.completer)
	return f
}

// stubEmptyRetrieval makes both text and image retrieval succeed with
// no hits.
func (f *orchestratorFixture) stubEmptyRetrieval() {
	f.textEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.chunkRepo.On("SearchSemantic", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.chunkRepo.On("SearchLexical", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.imageEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.2}, nil)
	f.imageRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ImageSearchResult{}, nil)
}

func (f *orchestratorFixture) stubIntent(intent string) {
	f.completer.On("Complete", mock.Anything, intentSystemPrompt, mock.Anything).Return(intent, nil).Once()
}

func TestOrchestratorService_HandleTurn_GibberishShortCircuits(t *testing.T) {
	f := newOrchestratorFixture()
	session := domain.NewSession("session-1")

	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "asdfgh"})

	assert.NoError(t, err)
	assert.Equal(t, clarifyingReply, out.Reply)
	assert.Nil(t, out.Draft)
	assert.Len(t, session.History, 2)
	// No retrieval, no model call, no drafting.
	f.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	f.chunkRepo.AssertNotCalled(t, "SearchSemantic", mock.Anything, mock.Anything, mock.Anything)
	f.draftRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestratorService_HandleTurn_QuestionBeforeComponentAsksForOne(t *testing.T) {
	f := newOrchestratorFixture()
	f.stubIntent("question")
	session := domain.NewSession("session-1")

	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "what can you do for me?"})

	assert.NoError(t, err)
	assert.Equal(t, clarifyingReply, out.Reply)
	assert.Empty(t, session.Requirement)
}

func TestOrchestratorService_HandleTurn_DraftsWhenContextSufficient(t *testing.T) {
	f := newOrchestratorFixture()
	requirement := "front brake caliper for a compact EV, 54 mm bore, ISO 26262, forged aluminium"

	f.stubIntent("name_component")
	f.completer.On("Complete", mock.Anything, validatorSystemPrompt, mock.Anything).Return("yes", nil).Once()
	f.completer.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return(testDraftBody(nil), nil).Once()

	now := time.Now().UTC()
	f.textEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.chunkRepo.On("SearchSemantic", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{chunkHit("chunk-1", "doc-1", "caliper-spec.pdf", now, 0.9)}, nil)
	f.chunkRepo.On("SearchLexical", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.imageEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.2}, nil)
	f.imageRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ImageSearchResult{
			{Image: &domain.ImageAsset{ID: 7, Label: domain.ImageLabelAutomobile, Description: "caliper assembly"}, Score: 0.8},
		}, nil)
	f.documentRepo.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.SourceDocument{ID: "doc-1", Filename: "caliper-spec.pdf", Text: "Bore 54 mm, forged."}, nil)
	f.draftRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	session := domain.NewSession("session-1")
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: requirement})

	assert.NoError(t, err)
	assert.NotNil(t, out.Draft)
	assert.Equal(t, domain.PhaseEditing, session.Phase)
	assert.Equal(t, out.Draft.ID, session.DraftID)
	assert.Equal(t, requirement, session.Requirement)
	assert.Len(t, out.Citations, 1)
	assert.Equal(t, "caliper-spec.pdf", out.Citations[0].Filename)
	f.draftRepo.AssertExpectations(t)
}

func TestOrchestratorService_HandleTurn_InsufficientContextAsksQuestion(t *testing.T) {
	f := newOrchestratorFixture()

	f.stubIntent("name_component")
	f.completer.On("Complete", mock.Anything, validatorSystemPrompt, mock.Anything).Return("yes", nil).Once()

	now := time.Now().UTC()
	vague := chunkHit("chunk-1", "doc-1", "overview.pdf", now, 0.9)
	vague.Content = "General supplier overview without figures."
	f.textEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.chunkRepo.On("SearchSemantic", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{vague}, nil)
	f.chunkRepo.On("SearchLexical", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.imageEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.2}, nil)
	f.imageRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ImageSearchResult{}, nil)

	session := domain.NewSession("session-1")
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "a caliper for some vehicle"})

	assert.NoError(t, err)
	assert.Nil(t, out.Draft)
	assert.Contains(t, out.Reply, "draft anyway")
	assert.Equal(t, domain.PhaseValidatingSufficiency, session.Phase)
	f.draftRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestratorService_HandleTurn_DraftAnywayOverridesGuard(t *testing.T) {
	f := newOrchestratorFixture()
	f.stubIntent("override_draft")
	f.completer.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return(testDraftBody(nil), nil).Once()
	f.stubEmptyRetrieval()
	f.draftRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	session := domain.NewSession("session-1")
	session.Requirement = "a caliper for some vehicle"
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "just draft anyway please"})

	assert.NoError(t, err)
	assert.NotNil(t, out.Draft)
	assert.Equal(t, domain.PhaseEditing, session.Phase)
	// No sufficiency validation happened.
	f.completer.AssertNotCalled(t, "Complete", mock.Anything, validatorSystemPrompt, mock.Anything)
}

func TestOrchestratorService_HandleTurn_RejectedRequirementGetsExplanation(t *testing.T) {
	f := newOrchestratorFixture()
	f.stubIntent("name_component")
	f.completer.On("Complete", mock.Anything, validatorSystemPrompt, mock.Anything).Return("no", nil).Once()
	f.stubEmptyRetrieval()

	session := domain.NewSession("session-1")
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "the best stuff money can buy"})

	assert.NoError(t, err)
	assert.Nil(t, out.Draft)
	assert.Contains(t, out.Reply, "can't draft from this yet")
	f.draftRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestratorService_HandleTurn_EditingAppliesInstruction(t *testing.T) {
	f := newOrchestratorFixture()
	body := rfq.CleanBody(testDraftBody(nil))
	existing := domain.NewRFQDraft("draft-1", "RFQ: caliper", body, time.Now().UTC())

	f.stubIntent("edit_draft")
	f.stubEmptyRetrieval()
	revised := testDraftBody(map[string]string{
		rfq.SectionDelivery: "SOP in calendar week 12.",
	})
	f.completer.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(revised, nil).Once()
	f.completer.On("Complete", mock.Anything, impactSystemPrompt, mock.Anything).
		Return("Delivery moved; review commercial terms.", nil).Once()
	f.draftRepo.On("GetByID", mock.Anything, "draft-1").Return(existing, nil).Once()
	f.draftRepo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	session := domain.NewSession("session-1")
	session.Phase = domain.PhaseEditing
	session.DraftID = "draft-1"
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "move SOP to week 12"})

	assert.NoError(t, err)
	assert.NotNil(t, out.Draft)
	assert.Contains(t, out.Draft.Body, "calendar week 12")
	assert.Contains(t, out.Impact, "Delivery moved")
	assert.Equal(t, "Done. Anything else?", out.Reply)
	f.draftRepo.AssertExpectations(t)
}

func TestOrchestratorService_HandleTurn_EditingNoOpIsReported(t *testing.T) {
	f := newOrchestratorFixture()
	body := rfq.CleanBody(testDraftBody(nil))
	existing := domain.NewRFQDraft("draft-1", "RFQ: caliper", body, time.Now().UTC())

	f.stubIntent("edit_draft")
	f.stubEmptyRetrieval()
	f.completer.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).Return(body, nil).Once()
	f.draftRepo.On("GetByID", mock.Anything, "draft-1").Return(existing, nil).Once()

	session := domain.NewSession("session-1")
	session.Phase = domain.PhaseEditing
	session.DraftID = "draft-1"
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "remove the warranty section"})

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "unchanged")
	f.draftRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrchestratorService_HandleTurn_EditingAnswersQuestion(t *testing.T) {
	f := newOrchestratorFixture()
	f.stubIntent("question")
	f.textEmbedder.On("EmbedText", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	f.chunkRepo.On("SearchSemantic", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.chunkRepo.On("SearchLexical", mock.Anything, mock.Anything, mock.Anything).
		Return([]*ChunkSearchResult{}, nil)
	f.completer.On("Complete", mock.Anything, drafterSystemPrompt, mock.Anything).
		Return("IATF 16949 is the automotive quality management standard.", nil).Once()

	session := domain.NewSession("session-1")
	session.Phase = domain.PhaseEditing
	session.DraftID = "draft-1"
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "what is IATF 16949?"})

	assert.NoError(t, err)
	assert.Nil(t, out.Draft)
	assert.Contains(t, out.Reply, "IATF 16949")
	f.draftRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestOrchestratorService_HandleTurn_EditingReturnsCurrentDraftOnRequest(t *testing.T) {
	f := newOrchestratorFixture()
	existing := domain.NewRFQDraft("draft-1", "RFQ: caliper", "body", time.Now().UTC())
	f.stubIntent("request_draft")
	f.draftRepo.On("GetByID", mock.Anything, "draft-1").Return(existing, nil).Once()

	session := domain.NewSession("session-1")
	session.Phase = domain.PhaseEditing
	session.DraftID = "draft-1"
	out, err := f.svc.HandleTurn(context.Background(), TurnInput{Session: session, Message: "show me the draft"})

	assert.NoError(t, err)
	assert.Equal(t, existing, out.Draft)
}

func TestContextSufficient(t *testing.T) {
	now := time.Now().UTC()
	hit := chunkHit("chunk-1", "doc-1", "spec.pdf", now, 0.9)
	hits := []*DocumentHit{{DocumentID: "doc-1", Filename: "spec.pdf", Snippet: hit.Content}}

	// Dimensions in the snippet plus a process keyword in the requirement.
	assert.True(t, contextSufficient("forged aluminium caliper", hits))
	// One signal only.
	assert.False(t, contextSufficient("a caliper", []*DocumentHit{{Snippet: "general overview"}}))
	// Empty retrieval never suffices.
	assert.False(t, contextSufficient("54 mm bore, ISO 26262, forged", nil))
}
