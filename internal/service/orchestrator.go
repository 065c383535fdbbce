package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// Intent is the structured classification of one user message.
type Intent string

const (
	IntentNameComponent     Intent = "name_component"
	IntentRefineRequirement Intent = "refine_requirement"
	IntentRequestDraft      Intent = "request_draft"
	IntentEditDraft         Intent = "edit_draft"
	IntentQuestion          Intent = "question"
	IntentOverrideDraft     Intent = "override_draft"
	IntentOther             Intent = "other"
)

// overridePhrase lets the user bypass the sufficiency guard.
const overridePhrase = "draft anyway"

const clarifyingReply = "I could not make sense of that. Which automotive component or assembly would you like to source? For example: \"front brake caliper for a compact EV\"."

// TurnInput is one user message plus the session it belongs to.
type TurnInput struct {
	Session *domain.Session
	Message string
}

// TurnOutput is the orchestrator's reply for one turn. Session is the
// same value advanced to its next phase; the caller round-trips it.
type TurnOutput struct {
	Session   *domain.Session
	Reply     string
	Draft     *domain.RFQDraft
	Impact    string
	Citations []domain.DocumentRef
}

// DocumentReader loads full document text for drafting context.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.SourceDocument, error)
}

// OrchestratorService drives the drafting conversation as a finite
// state machine over the session phase. Every turn is one synchronous
// pipeline; no state outlives the returned Session value.
type OrchestratorService struct {
	retrieval *RetrievalService
	images    *ImageService
	drafting  *DraftingService
	drafts    *DraftService
	documents DocumentReader
	completer Completer
}

// NewOrchestratorService creates a new OrchestratorService instance
func NewOrchestratorService(
	retrieval *RetrievalService,
	images *ImageService,
	drafting *DraftingService,
	drafts *DraftService,
	documents DocumentReader,
	completer Completer,
) *OrchestratorService {
	return &OrchestratorService{
		retrieval: retrieval,
		images:    images,
		drafting:  drafting,
		drafts:    drafts,
		documents: documents,
		completer: completer,
	}
}

// HandleTurn processes one user message and advances the session.
func (s *OrchestratorService) HandleTurn(ctx context.Context, input TurnInput) (*TurnOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrchestratorService.HandleTurn", telemetry.SpanAttributes{
		SessionID: input.Session.ID,
		Operation: "turn",
	})
	defer span.End()

	session := input.Session
	message := strings.TrimSpace(input.Message)
	session.Append(domain.ChatRoleUser, message, nowUTC(), nil)

	// Nonsense input never reaches retrieval or the model.
	if message == "" || LooksLikeGibberish(message) {
		return s.reply(session, clarifyingReply, nil, "", nil), nil
	}

	intent, err := s.classifyIntent(ctx, message, session.DraftID != "")
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if session.Phase == domain.PhaseEditing && session.DraftID != "" {
		return s.editingTurn(ctx, session, message, intent)
	}

	switch intent {
	case IntentQuestion, IntentOther:
		if session.Requirement == "" {
			return s.reply(session, clarifyingReply, nil, "", nil), nil
		}
	case IntentNameComponent:
		session.Requirement = message
	default:
		if session.Requirement == "" {
			session.Requirement = message
		} else if intent == IntentRefineRequirement {
			session.Requirement = session.Requirement + "\n" + message
		}
	}

	session.Phase = domain.PhaseResearching
	return s.researchAndMaybeDraft(ctx, session, message, intent)
}

// researchAndMaybeDraft runs retrieval, the sufficiency gate, and
// drafting for a session that has a requirement but no draft yet.
func (s *OrchestratorService) researchAndMaybeDraft(ctx context.Context, session *domain.Session, message string, intent Intent) (*TurnOutput, error) {
	hits, err := s.retrieval.Search(ctx, session.Requirement, DefaultTopK)
	if err != nil {
		return nil, err
	}
	imageHits, err := s.images.SearchImages(ctx, session.Requirement, DefaultImageTopK)
	if err != nil {
		return nil, err
	}
	citations := citationsFromHits(hits)

	session.Phase = domain.PhaseValidatingSufficiency

	override := intent == IntentOverrideDraft || strings.Contains(strings.ToLower(message), overridePhrase)
	if !override {
		validation, err := s.drafting.ValidateRequirement(ctx, session.Requirement)
		if err != nil {
			return nil, err
		}
		if validation.Verdict == VerdictNo {
			msg := fmt.Sprintf("I can't draft from this yet: %s. Could you describe the component and its key requirements?", validation.Reason)
			return s.reply(session, msg, nil, "", citations), nil
		}
		if !contextSufficient(session.Requirement, hits) {
			return s.reply(session, insufficiencyQuestion(hits), nil, "", citations), nil
		}
	}

	session.Phase = domain.PhaseDrafting
	rctx, err := s.buildContext(ctx, hits, imageHits)
	if err != nil {
		return nil, err
	}

	draft, result, err := s.drafts.CreateDraft(ctx, session.Requirement, rctx)
	if err != nil {
		return nil, err
	}

	session.DraftID = draft.ID
	session.Phase = domain.PhaseEditing

	msg := "Here is a first draft. Tell me what to change, or approve it when ready."
	if result.Fallback {
		msg = fmt.Sprintf("I could not generate a complete draft (%s), so I prepared a skeleton to fill in. Tell me what to change.", result.Reason)
	} else if len(hits) == 0 {
		msg = "No reference documents matched, so this draft leans on the requirement alone. Tell me what to change."
	}
	return s.reply(session, msg, draft, "", citations), nil
}

// ComposeDraft generates and persists a draft for a requirement outside
// any conversation: retrieval, context assembly, then generation. The
// sufficiency guard does not apply; the caller asked for a draft
// explicitly.
func (s *OrchestratorService) ComposeDraft(ctx context.Context, requirement string) (*domain.RFQDraft, *DraftResult, []domain.DocumentRef, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrchestratorService.ComposeDraft", telemetry.SpanAttributes{
		Operation: "compose_draft",
	})
	defer span.End()

	hits, err := s.retrieval.Search(ctx, requirement, DefaultTopK)
	if err != nil {
		return nil, nil, nil, err
	}
	imageHits, err := s.images.SearchImages(ctx, requirement, DefaultImageTopK)
	if err != nil {
		return nil, nil, nil, err
	}
	rctx, err := s.buildContext(ctx, hits, imageHits)
	if err != nil {
		return nil, nil, nil, err
	}

	draft, result, err := s.drafts.CreateDraft(ctx, requirement, rctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return draft, result, citationsFromHits(hits), nil
}

// ComposeEdit applies one instruction to a stored draft outside any
// conversation, retrieving fresh context for the instruction first.
func (s *OrchestratorService) ComposeEdit(ctx context.Context, draftID, instruction string) (*domain.RFQDraft, *DraftResult, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrchestratorService.ComposeEdit", telemetry.SpanAttributes{
		DraftID:   draftID,
		Operation: "compose_edit",
	})
	defer span.End()

	hits, err := s.retrieval.Search(ctx, instruction, DefaultTopK)
	if err != nil {
		return nil, nil, "", err
	}
	imageHits, err := s.images.SearchImages(ctx, instruction, DefaultImageTopK)
	if err != nil {
		return nil, nil, "", err
	}
	rctx, err := s.buildContext(ctx, hits, imageHits)
	if err != nil {
		return nil, nil, "", err
	}
	return s.drafts.Edit(ctx, draftID, instruction, rctx)
}

// editingTurn routes messages for a session that already owns a draft.
func (s *OrchestratorService) editingTurn(ctx context.Context, session *domain.Session, message string, intent Intent) (*TurnOutput, error) {
	switch intent {
	case IntentQuestion:
		answer, err := s.answerQuestion(ctx, session, message)
		if err != nil {
			return nil, err
		}
		return s.reply(session, answer, nil, "", nil), nil
	case IntentRequestDraft:
		draft, err := s.drafts.GetByID(ctx, session.DraftID)
		if err != nil {
			return nil, err
		}
		return s.reply(session, "Here is the current draft.", draft, "", nil), nil
	}

	draft, result, impact, err := s.ComposeEdit(ctx, session.DraftID, message)
	if err != nil {
		return nil, err
	}

	msg := "Done. Anything else?"
	if result.Fallback {
		msg = fmt.Sprintf("I could not apply that change cleanly (%s); the draft is unchanged. Try rephrasing the instruction.", result.Reason)
	} else if !result.Changed {
		msg = "That instruction did not match anything in the draft, so it is unchanged."
	}
	return s.reply(session, msg, draft, impact, nil), nil
}

func (s *OrchestratorService) answerQuestion(ctx context.Context, session *domain.Session, message string) (string, error) {
	hits, err := s.retrieval.Search(ctx, message, DefaultTopK)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Answer the user's question about their RFQ briefly, using the reference material when relevant.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", message)
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, h.Filename, h.Snippet)
	}
	answer, err := s.completer.Complete(ctx, drafterSystemPrompt, b.String())
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}
	return strings.TrimSpace(answer), nil
}

// classifyIntent asks the model for a constrained intent token.
// Unrecognized answers degrade to IntentOther rather than failing the turn.
func (s *OrchestratorService) classifyIntent(ctx context.Context, message string, hasDraft bool) (Intent, error) {
	answer, err := s.completer.Complete(ctx, intentSystemPrompt, intentPrompt(message, hasDraft))
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}

	switch Intent(strings.ToLower(strings.TrimSpace(answer))) {
	case IntentNameComponent:
		return IntentNameComponent, nil
	case IntentRefineRequirement:
		return IntentRefineRequirement, nil
	case IntentRequestDraft:
		return IntentRequestDraft, nil
	case IntentEditDraft:
		return IntentEditDraft, nil
	case IntentQuestion:
		return IntentQuestion, nil
	case IntentOverrideDraft:
		return IntentOverrideDraft, nil
	default:
		return IntentOther, nil
	}
}

// buildContext loads full document text for the top hits and pairs it
// with the retrieved images.
func (s *OrchestratorService) buildContext(ctx context.Context, hits []*DocumentHit, imageHits []*ImageSearchResult) (RetrievedContext, error) {
	const maxPassageChars = 4000

	rctx := RetrievedContext{}
	for _, h := range hits {
		doc, err := s.documents.GetByID(ctx, h.DocumentID)
		if err != nil {
			return RetrievedContext{}, err
		}
		content := doc.Text
		if runes := []rune(content); len(runes) > maxPassageChars {
			content = string(runes[:maxPassageChars])
		}
		rctx.Passages = append(rctx.Passages, ContextPassage{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Content:    content,
		})
	}
	for _, ih := range imageHits {
		rctx.Images = append(rctx.Images, ContextImage{
			ID:          ih.Image.ID,
			Description: ih.Image.Description,
		})
	}
	return rctx, nil
}

func (s *OrchestratorService) reply(session *domain.Session, text string, draft *domain.RFQDraft, impact string, citations []domain.DocumentRef) *TurnOutput {
	session.Append(domain.ChatRoleAssistant, text, nowUTC(), citations)
	return &TurnOutput{
		Session:   session,
		Reply:     text,
		Draft:     draft,
		Impact:    impact,
		Citations: citations,
	}
}

func citationsFromHits(hits []*DocumentHit) []domain.DocumentRef {
	refs := make([]domain.DocumentRef, 0, len(hits))
	for _, h := range hits {
		refs = append(refs, domain.DocumentRef{
			DocumentID: h.DocumentID,
			Filename:   h.Filename,
			Score:      float32(h.Score),
		})
	}
	return refs
}

// Specificity signals the sufficiency gate looks for before drafting.
var (
	dimensionRe = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(mm|cm|m|kg|g|nm|kw|kwh|v|ah|mpa|bar|°c|deg|rpm|days?|weeks?)\b`)
	standardRe  = regexp.MustCompile(`(?i)\b(iso|iatf|sae|din|astm|asil|unece|fmvss)[\s-]?\w*\d\w*\b`)
	processRe   = regexp.MustCompile(`(?i)\b(cast|forg|machin|weld|stamp|extrud|injection|mold|mould|anodiz|galvaniz|toleranc|hardness|coating)`)
)

// contextSufficient decides whether the requirement plus retrieved
// snippets carry enough specificity to draft from. Two independent
// signals are required; an empty retrieval never suffices on its own.
func contextSufficient(requirement string, hits []*DocumentHit) bool {
	if len(hits) == 0 {
		return false
	}
	text := requirement
	for _, h := range hits {
		text += "\n" + h.Snippet
	}

	signals := 0
	if dimensionRe.MatchString(text) {
		signals++
	}
	if standardRe.MatchString(text) {
		signals++
	}
	if processRe.MatchString(text) {
		signals++
	}
	return signals >= 2
}

func insufficiencyQuestion(hits []*DocumentHit) string {
	if len(hits) == 0 {
		return "I could not find reference documents for this component. Could you share key specifics (dimensions, applicable standards, manufacturing constraints), or say \"draft anyway\" to proceed with a generic draft?"
	}
	return "The material I found is not specific enough to draft confidently. Could you add concrete details such as dimensions, applicable standards, or manufacturing constraints? You can also say \"draft anyway\" to proceed."
}
