package service

import (
	"context"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/metrics"
	"github.com/sourcingworks/rfqsmith/internal/rfq"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
)

// Completer is the consumer-side interface for LLM chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ContextPassage is one retrieved text passage handed to the drafter.
type ContextPassage struct {
	DocumentID string
	Filename   string
	Content    string
}

// ContextImage is one retrieved image the drafter may reference.
type ContextImage struct {
	ID          int64
	Description string
}

// RetrievedContext is everything retrieval contributed to one
// drafting or editing call. The drafter may only cite what is here.
type RetrievedContext struct {
	Passages []ContextPassage
	Images   []ContextImage
}

// AllowedImageIDs returns the set of image IDs the model may reference.
func (c RetrievedContext) AllowedImageIDs() map[int64]bool {
	ids := make(map[int64]bool, len(c.Images))
	for _, img := range c.Images {
		ids[img.ID] = true
	}
	return ids
}

// Verdict is the sufficiency judgement for a requirement.
type Verdict string

const (
	VerdictYes   Verdict = "yes"
	VerdictMaybe Verdict = "maybe"
	VerdictNo    Verdict = "no"
)

// Validation is the outcome of the requirement gate.
type Validation struct {
	Verdict Verdict
	Reason  string
}

// DraftResult carries a generated or revised body. Fallback is set
// when structural validation failed twice and the body is the safe
// fallback rather than model output; Reason says why. Changed is
// false when an edit returned the input body untouched.
type DraftResult struct {
	Body     string
	Fallback bool
	Changed  bool
	Reason   string
}

// DraftingService generates and revises RFQ bodies with post-hoc
// structural validation. Model output is never trusted: every body is
// parsed and checked before it leaves this service.
type DraftingService struct {
	completer Completer
}

// NewDraftingService creates a new DraftingService instance
func NewDraftingService(completer Completer) *DraftingService {
	return &DraftingService{completer: completer}
}

const minRequirementTokens = 3

// ValidateRequirement gates requirement text before any retrieval or
// drafting happens. Cheap local checks run first; only plausible text
// reaches the model.
func (s *DraftingService) ValidateRequirement(ctx context.Context, requirement string) (Validation, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftingService.ValidateRequirement", telemetry.SpanAttributes{
		Operation: "validate_requirement",
	})
	defer span.End()

	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return Validation{Verdict: VerdictNo, Reason: "requirement is empty"}, nil
	}
	if len(strings.Fields(requirement)) < minRequirementTokens {
		return Validation{Verdict: VerdictNo, Reason: "requirement is too short to act on"}, nil
	}
	if LooksLikeGibberish(requirement) {
		return Validation{Verdict: VerdictNo, Reason: "requirement has no recognizable content"}, nil
	}

	answer, err := s.completer.Complete(ctx, validatorSystemPrompt, validateRequirementPrompt(requirement))
	if err != nil {
		span.SetError(err)
		return Validation{}, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes":
		return Validation{Verdict: VerdictYes}, nil
	case "maybe":
		return Validation{Verdict: VerdictMaybe, Reason: "requirement may need more detail"}, nil
	default:
		return Validation{Verdict: VerdictNo, Reason: "not recognized as an automotive sourcing requirement"}, nil
	}
}

// DraftNew produces a structurally valid RFQ body for the requirement.
// One retry with a stricter reminder on validation failure; after a
// second failure the result is a templated skeleton with Fallback set.
func (s *DraftingService) DraftNew(ctx context.Context, requirement string, rctx RetrievedContext) (*DraftResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftingService.DraftNew", telemetry.SpanAttributes{
		Operation: "draft_new",
	})
	defer span.End()

	allowed := rctx.AllowedImageIDs()
	prompt := draftNewPrompt(requirement, rctx)

	body, reason, err := s.completeAndValidate(ctx, prompt, func(body string) error {
		if err := rfq.ValidateStructure(body); err != nil {
			return err
		}
		return rfq.ValidatePlaceholders(body, allowed)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if reason != "" {
		telemetry.AddBreadcrumb(ctx, "drafting", "draft_new fell back to skeleton: "+reason)
		metrics.DraftFallbacksTotal.Inc()
		return &DraftResult{Body: rfq.Skeleton(requirement), Fallback: true, Changed: true, Reason: reason}, nil
	}
	return &DraftResult{Body: body, Changed: true}, nil
}

// ApplyEdit revises currentBody per instruction. Placeholders already
// present in the document stay legal even when retrieval returned
// nothing this turn. After two structural failures the current body is
// returned untouched with Fallback set.
func (s *DraftingService) ApplyEdit(ctx context.Context, currentBody, instruction string, rctx RetrievedContext) (*DraftResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftingService.ApplyEdit", telemetry.SpanAttributes{
		Operation: "apply_edit",
	})
	defer span.End()

	allowed := rctx.AllowedImageIDs()
	for _, id := range rfq.ExtractImageIDs(currentBody) {
		allowed[id] = true
	}
	prompt := applyEditPrompt(currentBody, instruction, rctx)

	body, reason, err := s.completeAndValidate(ctx, prompt, func(body string) error {
		if err := rfq.ValidateStructure(body); err != nil {
			return err
		}
		return rfq.ValidatePlaceholders(body, allowed)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if reason != "" {
		telemetry.AddBreadcrumb(ctx, "drafting", "apply_edit kept current body: "+reason)
		metrics.DraftFallbacksTotal.Inc()
		return &DraftResult{Body: currentBody, Fallback: true, Reason: reason}, nil
	}
	return &DraftResult{Body: body, Changed: body != currentBody}, nil
}

// ImpactAnalysis describes what changed between two revisions and
// which related sections deserve review. Neither input is modified;
// identical bodies short-circuit without a model call.
func (s *DraftingService) ImpactAnalysis(ctx context.Context, oldBody, newBody string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftingService.ImpactAnalysis", telemetry.SpanAttributes{
		Operation: "impact_analysis",
	})
	defer span.End()

	changes, err := rfq.DiffSections(oldBody, newBody)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "cannot diff document revisions", err)
	}
	if len(changes) == 0 {
		return "No changes detected between the two revisions.", nil
	}

	candidates := rfq.ReviewCandidates(changes)
	summary, err := s.completer.Complete(ctx, impactSystemPrompt, impactAnalysisPrompt(changes, candidates))
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}
	return strings.TrimSpace(summary), nil
}

// completeAndValidate runs the generate -> validate -> retry loop.
// Returns the accepted body, or an empty body with the final rejection
// reason when both attempts failed validation.
func (s *DraftingService) completeAndValidate(ctx context.Context, prompt string, validate func(string) error) (string, string, error) {
	raw, err := s.completer.Complete(ctx, drafterSystemPrompt, prompt)
	if err != nil {
		return "", "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}

	body := rfq.CleanBody(raw)
	vErr := validate(body)
	if vErr == nil {
		return body, "", nil
	}

	raw, err = s.completer.Complete(ctx, drafterSystemPrompt, prompt+strictReminder(vErr.Error()))
	if err != nil {
		return "", "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "language model service unavailable", err)
	}

	body = rfq.CleanBody(raw)
	if vErr = validate(body); vErr != nil {
		return "", vErr.Error(), nil
	}
	return body, "", nil
}

// LooksLikeGibberish reports whether text has no recognizable
// linguistic content (keyboard mash, symbol runs). It is intentionally
// conservative: real component names pass.
func LooksLikeGibberish(text string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return true
	}

	nonsense := 0
	for _, word := range fields {
		letters := 0
		vowels := 0
		consonantRun := 0
		maxRun := 0
		for _, r := range word {
			if r < 'a' || r > 'z' {
				consonantRun = 0
				continue
			}
			letters++
			switch r {
			case 'a', 'e', 'i', 'o', 'u', 'y':
				vowels++
				consonantRun = 0
			default:
				consonantRun++
				if consonantRun > maxRun {
					maxRun = consonantRun
				}
			}
		}
		switch {
		case letters == 0 && len(word) > 2:
			// Symbol runs count unless they look like part numbers.
			if !strings.ContainsAny(word, "0123456789") {
				nonsense++
			}
		case letters >= 4 && vowels == 0:
			nonsense++
		case maxRun >= 5:
			nonsense++
		}
	}
	return nonsense*2 > len(fields)
}
