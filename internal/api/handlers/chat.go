package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sourcingworks/rfqsmith/internal/api"
	"github.com/sourcingworks/rfqsmith/internal/domain"
	"github.com/sourcingworks/rfqsmith/internal/service"
)

type Orchestrator interface {
	HandleTurn(ctx context.Context, input service.TurnInput) (*service.TurnOutput, error)
}

type DraftingService interface {
	ValidateRequirement(ctx context.Context, requirement string) (service.Validation, error)
	ImpactAnalysis(ctx context.Context, oldBody, newBody string) (string, error)
}

type ChatHandler struct {
	orchestrator Orchestrator
	drafting     DraftingService
}

func NewChatHandler(orchestrator Orchestrator, drafting DraftingService) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, drafting: drafting}
}

// SessionPayload is the client-round-tripped session state. The server
// holds no session store; the client posts this back on every turn.
type SessionPayload struct {
	ID          string        `json:"id"`
	Phase       string        `json:"phase"`
	Requirement string        `json:"requirement,omitempty"`
	DraftID     string        `json:"draft_id,omitempty"`
	History     []TurnPayload `json:"history,omitempty"`
}

type TurnPayload struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	Timestamp string              `json:"timestamp"`
	Citations []*CitationResponse `json:"citations,omitempty"`
}

func sessionFromPayload(p *SessionPayload) *domain.Session {
	if p == nil || p.ID == "" {
		return domain.NewSession(uuid.NewString())
	}
	session := &domain.Session{
		ID:          p.ID,
		Phase:       domain.SessionPhase(p.Phase),
		Requirement: p.Requirement,
		DraftID:     p.DraftID,
	}
	if session.Phase == "" {
		session.Phase = domain.PhaseAwaitingComponent
	}
	for _, turn := range p.History {
		ts, _ := time.Parse(time.RFC3339, turn.Timestamp)
		refs := make([]domain.DocumentRef, len(turn.Citations))
		for i, c := range turn.Citations {
			refs[i] = domain.DocumentRef{DocumentID: c.DocumentID, Filename: c.Filename, Score: c.Score}
		}
		session.History = append(session.History, domain.ChatTurn{
			Role:      domain.ChatRole(turn.Role),
			Content:   turn.Content,
			Timestamp: ts,
			Citations: refs,
		})
	}
	return session
}

func sessionToPayload(s *domain.Session) *SessionPayload {
	payload := &SessionPayload{
		ID:          s.ID,
		Phase:       string(s.Phase),
		Requirement: s.Requirement,
		DraftID:     s.DraftID,
	}
	for _, turn := range s.History {
		refs := make([]*CitationResponse, len(turn.Citations))
		for i, c := range turn.Citations {
			refs[i] = &CitationResponse{DocumentID: c.DocumentID, Filename: c.Filename, Score: c.Score}
		}
		payload.History = append(payload.History, TurnPayload{
			Role:      string(turn.Role),
			Content:   turn.Content,
			Timestamp: turn.Timestamp.Format(time.RFC3339),
			Citations: refs,
		})
	}
	return payload
}

type ChatRequest struct {
	Session *SessionPayload `json:"session,omitempty"`
	Message string          `json:"message"`
}

type ChatResponse struct {
	Session   *SessionPayload     `json:"session"`
	Reply     string              `json:"reply"`
	Draft     *DraftResponse      `json:"draft,omitempty"`
	Impact    string              `json:"impact,omitempty"`
	Citations []*CitationResponse `json:"citations,omitempty"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := sessionFromPayload(req.Session)
	output, err := h.orchestrator.HandleTurn(r.Context(), service.TurnInput{
		Session: session,
		Message: req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ChatResponse{
		Session:   sessionToPayload(output.Session),
		Reply:     output.Reply,
		Impact:    output.Impact,
		Citations: citationsToResponse(output.Citations),
	}
	if output.Draft != nil {
		resp.Draft = draftToResponse(output.Draft)
	}

	api.Success(w, http.StatusOK, resp)
}

type ValidateRequest struct {
	Requirement string `json:"requirement"`
}

type ValidateResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
}

func (h *ChatHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	validation, err := h.drafting.ValidateRequirement(r.Context(), req.Requirement)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ValidateResponse{
		Verdict: string(validation.Verdict),
		Reason:  validation.Reason,
	})
}

type AnalyzeRequest struct {
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`
}

type AnalyzeResponse struct {
	Summary string `json:"summary"`
}

func (h *ChatHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldText == "" || req.NewText == "" {
		api.Error(w, http.StatusBadRequest, "old_text and new_text are required")
		return
	}

	summary, err := h.drafting.ImpactAnalysis(r.Context(), req.OldText, req.NewText)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnalyzeResponse{Summary: summary})
}
