package domain

import "time"

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// DocumentRef is a lightweight citation of a source document in a reply.
type DocumentRef struct {
	DocumentID string
	Filename   string
	Score      float32
}

// ChatTurn is one message in a conversation. Turns are append-only;
// the conversation itself is session-scoped and persisted client-side.
type ChatTurn struct {
	Role      ChatRole
	Content   string
	Timestamp time.Time
	Citations []DocumentRef
}

// SessionPhase is the orchestrator's per-session dialogue state.
type SessionPhase string

const (
	PhaseAwaitingComponent     SessionPhase = "awaiting_component"
	PhaseResearching           SessionPhase = "researching"
	PhaseValidatingSufficiency SessionPhase = "validating_sufficiency"
	PhaseDrafting              SessionPhase = "drafting"
	PhaseEditing               SessionPhase = "editing"
)

// Session is the explicit conversation state threaded through every
// orchestrator call. There is no process-global session store; the
// client round-trips this value.
type Session struct {
	ID          string
	Phase       SessionPhase
	Requirement string
	DraftID     string
	History     []ChatTurn
}

// NewSession starts a session with no component named yet.
func NewSession(id string) *Session {
	return &Session{ID: id, Phase: PhaseAwaitingComponent}
}

// Append adds a turn to the session history.
func (s *Session) Append(role ChatRole, content string, now time.Time, citations []DocumentRef) {
	s.History = append(s.History, ChatTurn{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Citations: citations,
	})
}
