package domain

import "time"

// ConversationState is the orchestrator state attached to an outcome.
type ConversationState string

const (
	StateCollecting        ConversationState = "collecting"
	StateResolvedKB        ConversationState = "resolved_kb"
	StateResolvedPredicted ConversationState = "resolved_predicted"
	StateEscalated         ConversationState = "escalated"
)

// ExtractionState tracks how much structured data a session has yielded so far.
type ExtractionState string

const (
	ExtractionNone         ExtractionState = "none"
	ExtractionSymptoms     ExtractionState = "symptoms"
	ExtractionDemographics ExtractionState = "symptoms_demographics"
	ExtractionTerminal     ExtractionState = "terminal"
)

// Turn is one entry of the context window sent upstream on every call.
type Turn struct {
	Role string `json:"role"` // user, model
	Text string `json:"text"`
}

// Session is the transient per-conversation state owned by the orchestrator.
// It must only be mutated while holding the session's lock.
type Session struct {
	SessionID  string          `json:"session_id"`
	Turns      []Turn          `json:"turns"`
	Audit      []string        `json:"audit"`
	Extraction ExtractionState `json:"extraction"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewSession creates an empty session for the given id.
func NewSession(sessionID string) *Session {
	return &Session{
		SessionID:  sessionID,
		Extraction: ExtractionNone,
		CreatedAt:  time.Now(),
	}
}

// AddUserTurn appends a user turn to the context window.
func (s *Session) AddUserTurn(text string) {
	s.Turns = append(s.Turns, Turn{Role: "user", Text: text})
}

// AddModelTurn appends a model turn to the context window.
func (s *Session) AddModelTurn(text string) {
	s.Turns = append(s.Turns, Turn{Role: "model", Text: text})
}

// Outcome is the structured result of advancing a conversation by one turn.
type Outcome struct {
	Reply       string            `json:"reply"`
	NeedsDoctor bool              `json:"needs_doctor"`
	State       ConversationState `json:"state"`
	Log         string            `json:"log,omitempty"` // raw structured payload, for audit
}
