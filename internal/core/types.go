// Package core contains the core domain types for arena.
package core

import (
	"time"
)

// SessionStatus represents the current status of a session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

// IsTerminal reports whether no further advancement is permitted.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Role identifies who speaks in a stage.
type Role string

const (
	RoleModerator Role = "MOD"
	RoleSideA     Role = "A"
	RoleSideB     Role = "B"
	RoleJudge     Role = "JUDGE"
)

// IsParticipant reports whether the role is one of the two sides.
func (r Role) IsParticipant() bool {
	return r == RoleSideA || r == RoleSideB
}

// Opponent returns the other side. Non-participant roles return themselves.
func (r Role) Opponent() Role {
	switch r {
	case RoleSideA:
		return RoleSideB
	case RoleSideB:
		return RoleSideA
	default:
		return r
	}
}

// Session is one debate or discussion instance moving through a fixed stage plan.
type Session struct {
	ID                 string        `json:"id"`
	Topic              string        `json:"topic"`
	Mode               string        `json:"mode"`
	PersonaAID         string        `json:"persona_a_id"`
	PersonaBID         string        `json:"persona_b_id"`
	ModeratorPersonaID string        `json:"moderator_persona_id,omitempty"`
	ConfrontationLevel int           `json:"confrontation_level,omitempty"` // 1-5, discussion only
	StageIndex         int           `json:"stage_index"`                   // next stage to execute
	Status             SessionStatus `json:"status"`
	Turns              []*Turn       `json:"turns,omitempty"`
	Decision           *Decision     `json:"decision,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
}

// IsModifiable returns true if the session can still be advanced.
func (s *Session) IsModifiable() bool {
	return !s.Status.IsTerminal()
}

// PersonaFor returns the persona ID speaking for the given role.
func (s *Session) PersonaFor(role Role) string {
	switch role {
	case RoleSideA:
		return s.PersonaAID
	case RoleSideB:
		return s.PersonaBID
	case RoleModerator:
		return s.ModeratorPersonaID
	default:
		return ""
	}
}

// Turn is the persisted output produced for one stage.
type Turn struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	StageIndex   int       `json:"stage_index"`
	StageID      string    `json:"stage_id"`
	Speaker      Role      `json:"speaker"`
	Payload      Payload   `json:"payload"`
	RenderedText string    `json:"rendered_text"`
	WordCount    int       `json:"word_count"`
	Violations   []string  `json:"violations"`
	CreatedAt    time.Time `json:"created_at"`
}

// Narrative returns the narrative text of the turn payload, if it has one.
func (t *Turn) Narrative() string {
	if n, ok := t.Payload.(interface{ NarrativeText() string }); ok {
		return n.NarrativeText()
	}
	return ""
}

// SessionSummary is a lightweight representation for listing sessions.
type SessionSummary struct {
	ID         string        `json:"id"`
	Topic      string        `json:"topic"`
	Mode       string        `json:"mode"`
	PersonaAID string        `json:"persona_a_id"`
	PersonaBID string        `json:"persona_b_id"`
	StageIndex int           `json:"stage_index"`
	Status     SessionStatus `json:"status"`
	TurnCount  int           `json:"turn_count"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewSessionConfig holds the configuration for creating a new session.
type NewSessionConfig struct {
	Topic              string `json:"topic"`
	Mode               string `json:"mode"`
	PersonaAID         string `json:"persona_a_id"`
	PersonaBID         string `json:"persona_b_id"`
	ModeratorPersonaID string `json:"moderator_persona_id,omitempty"`
	ConfrontationLevel int    `json:"confrontation_level,omitempty"`
}
