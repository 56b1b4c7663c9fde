// Package storage provides persistence for sessions, turns, decisions and personas.
package storage

import (
	"context"
	"errors"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/persona"
)

// ErrDuplicateTurn is returned when a turn already exists for a session stage.
var ErrDuplicateTurn = errors.New("turn already exists for stage")

// Storage defines the interface for session persistence.
//
// Lookups return nil, nil when the record does not exist.
type Storage interface {
	// Initialize sets up the storage (creates tables, seeds built-in personas).
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Session operations
	CreateSession(ctx context.Context, session *core.Session) error
	GetSession(ctx context.Context, id string) (*core.Session, error)
	UpdateSession(ctx context.Context, session *core.Session) error
	ListSessions(ctx context.Context, limit, offset int) ([]*core.SessionSummary, error)

	// Turn operations
	CreateTurn(ctx context.Context, turn *core.Turn) error
	GetTurns(ctx context.Context, sessionID string) ([]*core.Turn, error)
	GetTurnByStage(ctx context.Context, sessionID string, stageIndex int) (*core.Turn, error)

	// CreateJudgement writes the judge turn and its decision atomically.
	CreateJudgement(ctx context.Context, turn *core.Turn, decision *core.Decision) error
	GetDecision(ctx context.Context, sessionID string) (*core.Decision, error)

	// Persona operations
	SavePersona(ctx context.Context, p *persona.Persona) error
	GetPersona(ctx context.Context, id string) (*persona.Persona, error)
	ListPersonas(ctx context.Context) ([]*persona.Persona, error)
}
