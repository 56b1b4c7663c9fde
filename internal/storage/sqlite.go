package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/persona"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Prefetch goroutines write concurrently with the foreground path.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema and seeds the built-in personas.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		mode TEXT NOT NULL,
		persona_a_id TEXT NOT NULL,
		persona_b_id TEXT NOT NULL,
		moderator_persona_id TEXT NOT NULL DEFAULT '',
		confrontation_level INTEGER NOT NULL DEFAULT 0,
		stage_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		stage_index INTEGER NOT NULL,
		stage_id TEXT NOT NULL,
		speaker TEXT NOT NULL,
		payload_kind TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		rendered_text TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		violations_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (session_id, stage_index),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		winner TEXT NOT NULL,
		scores_json TEXT NOT NULL,
		detailed_scores_json TEXT NOT NULL,
		verdict TEXT NOT NULL,
		ballot_json TEXT NOT NULL,
		analysis_json TEXT NOT NULL,
		momentum_json TEXT NOT NULL,
		closeness TEXT NOT NULL,
		improvements_json TEXT NOT NULL,
		best_lines_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS personas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tagline TEXT NOT NULL,
		style TEXT NOT NULL,
		priorities_json TEXT NOT NULL,
		background TEXT NOT NULL DEFAULT '',
		tone TEXT NOT NULL,
		moderator INTEGER NOT NULL DEFAULT 0,
		is_builtin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.seedPersonas()
}

func (s *SQLiteStorage) seedPersonas() error {
	now := time.Now()
	for _, p := range persona.DefaultPersonas() {
		priorities, err := json.Marshal(p.Priorities)
		if err != nil {
			return fmt.Errorf("failed to marshal priorities for %s: %w", p.ID, err)
		}
		_, err = s.db.Exec(`
		INSERT OR IGNORE INTO personas (id, name, tagline, style, priorities_json, background, tone, moderator, is_builtin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		`, p.ID, p.Name, p.Tagline, p.Style, string(priorities), p.Background, p.Tone, p.Moderator, now)
		if err != nil {
			return fmt.Errorf("failed to seed persona %s: %w", p.ID, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *core.Session) error {
	query := `
	INSERT INTO sessions (id, topic, mode, persona_a_id, persona_b_id, moderator_persona_id, confrontation_level, stage_index, status, created_at, updated_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Topic,
		session.Mode,
		session.PersonaAID,
		session.PersonaBID,
		session.ModeratorPersonaID,
		session.ConfrontationLevel,
		session.StageIndex,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
		session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID together with its turns and decision.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*core.Session, error) {
	query := `
	SELECT id, topic, mode, persona_a_id, persona_b_id, moderator_persona_id, confrontation_level, stage_index, status, created_at, updated_at, completed_at
	FROM sessions
	WHERE id = ?
	`

	var session core.Session
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Topic,
		&session.Mode,
		&session.PersonaAID,
		&session.PersonaBID,
		&session.ModeratorPersonaID,
		&session.ConfrontationLevel,
		&session.StageIndex,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	session.Turns, err = s.GetTurns(ctx, id)
	if err != nil {
		return nil, err
	}

	session.Decision, err = s.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// UpdateSession persists the mutable fields of a session.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session *core.Session) error {
	session.UpdatedAt = time.Now()

	query := `
	UPDATE sessions
	SET stage_index = ?, status = ?, updated_at = ?, completed_at = ?
	WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		session.StageIndex,
		session.Status,
		session.UpdatedAt,
		session.CompletedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update session %s: %w", session.ID, core.ErrNotFound)
	}

	return nil
}

// ListSessions returns session summaries, newest first. turn_count only
// includes turns of stages the session has already advanced past.
func (s *SQLiteStorage) ListSessions(ctx context.Context, limit, offset int) ([]*core.SessionSummary, error) {
	query := `
	SELECT s.id, s.topic, s.mode, s.persona_a_id, s.persona_b_id, s.stage_index, s.status, s.created_at,
		   (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id AND t.stage_index < s.stage_index) as turn_count
	FROM sessions s
	ORDER BY s.created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []*core.SessionSummary
	for rows.Next() {
		var summary core.SessionSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Topic,
			&summary.Mode,
			&summary.PersonaAID,
			&summary.PersonaBID,
			&summary.StageIndex,
			&summary.Status,
			&summary.CreatedAt,
			&summary.TurnCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// CreateTurn adds a turn. It returns ErrDuplicateTurn if the stage already has one.
func (s *SQLiteStorage) CreateTurn(ctx context.Context, turn *core.Turn) error {
	return insertTurn(ctx, s.db, turn)
}

func insertTurn(ctx context.Context, ex execer, turn *core.Turn) error {
	if turn.Payload == nil {
		return errors.New("turn payload is required")
	}
	payloadJSON, err := json.Marshal(turn.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	violations := turn.Violations
	if violations == nil {
		violations = []string{}
	}
	violationsJSON, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violations: %w", err)
	}

	query := `
	INSERT INTO turns (id, session_id, stage_index, stage_id, speaker, payload_kind, payload_json, rendered_text, word_count, violations_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = ex.ExecContext(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.StageIndex,
		turn.StageID,
		turn.Speaker,
		turn.Payload.Kind(),
		string(payloadJSON),
		turn.RenderedText,
		turn.WordCount,
		string(violationsJSON),
		turn.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s stage %d: %w", turn.SessionID, turn.StageIndex, ErrDuplicateTurn)
	}
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const turnColumns = `id, session_id, stage_index, stage_id, speaker, payload_kind, payload_json, rendered_text, word_count, violations_json, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (*core.Turn, error) {
	var turn core.Turn
	var kind, payloadJSON, violationsJSON string

	err := row.Scan(
		&turn.ID,
		&turn.SessionID,
		&turn.StageIndex,
		&turn.StageID,
		&turn.Speaker,
		&kind,
		&payloadJSON,
		&turn.RenderedText,
		&turn.WordCount,
		&violationsJSON,
		&turn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	turn.Payload, err = core.DecodePayload(core.PayloadKind(kind), []byte(payloadJSON))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(violationsJSON), &turn.Violations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal violations: %w", err)
	}

	return &turn, nil
}

// GetTurns returns all turns for a session in stage order.
func (s *SQLiteStorage) GetTurns(ctx context.Context, sessionID string) ([]*core.Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE session_id = ? ORDER BY stage_index ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []*core.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// GetTurnByStage returns the turn persisted for a stage, or nil if none exists.
func (s *SQLiteStorage) GetTurnByStage(ctx context.Context, sessionID string, stageIndex int) (*core.Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE session_id = ? AND stage_index = ?`

	turn, err := scanTurn(s.db.QueryRowContext(ctx, query, sessionID, stageIndex))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}

	return turn, nil
}

// CreateJudgement writes the judge turn and the decision in one transaction.
func (s *SQLiteStorage) CreateJudgement(ctx context.Context, turn *core.Turn, decision *core.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTurn(ctx, tx, turn); err != nil {
		return err
	}
	if err := insertDecision(ctx, tx, decision); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit judgement: %w", err)
	}
	return nil
}

func insertDecision(ctx context.Context, ex execer, d *core.Decision) error {
	cols := make([]string, 0, 7)
	for _, v := range []any{d.Scores, d.DetailedScores, d.Ballot, d.Analysis, d.Momentum, d.Improvements, d.BestLines} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal decision: %w", err)
		}
		cols = append(cols, string(data))
	}

	query := `
	INSERT INTO decisions (id, session_id, winner, scores_json, detailed_scores_json, verdict, ballot_json, analysis_json, momentum_json, closeness, improvements_json, best_lines_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ex.ExecContext(ctx, query,
		d.ID,
		d.SessionID,
		d.Winner,
		cols[0],
		cols[1],
		d.Verdict,
		cols[2],
		cols[3],
		cols[4],
		d.Closeness,
		cols[5],
		cols[6],
		d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("decision for session %s: %w", d.SessionID, ErrDuplicateTurn)
	}
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// GetDecision returns the decision for a session, or nil if it has none.
func (s *SQLiteStorage) GetDecision(ctx context.Context, sessionID string) (*core.Decision, error) {
	query := `
	SELECT id, session_id, winner, scores_json, detailed_scores_json, verdict, ballot_json, analysis_json, momentum_json, closeness, improvements_json, best_lines_json, created_at
	FROM decisions
	WHERE session_id = ?
	`

	var d core.Decision
	var scores, detailed, ballot, analysis, momentum, improvements, bestLines string

	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&d.ID,
		&d.SessionID,
		&d.Winner,
		&scores,
		&detailed,
		&d.Verdict,
		&ballot,
		&analysis,
		&momentum,
		&d.Closeness,
		&improvements,
		&bestLines,
		&d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	fields := []struct {
		data   string
		target any
	}{
		{scores, &d.Scores},
		{detailed, &d.DetailedScores},
		{ballot, &d.Ballot},
		{analysis, &d.Analysis},
		{momentum, &d.Momentum},
		{improvements, &d.Improvements},
		{bestLines, &d.BestLines},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.data), f.target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
		}
	}

	return &d, nil
}

// SavePersona creates or replaces a custom persona.
func (s *SQLiteStorage) SavePersona(ctx context.Context, p *persona.Persona) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if persona.Get(p.ID) != nil {
		return fmt.Errorf("%w: persona %s is built in", core.ErrConflict, p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	priorities, err := json.Marshal(p.Priorities)
	if err != nil {
		return fmt.Errorf("failed to marshal priorities: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO personas (id, name, tagline, style, priorities_json, background, tone, moderator, is_builtin, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	_, err = s.db.ExecContext(ctx, query, p.ID, p.Name, p.Tagline, p.Style, string(priorities), p.Background, p.Tone, p.Moderator, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save persona: %w", err)
	}
	return nil
}

const personaColumns = `id, name, tagline, style, priorities_json, background, tone, moderator, is_builtin, created_at`

func scanPersona(row rowScanner) (*persona.Persona, error) {
	var p persona.Persona
	var priorities string
	if err := row.Scan(&p.ID, &p.Name, &p.Tagline, &p.Style, &priorities, &p.Background, &p.Tone, &p.Moderator, &p.IsBuiltin, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(priorities), &p.Priorities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal priorities: %w", err)
	}
	return &p, nil
}

// GetPersona retrieves a persona by ID.
func (s *SQLiteStorage) GetPersona(ctx context.Context, id string) (*persona.Persona, error) {
	p, err := scanPersona(s.db.QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return p, nil
}

// ListPersonas returns all personas, built-ins first.
func (s *SQLiteStorage) ListPersonas(ctx context.Context) ([]*persona.Persona, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY is_builtin DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []*persona.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arena.db"
	}
	return filepath.Join(home, ".arena", "arena.db")
}
