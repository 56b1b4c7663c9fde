// Package engine advances debate and discussion sessions one stage at a time,
// producing the next stage speculatively in the background.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/llm"
	"github.com/alienxp03/arena/internal/persona"
	"github.com/alienxp03/arena/internal/prefetch"
	"github.com/alienxp03/arena/internal/stage"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/validate"
)

const (
	// DefaultConfrontationLevel is used for discussions that do not set one.
	DefaultConfrontationLevel = 3

	defaultListLimit = 20
)

// Engine owns session advancement.
type Engine struct {
	storage   storage.Storage
	plans     *stage.Registry
	adapter   llm.Adapter
	validator *validate.Validator
	cache     *prefetch.Cache

	prefetchEnabled   bool
	backgroundTimeout time.Duration

	flight singleflight.Group

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrefetch enables or disables background production of the next stage.
func WithPrefetch(enabled bool) Option {
	return func(e *Engine) { e.prefetchEnabled = enabled }
}

// WithBackgroundTimeout bounds a single background production. The default
// is the cache TTL.
func WithBackgroundTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backgroundTimeout = d
		}
	}
}

// New creates a new engine. A nil validator runs checks without a closing
// classifier; a nil cache uses the default TTL and size.
func New(store storage.Storage, plans *stage.Registry, adapter llm.Adapter, validator *validate.Validator, cache *prefetch.Cache, opts ...Option) *Engine {
	if validator == nil {
		validator = validate.New(nil)
	}
	if cache == nil {
		cache = prefetch.NewCache(prefetch.DefaultTTL, prefetch.DefaultMaxEntries)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		storage:           store,
		plans:             plans,
		adapter:           adapter,
		validator:         validator,
		cache:             cache,
		prefetchEnabled:   true,
		backgroundTimeout: cache.TTL(),
		baseCtx:           ctx,
		cancel:            cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plans returns the stage plan registry.
func (e *Engine) Plans() *stage.Registry {
	return e.plans
}

// CreateSession validates the configuration and persists a pending session.
func (e *Engine) CreateSession(ctx context.Context, cfg core.NewSessionConfig) (*core.Session, error) {
	slog.Debug("Creating new session", "topic", cfg.Topic, "mode", cfg.Mode, "persona_a", cfg.PersonaAID, "persona_b", cfg.PersonaBID)

	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", core.ErrInvalidInput)
	}
	plan, err := e.plans.GetPlan(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if cfg.PersonaAID == "" || cfg.PersonaBID == "" {
		return nil, fmt.Errorf("%w: both participant personas are required", core.ErrInvalidInput)
	}
	if cfg.PersonaAID == cfg.PersonaBID {
		return nil, fmt.Errorf("%w: participants must use different personas", core.ErrInvalidInput)
	}

	moderatorID := cfg.ModeratorPersonaID
	if moderatorID == "" {
		moderatorID = persona.DefaultModeratorID
	}
	for _, id := range []string{cfg.PersonaAID, cfg.PersonaBID, moderatorID} {
		if _, err := e.resolvePersona(ctx, id); err != nil {
			return nil, err
		}
	}

	level := 0
	if plan.Discussion {
		level = clampLevel(cfg.ConfrontationLevel)
	}

	now := time.Now()
	session := &core.Session{
		ID:                 core.GenerateID(),
		Topic:              topic,
		Mode:               plan.Mode,
		PersonaAID:         cfg.PersonaAID,
		PersonaBID:         cfg.PersonaBID,
		ModeratorPersonaID: moderatorID,
		ConfrontationLevel: level,
		StageIndex:         0,
		Status:             core.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := e.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Session created", "session_id", session.ID, "mode", session.Mode)
	return session, nil
}

func clampLevel(level int) int {
	switch {
	case level == 0:
		return DefaultConfrontationLevel
	case level < 1:
		return 1
	case level > 5:
		return 5
	default:
		return level
	}
}

func (e *Engine) resolvePersona(ctx context.Context, id string) (*persona.Persona, error) {
	p, err := persona.Resolve(ctx, id, e.storage)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: persona %s", core.ErrNotFound, id)
	}
	return p, nil
}

// GetSession returns a session with the turns of its completed stages and
// its decision, if any.
func (e *Engine) GetSession(ctx context.Context, id string) (*core.Session, error) {
	session, err := e.storage.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, id)
	}
	// Prefetched turns stay hidden until their stage is advanced, and so does
	// a decision written by a prefetched judge.
	visible := session.Turns[:0]
	judged := false
	for _, t := range session.Turns {
		if t.StageIndex < session.StageIndex {
			visible = append(visible, t)
			judged = judged || t.Speaker == core.RoleJudge
		}
	}
	session.Turns = visible
	if !judged {
		session.Decision = nil
	}
	return session, nil
}

// ListSessions returns session summaries, newest first.
func (e *Engine) ListSessions(ctx context.Context, limit, offset int) ([]*core.SessionSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return e.storage.ListSessions(ctx, limit, offset)
}

// Rematch creates a new session on the same topic and mode with the
// participants swapped.
func (e *Engine) Rematch(ctx context.Context, id string) (*core.Session, error) {
	orig, err := e.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.CreateSession(ctx, core.NewSessionConfig{
		Topic:              orig.Topic,
		Mode:               orig.Mode,
		PersonaAID:         orig.PersonaBID,
		PersonaBID:         orig.PersonaAID,
		ModeratorPersonaID: orig.ModeratorPersonaID,
		ConfrontationLevel: orig.ConfrontationLevel,
	})
}

// Advance executes the session's next stage and returns the refreshed session.
// Concurrent calls for the same session share one execution. The shared
// execution does not inherit the caller's cancellation: a caller that gives
// up returns ctx.Err() while the stage keeps running for everyone else.
func (e *Engine) Advance(ctx context.Context, id string) (*core.Session, error) {
	detached := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(id, func() (any, error) {
		if e.track() {
			defer e.wg.Done()
		}
		return e.advance(detached, id)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("Joined in-flight advance", "session_id", id)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// track registers work with WaitIdle. It reports false once the engine is closed.
func (e *Engine) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}

func (e *Engine) advance(ctx context.Context, id string) (*core.Session, error) {
	session, err := e.storage.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, id)
	}

	switch session.Status {
	case core.StatusCompleted:
		return nil, fmt.Errorf("%w: session %s already completed", core.ErrConflict, id)
	case core.StatusError:
		return nil, fmt.Errorf("%w: session %s is in error state", core.ErrConflict, id)
	}

	plan, err := e.plans.GetPlan(session.Mode)
	if err != nil {
		return nil, err
	}
	if session.StageIndex >= len(plan.Stages) {
		return nil, fmt.Errorf("%w: session %s has completed all stages", core.ErrConflict, id)
	}

	index := session.StageIndex
	key := prefetch.Key{SessionID: id, StageIndex: index}

	produced := false
	if entry, ok := e.cache.Take(key); ok {
		if e.cache.IsFresh(entry) {
			if _, err := entry.Task.Wait(ctx); err == nil {
				slog.Debug("Using prefetched turn", "session_id", id, "stage_index", index)
				produced = true
			} else if ctx.Err() != nil {
				return nil, ctx.Err()
			} else {
				slog.Warn("Prefetched turn failed, producing synchronously", "session_id", id, "stage_index", index, "error", err)
			}
		} else {
			slog.Debug("Prefetched turn is stale, producing synchronously", "session_id", id, "stage_index", index)
		}
	}

	if !produced {
		if _, err := e.produceOnce(ctx, session, plan, index, false); err != nil {
			return nil, err
		}
	}

	session.StageIndex++
	if session.StageIndex == len(plan.Stages) {
		now := time.Now()
		session.Status = core.StatusCompleted
		session.CompletedAt = &now
		if err := e.storage.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		if n := e.cache.DeleteSession(id); n > 0 {
			slog.Debug("Purged prefetch entries", "session_id", id, "count", n)
		}
		slog.Info("Session completed", "session_id", id, "mode", session.Mode)
	} else {
		session.Status = core.StatusInProgress
		if err := e.storage.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		e.schedule(id, session.StageIndex)
	}

	return e.GetSession(ctx, id)
}

// produceOnce produces the turn for index unless one is already persisted.
func (e *Engine) produceOnce(ctx context.Context, session *core.Session, plan *stage.Plan, index int, background bool) (*core.Turn, error) {
	existing, err := e.storage.GetTurnByStage(ctx, session.ID, index)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Debug("Turn already persisted", "session_id", session.ID, "stage_index", index)
		return existing, nil
	}

	turn, err := e.dispatch(ctx, session, plan, index, background)
	if errors.Is(err, storage.ErrDuplicateTurn) {
		existing, getErr := e.storage.GetTurnByStage(ctx, session.ID, index)
		if getErr != nil {
			return nil, getErr
		}
		if existing != nil {
			slog.Debug("Turn persisted concurrently", "session_id", session.ID, "stage_index", index)
			return existing, nil
		}
	}
	return turn, err
}

// schedule starts a background production of stage index.
func (e *Engine) schedule(sessionID string, index int) {
	if !e.prefetchEnabled {
		return
	}

	if !e.track() {
		return
	}

	key := prefetch.Key{SessionID: sessionID, StageIndex: index}
	task := prefetch.NewTask()
	e.cache.Schedule(key, task)

	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(e.baseCtx, e.backgroundTimeout)
		defer cancel()

		turn, err := e.prefetchTurn(ctx, sessionID, index)
		if err != nil {
			slog.Warn("Background prefetch failed", "session_id", sessionID, "stage_index", index, "error", err)
			e.cache.Delete(key)
		}
		task.Resolve(turn, err)
	}()
}

func (e *Engine) prefetchTurn(ctx context.Context, sessionID string, index int) (*core.Turn, error) {
	session, err := e.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, sessionID)
	}
	if session.Status.IsTerminal() || session.StageIndex != index {
		return nil, fmt.Errorf("%w: session %s moved to stage %d (%s)", core.ErrConflict, sessionID, session.StageIndex, session.Status)
	}
	plan, err := e.plans.GetPlan(session.Mode)
	if err != nil {
		return nil, err
	}
	return e.produceOnce(ctx, session, plan, index, true)
}

// failSession moves a session into the terminal error state.
func (e *Engine) failSession(ctx context.Context, session *core.Session) {
	session.Status = core.StatusError
	if err := e.storage.UpdateSession(context.WithoutCancel(ctx), session); err != nil {
		slog.Error("Failed to mark session as error", "session_id", session.ID, "error", err)
	}
	e.cache.DeleteSession(session.ID)
}

// WaitIdle blocks until every in-flight advance and background production
// has finished.
func (e *Engine) WaitIdle() {
	e.wg.Wait()
}

// Close cancels background productions and waits for them to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}
