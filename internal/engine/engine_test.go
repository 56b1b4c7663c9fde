package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/llm"
	"github.com/alienxp03/arena/internal/persona"
	"github.com/alienxp03/arena/internal/prefetch"
	"github.com/alienxp03/arena/internal/prompt"
	"github.com/alienxp03/arena/internal/stage"
	"github.com/alienxp03/arena/internal/storage"
	"github.com/alienxp03/arena/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testAdapter wraps the mock with failure injection and a one-shot gate on
// the next participant call.
type testAdapter struct {
	*llm.Mock

	mu               sync.Mutex
	participantCalls int
	failParticipant  int
	gate             chan struct{}
	entered          chan struct{}
	judgeErr         error
	onJudge          func() error
}

func newTestAdapter() *testAdapter {
	return &testAdapter{Mock: llm.NewMock()}
}

// arm blocks the next participant call until the returned release is called.
func (a *testAdapter) arm() (entered <-chan struct{}, release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = make(chan struct{})
	a.entered = make(chan struct{})
	gate := a.gate
	return a.entered, func() { close(gate) }
}

func (a *testAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.participantCalls
}

func (a *testAdapter) Participant(ctx context.Context, p prompt.Prompt, side core.Role) (*core.ParticipantPayload, error) {
	a.mu.Lock()
	a.participantCalls++
	fail := a.failParticipant > 0
	if fail {
		a.failParticipant--
	}
	gate, entered := a.gate, a.entered
	a.gate, a.entered = nil, nil
	a.mu.Unlock()

	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("backend unavailable")
	}
	return a.Mock.Participant(ctx, p, side)
}

func (a *testAdapter) Judge(ctx context.Context, p prompt.Prompt) (*core.Decision, error) {
	a.mu.Lock()
	hook := a.onJudge
	a.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return nil, err
		}
	}
	if a.judgeErr != nil {
		return nil, a.judgeErr
	}
	return a.Mock.Judge(ctx, p)
}

type fixture struct {
	engine *Engine
	store  *storage.SQLiteStorage
	cache  *prefetch.Cache
	clock  *fakeClock
}

func setupTestEngine(t *testing.T, adapter llm.Adapter, opts ...Option) *fixture {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize())

	clock := &fakeClock{t: time.Now()}
	cache := prefetch.NewCache(prefetch.DefaultTTL, prefetch.DefaultMaxEntries, prefetch.WithClock(clock.now))
	validator := validate.New(llm.NewClosingClassifier(adapter))

	e := New(store, stage.NewRegistry(), adapter, validator, cache, opts...)
	t.Cleanup(e.Close)

	return &fixture{engine: e, store: store, cache: cache, clock: clock}
}

func (f *fixture) create(t *testing.T, mode string) *core.Session {
	t.Helper()
	s, err := f.engine.CreateSession(context.Background(), core.NewSessionConfig{
		Topic:      "Should remote work be the default?",
		Mode:       mode,
		PersonaAID: "optimist",
		PersonaBID: "skeptic",
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) turnsAt(t *testing.T, sessionID string, index int) int {
	t.Helper()
	turns, err := f.store.GetTurns(context.Background(), sessionID)
	require.NoError(t, err)
	n := 0
	for _, turn := range turns {
		if turn.StageIndex == index {
			n++
		}
	}
	return n
}

func TestCreateSession(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		s := f.create(t, stage.ModeQuick)
		assert.Equal(t, core.StatusPending, s.Status)
		assert.Equal(t, 0, s.StageIndex)
		assert.Equal(t, persona.DefaultModeratorID, s.ModeratorPersonaID)
		assert.Equal(t, 0, s.ConfrontationLevel)
	})

	t.Run("ConfrontationLevel", func(t *testing.T) {
		for in, want := range map[int]int{0: 3, 2: 2, 9: 5, -4: 1} {
			s, err := f.engine.CreateSession(ctx, core.NewSessionConfig{
				Topic: "Is AI art real art?", Mode: stage.ModeDiscussion,
				PersonaAID: "visionary", PersonaBID: "analyst", ConfrontationLevel: in,
			})
			require.NoError(t, err)
			assert.Equal(t, want, s.ConfrontationLevel, "input %d", in)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "x", Mode: "marathon", PersonaAID: "optimist", PersonaBID: "skeptic"})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.ErrorIs(t, err, stage.ErrUnknownMode)

		_, err = f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "x", Mode: stage.ModeQuick, PersonaAID: "optimist", PersonaBID: "optimist"})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "  ", Mode: stage.ModeQuick, PersonaAID: "optimist", PersonaBID: "skeptic"})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "x", Mode: stage.ModeQuick, PersonaAID: "optimist", PersonaBID: "ghost"})
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "x", Mode: stage.ModeQuick, PersonaAID: "optimist", PersonaBID: "skeptic", ModeratorPersonaID: "ghost"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("CustomPersona", func(t *testing.T) {
		require.NoError(t, f.store.SavePersona(ctx, &persona.Persona{
			ID: "historian", Name: "Historian", Tagline: "It has happened before",
			Style: "precedent first", Priorities: []string{"precedent"}, Tone: "measured",
		}))
		_, err := f.engine.CreateSession(ctx, core.NewSessionConfig{Topic: "x", Mode: stage.ModeQuick, PersonaAID: "historian", PersonaBID: "skeptic"})
		assert.NoError(t, err)
	})
}

func TestQuickDebateEndToEnd(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	plan, err := f.engine.Plans().GetPlan(stage.ModeQuick)
	require.NoError(t, err)
	require.Len(t, plan.Stages, 9)

	for i := 0; i < 9; i++ {
		s, err = f.engine.Advance(ctx, s.ID)
		require.NoError(t, err, "advance %d", i+1)
		assert.Equal(t, i+1, s.StageIndex)
		if i < 8 {
			assert.Equal(t, core.StatusInProgress, s.Status)
		}
	}

	assert.Equal(t, core.StatusCompleted, s.Status)
	assert.NotNil(t, s.CompletedAt)
	require.Len(t, s.Turns, 9)
	for i, turn := range s.Turns {
		assert.Equal(t, i, turn.StageIndex)
		assert.Equal(t, plan.Stages[i].ID, turn.StageID)
		assert.Equal(t, plan.Stages[i].Speaker, turn.Speaker)
	}

	require.NotNil(t, s.Decision)
	assert.Contains(t, []core.Winner{core.WinnerA, core.WinnerB, core.WinnerTie}, s.Decision.Winner)
	assert.Contains(t, s.Turns[8].RenderedText, "Winner: A")
	assert.Contains(t, s.Turns[8].RenderedText, "Scores - A: clarity=8 strength=7 responsiveness=8 weighing=7")

	f.engine.WaitIdle()
	assert.Equal(t, 0, f.cache.Len())
}

func TestProDebateEndToEnd(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	s := f.create(t, stage.ModePro)

	var err error
	for i := 0; i < 14; i++ {
		s, err = f.engine.Advance(ctx, s.ID)
		require.NoError(t, err, "advance %d", i+1)
	}

	assert.Equal(t, core.StatusCompleted, s.Status)
	require.Len(t, s.Turns, 14)
	require.NotNil(t, s.Decision)

	for _, turn := range s.Turns {
		switch turn.StageID {
		case "A_CROSSEX", "B_CROSSEX_2":
			assert.Equal(t, core.KindCrossEx, turn.Payload.Kind())
			assert.Contains(t, turn.RenderedText, "Q1: ")
			assert.Contains(t, turn.RenderedText, "\n\nQ2: ")
			assert.Empty(t, turn.Violations)
		case "A_REBUTTAL", "B_REBUTTAL":
			assert.NotContains(t, turn.Violations, string(validate.MissingCallbacks))
		}
	}
}

func TestDiscussionEndToEnd(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	s := f.create(t, stage.ModeDiscussion)
	assert.Equal(t, DefaultConfrontationLevel, s.ConfrontationLevel)

	var err error
	for i := 0; i < 10; i++ {
		s, err = f.engine.Advance(ctx, s.ID)
		require.NoError(t, err, "advance %d", i+1)
	}

	assert.Equal(t, core.StatusCompleted, s.Status)
	assert.Nil(t, s.Decision)
	require.Len(t, s.Turns, 10)

	last := s.Turns[9]
	assert.Equal(t, "MOD_WRAP", last.StageID)
	assert.Equal(t, core.KindWrap, last.Payload.Kind())
	assert.Contains(t, last.RenderedText, "Key takeaways:")
	assert.Equal(t, core.KindModerator, s.Turns[0].Payload.Kind())
	assert.Equal(t, core.KindParticipant, s.Turns[2].Payload.Kind())
}

func TestAdvanceErrors(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		_, err := f.engine.Advance(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = f.engine.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("CompletedIsTerminal", func(t *testing.T) {
		s := f.create(t, stage.ModeQuick)
		for i := 0; i < 9; i++ {
			_, err := f.engine.Advance(ctx, s.ID)
			require.NoError(t, err)
		}
		before, err := f.engine.GetSession(ctx, s.ID)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := f.engine.Advance(ctx, s.ID)
			assert.ErrorIs(t, err, core.ErrConflict)
		}

		after, err := f.engine.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, before.StageIndex, after.StageIndex)
		assert.Equal(t, before.Status, after.Status)
		assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
		assert.Len(t, after.Turns, 9)
	})
}

func TestNoDuplicateProduction(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s := f.create(t, stage.ModeQuick)

		_, err := f.engine.Advance(ctx, s.ID)
		require.NoError(t, err)
		// Let the prefetch for stage 1 resolve before it is consumed.
		f.engine.WaitIdle()

		s, err = f.engine.Advance(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, 2, s.StageIndex)
		require.Equal(t, 1, f.turnsAt(t, s.ID, 1), "run %d", i)
	}

	f.engine.WaitIdle()
	// One production for stage 1 and one prefetch for stage 2 per session.
	assert.Equal(t, 200, adapter.calls())
}

func TestStalePrefetchFallsBack(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter)
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	entered, release := adapter.arm()
	_, err := f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)

	// The prefetch for stage 1 is now stuck inside the backend.
	<-entered
	f.clock.advance(prefetch.DefaultTTL + time.Minute)

	s, err = f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.StageIndex)
	require.Len(t, s.Turns, 2)

	release()
	f.engine.WaitIdle()

	assert.Equal(t, 1, f.turnsAt(t, s.ID, 1))
}

func TestFailedPrefetchFallsBack(t *testing.T) {
	for _, wait := range []bool{true, false} {
		name := "WithoutWaiting"
		if wait {
			name = "AfterFailure"
		}
		t.Run(name, func(t *testing.T) {
			adapter := newTestAdapter()
			f := setupTestEngine(t, adapter)
			ctx := context.Background()
			s := f.create(t, stage.ModeQuick)

			// Stage 0 is the moderator, so the first participant call is the
			// prefetch of stage 1.
			adapter.failParticipant = 1
			_, err := f.engine.Advance(ctx, s.ID)
			require.NoError(t, err)

			if wait {
				f.engine.WaitIdle()
			}

			s, err = f.engine.Advance(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, s.StageIndex)
			assert.Equal(t, core.StatusInProgress, s.Status)

			f.engine.WaitIdle()
			assert.Equal(t, 1, f.turnsAt(t, s.ID, 1))
		})
	}
}

func TestJudgeFailureIsFatal(t *testing.T) {
	adapter := newTestAdapter()
	adapter.judgeErr = errors.New("judge backend down")
	f := setupTestEngine(t, adapter)
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	for i := 0; i < 8; i++ {
		_, err := f.engine.Advance(ctx, s.ID)
		require.NoError(t, err)
	}

	// A failed background judge does not touch the session.
	f.engine.WaitIdle()
	got, err := f.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInProgress, got.Status)

	_, err = f.engine.Advance(ctx, s.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.judgeErr)

	got, err = f.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, got.Status)
	assert.Equal(t, 8, got.StageIndex)
	assert.Nil(t, got.Decision)

	_, err = f.engine.Advance(ctx, s.ID)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 0, f.cache.Len())
}

func TestNonJudgeFailureLeavesSessionRetriable(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter, WithPrefetch(false))
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	_, err := f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)

	adapter.failParticipant = 1
	_, err = f.engine.Advance(ctx, s.ID)
	require.Error(t, err)

	got, err := f.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StageIndex)
	assert.Equal(t, core.StatusInProgress, got.Status)

	got, err = f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StageIndex)
	assert.Equal(t, 0, f.cache.Len())
}

func TestPrefetchedTurnsHidden(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	_, err := f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	f.engine.WaitIdle()

	assert.Equal(t, 1, f.turnsAt(t, s.ID, 1))
	got, err := f.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)
}

func TestPrefetchedDecisionHidden(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	for i := 0; i < 8; i++ {
		_, err := f.engine.Advance(ctx, s.ID)
		require.NoError(t, err)
	}
	f.engine.WaitIdle()

	// The judge stage was produced in the background and its decision stored.
	stored, err := f.store.GetDecision(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	got, err := f.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.StageIndex)
	assert.Equal(t, core.StatusInProgress, got.Status)
	assert.Len(t, got.Turns, 8)
	assert.Nil(t, got.Decision)

	got, err = f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
	require.NotNil(t, got.Decision)
	assert.Equal(t, stored.ID, got.Decision.ID)
}

func TestCancelledJudgeLeavesSessionRetriable(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter, WithPrefetch(false))
	s := f.create(t, stage.ModeQuick)

	for i := 0; i < 8; i++ {
		_, err := f.engine.Advance(context.Background(), s.ID)
		require.NoError(t, err)
	}

	// The client goes away while the judge is generating.
	ctx, cancel := context.WithCancel(context.Background())
	adapter.mu.Lock()
	adapter.onJudge = func() error {
		cancel()
		return context.Canceled
	}
	adapter.mu.Unlock()

	_, err := f.engine.Advance(ctx, s.ID)
	require.ErrorIs(t, err, context.Canceled)
	f.engine.WaitIdle()

	got, err := f.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInProgress, got.Status)
	assert.Equal(t, 8, got.StageIndex)

	adapter.mu.Lock()
	adapter.onJudge = nil
	adapter.mu.Unlock()

	got, err = f.engine.Advance(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
	assert.NotNil(t, got.Decision)
}

func TestCallerCancelDoesNotAbortAdvance(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter, WithPrefetch(false))
	s := f.create(t, stage.ModeQuick)

	_, err := f.engine.Advance(context.Background(), s.ID)
	require.NoError(t, err)

	entered, release := adapter.arm()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.engine.Advance(ctx, s.ID)
		errCh <- err
	}()

	<-entered
	cancel()
	// The caller returns while stage 1 is still blocked in the backend.
	assert.ErrorIs(t, <-errCh, context.Canceled)

	release()
	f.engine.WaitIdle()

	got, err := f.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StageIndex)
	assert.Equal(t, 1, f.turnsAt(t, s.ID, 1))
}

func TestRematch(t *testing.T) {
	f := setupTestEngine(t, llm.NewMock())
	ctx := context.Background()
	orig := f.create(t, stage.ModeQuick)

	re, err := f.engine.Rematch(ctx, orig.ID)
	require.NoError(t, err)
	assert.NotEqual(t, orig.ID, re.ID)
	assert.Equal(t, orig.Topic, re.Topic)
	assert.Equal(t, orig.PersonaAID, re.PersonaBID)
	assert.Equal(t, orig.PersonaBID, re.PersonaAID)
	assert.Equal(t, core.StatusPending, re.Status)

	_, err = f.engine.Rematch(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := f.engine.ListSessions(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCloseCancelsBackground(t *testing.T) {
	adapter := newTestAdapter()
	f := setupTestEngine(t, adapter)
	ctx := context.Background()
	s := f.create(t, stage.ModeQuick)

	entered, _ := adapter.arm()
	_, err := f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	<-entered

	// Returns only once the stuck prefetch has observed cancellation.
	f.engine.Close()
	assert.Equal(t, 0, f.turnsAt(t, s.ID, 1))

	// Foreground advancement still works without prefetch.
	s, err = f.engine.Advance(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.StageIndex)
	f.engine.WaitIdle()
}
