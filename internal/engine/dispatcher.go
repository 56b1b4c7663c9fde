package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/prompt"
	"github.com/alienxp03/arena/internal/stage"
	"github.com/alienxp03/arena/internal/validate"
)

// dispatch produces and persists the turn for stage index.
func (e *Engine) dispatch(ctx context.Context, session *core.Session, plan *stage.Plan, index int, background bool) (*core.Turn, error) {
	st := plan.Stages[index]
	slog.Debug("Producing turn", "session_id", session.ID, "stage", st.ID, "stage_index", index, "background", background)

	pc, err := e.promptContext(ctx, session, st, index)
	if err != nil {
		return nil, err
	}

	switch {
	case plan.Discussion && st.IsWrap():
		return e.produceWrap(ctx, session, st, index, pc)
	case plan.Discussion && st.Speaker == core.RoleModerator:
		return e.produceDiscussionModerator(ctx, session, st, index, pc)
	case plan.Discussion:
		return e.produceParticipant(ctx, session, st, index, pc, prompt.DiscussionParticipant)
	case st.Speaker == core.RoleModerator:
		return e.produceModerator(ctx, session, st, index, pc)
	case st.Speaker == core.RoleJudge:
		return e.produceJudge(ctx, session, st, index, pc, background)
	case st.IsCrossEx():
		return e.produceCrossEx(ctx, session, st, index, pc)
	default:
		return e.produceParticipant(ctx, session, st, index, pc, prompt.Debater)
	}
}

// promptContext gathers the personas and the transcript of the stages before index.
func (e *Engine) promptContext(ctx context.Context, session *core.Session, st stage.Descriptor, index int) (prompt.Context, error) {
	a, err := e.resolvePersona(ctx, session.PersonaAID)
	if err != nil {
		return prompt.Context{}, err
	}
	b, err := e.resolvePersona(ctx, session.PersonaBID)
	if err != nil {
		return prompt.Context{}, err
	}
	pc := prompt.Context{
		Topic:              session.Topic,
		Stage:              st,
		Speaker:            st.Speaker,
		PersonaA:           a,
		PersonaB:           b,
		ConfrontationLevel: session.ConfrontationLevel,
	}
	if session.ModeratorPersonaID != "" {
		if pc.Moderator, err = e.resolvePersona(ctx, session.ModeratorPersonaID); err != nil {
			return prompt.Context{}, err
		}
	}
	for _, t := range priorTurns(session, index) {
		pc.Transcript = append(pc.Transcript, prompt.Entry{
			StageID:    t.StageID,
			Speaker:    t.Speaker,
			Text:       t.RenderedText,
			Violations: t.Violations,
		})
	}
	return pc, nil
}

func priorTurns(session *core.Session, index int) []*core.Turn {
	var prior []*core.Turn
	for _, t := range session.Turns {
		if t.StageIndex < index {
			prior = append(prior, t)
		}
	}
	return prior
}

func (e *Engine) produceModerator(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context) (*core.Turn, error) {
	p, err := prompt.Moderator(pc)
	if err != nil {
		return nil, err
	}
	payload, err := e.adapter.Moderator(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to produce %s: %w", st.ID, err)
	}
	res := validate.WordCount(payload.Narrative, st)
	return e.persist(ctx, newTurn(session, st, index, payload, payload.Narrative, res))
}

func (e *Engine) produceDiscussionModerator(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context) (*core.Turn, error) {
	p, err := prompt.DiscussionModerator(pc)
	if err != nil {
		return nil, err
	}
	payload, err := e.adapter.Moderator(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to produce %s: %w", st.ID, err)
	}
	res := validate.WordCount(payload.Narrative, st)
	return e.persist(ctx, newTurn(session, st, index, payload, payload.Narrative, res))
}

func (e *Engine) produceParticipant(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context, build func(prompt.Context) (prompt.Prompt, error)) (*core.Turn, error) {
	p, err := build(pc)
	if err != nil {
		return nil, err
	}
	payload, err := e.adapter.Participant(ctx, p, st.Speaker)
	if err != nil {
		return nil, fmt.Errorf("failed to produce %s: %w", st.ID, err)
	}

	var priorNarratives, priorStageIDs []string
	for _, t := range priorTurns(session, index) {
		priorStageIDs = append(priorStageIDs, t.StageID)
		if t.Speaker == st.Speaker {
			if n := t.Narrative(); n != "" {
				priorNarratives = append(priorNarratives, n)
			}
		}
	}

	res := e.validator.Participant(ctx, payload, st, priorNarratives, priorStageIDs)
	return e.persist(ctx, newTurn(session, st, index, payload, validate.RenderParticipant(payload), res))
}

func (e *Engine) produceCrossEx(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context) (*core.Turn, error) {
	p, err := prompt.CrossEx(pc)
	if err != nil {
		return nil, err
	}
	payload, err := e.adapter.CrossEx(ctx, p, st.Speaker)
	if err != nil {
		return nil, fmt.Errorf("failed to produce %s: %w", st.ID, err)
	}
	res := validate.CrossEx(payload, st)
	return e.persist(ctx, newTurn(session, st, index, payload, renderCrossEx(payload), res))
}

func (e *Engine) produceWrap(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context) (*core.Turn, error) {
	p, err := prompt.DiscussionModerator(pc)
	if err != nil {
		return nil, err
	}
	payload, err := e.adapter.Wrap(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to produce %s: %w", st.ID, err)
	}
	// The themed lists are not spoken, so only the narrative counts against the limit.
	res := validate.WordCount(payload.Narrative, st)
	return e.persist(ctx, newTurn(session, st, index, payload, renderWrap(payload), res))
}

// produceJudge is fatal to the session when generation fails in the
// foreground. Cancellation leaves the stage retryable.
func (e *Engine) produceJudge(ctx context.Context, session *core.Session, st stage.Descriptor, index int, pc prompt.Context, background bool) (*core.Turn, error) {
	p, err := prompt.Judge(pc)
	if err != nil {
		return nil, err
	}
	decision, err := e.adapter.Judge(ctx, p)
	if err != nil {
		if !background && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			slog.Error("Judge failed, marking session as error", "session_id", session.ID, "error", err)
			e.failSession(ctx, session)
		}
		return nil, fmt.Errorf("failed to produce judge decision: %w", err)
	}

	decision.ID = core.GenerateID()
	decision.SessionID = session.ID
	decision.CreatedAt = time.Now()

	turn := newTurn(session, st, index, decision, renderDecision(decision), validate.Result{})
	if err := e.storage.CreateJudgement(ctx, turn, decision); err != nil {
		return nil, err
	}
	slog.Info("Decision recorded", "session_id", session.ID, "winner", decision.Winner)
	return turn, nil
}

func newTurn(session *core.Session, st stage.Descriptor, index int, payload core.Payload, text string, res validate.Result) *core.Turn {
	return &core.Turn{
		ID:           core.GenerateID(),
		SessionID:    session.ID,
		StageIndex:   index,
		StageID:      st.ID,
		Speaker:      st.Speaker,
		Payload:      payload,
		RenderedText: text,
		WordCount:    validate.CountWords(text),
		Violations:   res.Strings(),
		CreatedAt:    time.Now(),
	}
}

func (e *Engine) persist(ctx context.Context, turn *core.Turn) (*core.Turn, error) {
	if err := e.storage.CreateTurn(ctx, turn); err != nil {
		return nil, err
	}
	slog.Debug("Turn persisted", "session_id", turn.SessionID, "stage", turn.StageID, "words", turn.WordCount, "violations", turn.Violations)
	return turn, nil
}
