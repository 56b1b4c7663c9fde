package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/stage"
)

func nWords(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func limit(n int) *int { return &n }

type stubClassifier struct {
	reason string
	err    error
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, closing string, prior []string) (string, error) {
	s.calls++
	return s.reason, s.err
}

func TestWordCount(t *testing.T) {
	st := stage.Descriptor{ID: "A_OPEN", MaxWords: limit(50)}

	t.Run("AtLimit", func(t *testing.T) {
		res := WordCount(nWords(50), st)
		assert.False(t, res.Has(WordLimit))
	})

	t.Run("OverLimit", func(t *testing.T) {
		res := WordCount(nWords(51), st)
		require.True(t, res.Has(WordLimit))
		assert.Contains(t, res.Details[0], "51")
	})

	t.Run("Unbounded", func(t *testing.T) {
		res := WordCount(nWords(500), stage.Descriptor{ID: "A_CROSSEX"})
		assert.Empty(t, res.Violations)
	})
}

func TestParticipant(t *testing.T) {
	ctx := context.Background()
	v := New(nil)

	t.Run("QuestionCountsTowardLimit", func(t *testing.T) {
		st := stage.Descriptor{ID: "A_CHALLENGE", MaxWords: limit(50), QuestionRequired: true}
		p := &core.ParticipantPayload{Narrative: nWords(45), Question: nWords(6)}
		res := v.Participant(ctx, p, st, nil, nil)
		assert.True(t, res.Has(WordLimit))
		assert.False(t, res.Has(MissingField))
	})

	t.Run("MissingQuestion", func(t *testing.T) {
		st := stage.Descriptor{ID: "A_CHALLENGE", QuestionRequired: true}
		p := &core.ParticipantPayload{Narrative: "We stand firm.", Question: "   "}
		res := v.Participant(ctx, p, st, nil, nil)
		assert.Equal(t, []Code{MissingField}, res.Violations)
	})

	t.Run("ViolationsAccumulate", func(t *testing.T) {
		st := stage.Descriptor{ID: "A_COUNTER", MaxWords: limit(5), QuestionRequired: true}
		p := &core.ParticipantPayload{Narrative: nWords(10)}
		res := v.Participant(ctx, p, st, nil, nil)
		assert.ElementsMatch(t, []Code{WordLimit, MissingField}, res.Violations)
		assert.Len(t, res.Details, 2)
	})
}

func TestClosingHeuristic(t *testing.T) {
	prior := []string{
		"The economy depends on open trade.",
		"Trade drives growth across the economy.",
	}

	t.Run("ReusesPriorTerms", func(t *testing.T) {
		assert.Empty(t, ClosingHeuristic("Economy, trade and growth: that is our case.", prior))
	})

	t.Run("IntroducesNewTerms", func(t *testing.T) {
		reason := ClosingHeuristic("Consider healthcare, education and environmental policy.", prior)
		require.NotEmpty(t, reason)
		assert.Contains(t, reason, "healthcare")
		assert.Contains(t, reason, "education")
		assert.Contains(t, reason, "environmental")
	})

	t.Run("TwoNewTermsAllowed", func(t *testing.T) {
		assert.Empty(t, ClosingHeuristic("Growth lifts healthcare.", prior))
	})

	t.Run("ThroughValidator", func(t *testing.T) {
		st := stage.Descriptor{ID: "A_CLOSE", MaxWords: limit(85)}
		p := &core.ParticipantPayload{Narrative: "Consider healthcare, education and environmental policy."}
		res := New(nil).Participant(context.Background(), p, st, prior, nil)
		assert.True(t, res.Has(NewArgumentClosing))
	})
}

func TestClosingClassifier(t *testing.T) {
	ctx := context.Background()
	st := stage.Descriptor{ID: "B_CLOSE"}
	prior := []string{"The economy depends on open trade."}
	p := &core.ParticipantPayload{Narrative: "Consider healthcare, education and environmental policy."}

	t.Run("PassOverridesHeuristic", func(t *testing.T) {
		c := &stubClassifier{}
		res := New(c).Participant(ctx, p, st, prior, nil)
		assert.False(t, res.Has(NewArgumentClosing))
		assert.Equal(t, 1, c.calls)
	})

	t.Run("Fail", func(t *testing.T) {
		c := &stubClassifier{reason: "LLM classifier: raises healthcare for the first time"}
		res := New(c).Participant(ctx, p, st, []string{"healthcare education environmental policy"}, nil)
		require.True(t, res.Has(NewArgumentClosing))
		assert.Contains(t, res.Details[0], "LLM classifier")
	})

	t.Run("ErrorFallsBackToHeuristic", func(t *testing.T) {
		c := &stubClassifier{err: errors.New("connection refused")}
		res := New(c).Participant(ctx, p, st, prior, nil)
		require.True(t, res.Has(NewArgumentClosing))
		assert.Contains(t, res.Details[0], "new topics")
	})

	t.Run("NotCalledForNonClosing", func(t *testing.T) {
		c := &stubClassifier{reason: "should not be used"}
		New(c).Participant(ctx, p, stage.Descriptor{ID: "B_OPEN"}, prior, nil)
		assert.Zero(t, c.calls)
	})
}

func TestCrossEx(t *testing.T) {
	st := stage.Descriptor{ID: "A_CROSSEX", QuestionCount: 2}

	t.Run("Clean", func(t *testing.T) {
		p := &core.CrossExPayload{Questions: []core.QuestionAnswer{
			{Question: "Q one?", Answer: nWords(60)},
			{Question: "Q two?", Answer: nWords(12)},
		}}
		assert.Empty(t, CrossEx(p, st).Violations)
	})

	t.Run("LongAnswer", func(t *testing.T) {
		p := &core.CrossExPayload{Questions: []core.QuestionAnswer{
			{Question: "Q one?", Answer: nWords(65)},
			{Question: "Q two?", Answer: nWords(10)},
		}}
		res := CrossEx(p, st)
		assert.Equal(t, []Code{CrossExAnswerLen}, res.Violations)
		assert.Contains(t, res.Details[0], "Answer 1 has 65 words")
	})

	t.Run("WrongCount", func(t *testing.T) {
		p := &core.CrossExPayload{Questions: []core.QuestionAnswer{{Question: "Only one?", Answer: "Yes."}}}
		assert.Equal(t, []Code{CrossExCount}, CrossEx(p, st).Violations)
	})
}

func TestRebuttal(t *testing.T) {
	ids := []string{"MOD_SETUP", "A_OPEN", "B_OPEN", "A_CROSSEX", "B_CROSSEX"}

	t.Run("EnoughReferences", func(t *testing.T) {
		p := &core.ParticipantPayload{Callbacks: []string{"B_OPEN", "B_CROSSEX: the cost claim"}}
		assert.Empty(t, Rebuttal(p, ids).Violations)
	})

	t.Run("UnknownReferencesIgnored", func(t *testing.T) {
		p := &core.ParticipantPayload{Callbacks: []string{"B_OPEN", "somewhere earlier"}}
		assert.True(t, Rebuttal(p, ids).Has(MissingCallbacks))
	})

	t.Run("ThroughValidator", func(t *testing.T) {
		st := stage.Descriptor{ID: "A_REBUTTAL", MaxWords: limit(160)}
		p := &core.ParticipantPayload{Narrative: "They are wrong.", Callbacks: []string{}}
		res := New(nil).Participant(context.Background(), p, st, nil, ids)
		assert.Equal(t, []Code{MissingCallbacks}, res.Violations)
	})
}

func TestSignificantWords(t *testing.T) {
	got := SignificantWords("The ECONOMY, the economy! Trade-offs matter; also 2024 data.")
	assert.Equal(t, []string{"economy", "tradeoffs", "matter", "data"}, got)
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 3, CountWords(" one\ttwo\nthree "))
}
