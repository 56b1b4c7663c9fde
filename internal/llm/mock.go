package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/prompt"
)

// Mock is a deterministic Adapter that needs no backend. It is used for
// demos and tests.
type Mock struct{}

// NewMock creates a mock adapter.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Moderator(ctx context.Context, p prompt.Prompt) (*core.ModeratorPayload, error) {
	slog.Debug("Mock moderator turn")
	return &core.ModeratorPayload{
		Narrative: "Welcome to today's debate. Side A must prove the motion is beneficial, while Side B must show it causes harm. " +
			"We will judge on clarity, strength of evidence and responsiveness. Please stay within your word limits.",
	}, nil
}

func (m *Mock) Participant(ctx context.Context, p prompt.Prompt, side core.Role) (*core.ParticipantPayload, error) {
	slog.Debug("Mock participant turn", "side", side)
	return &core.ParticipantPayload{
		Narrative: fmt.Sprintf("This is the main argument for Side %s. The evidence clearly supports our position, "+
			"and when we examine the facts carefully, the first supporting point strengthens our case considerably.", side),
		Question:  "What does the opponent say about this key issue?",
		Callbacks: []string{"MOD_SETUP", "A_OPEN", "B_OPEN"},
		Tags:      []string{"economy", "policy"},
	}, nil
}

func (m *Mock) CrossEx(ctx context.Context, p prompt.Prompt, side core.Role) (*core.CrossExPayload, error) {
	slog.Debug("Mock cross-examination turn", "side", side)
	return &core.CrossExPayload{
		Questions: []core.QuestionAnswer{
			{Question: fmt.Sprintf("First question from %s?", side), Answer: "Answer to first question, kept brief."},
			{Question: fmt.Sprintf("Second question from %s?", side), Answer: "Answer to second question, kept brief."},
		},
		Tags: []string{"evidence", "logic"},
	}, nil
}

func (m *Mock) Judge(ctx context.Context, p prompt.Prompt) (*core.Decision, error) {
	slog.Debug("Mock judge decision")
	return &core.Decision{
		Winner: core.WinnerA,
		Scores: core.SideScores[core.ScoreCard]{
			A: core.ScoreCard{Clarity: 8, Strength: 7, Responsiveness: 8, Weighing: 7},
			B: core.ScoreCard{Clarity: 7, Strength: 6, Responsiveness: 7, Weighing: 6},
		},
		DetailedScores: core.SideScores[core.DetailedScores]{
			A: core.DetailedScores{LogicalRigor: 8, EvidenceQuality: 7, RebuttalEffectiveness: 8, ArgumentNovelty: 7, Persuasiveness: 8,
				VoiceAuthenticity: 7, RhetoricalSkill: 7, EmotionalResonance: 6, FramingControl: 8, Adaptability: 7},
			B: core.DetailedScores{LogicalRigor: 7, EvidenceQuality: 6, RebuttalEffectiveness: 6, ArgumentNovelty: 6, Persuasiveness: 7,
				VoiceAuthenticity: 7, RhetoricalSkill: 6, EmotionalResonance: 7, FramingControl: 6, Adaptability: 6},
		},
		Verdict: "Side A wins through stronger argumentation and more effective engagement with the opponent's points.",
		Ballot: []core.BallotEntry{
			{Reason: "Side A presented stronger evidence with clearer logic.", Refs: []string{"A_OPEN", "A_CHALLENGE"}},
			{Reason: "Side B failed to adequately address the core claims.", Refs: []string{"B_COUNTER"}},
		},
		Analysis: core.SideScores[core.SideAnalysis]{
			A: core.SideAnalysis{
				Strengths:    []string{"Strong opening framework"},
				Weaknesses:   []string{"Closing could have been more impactful"},
				KeyMoment:    "Turning Side B's statistics against them.",
				KeyMomentRef: "A_CHALLENGE",
			},
			B: core.SideAnalysis{
				Strengths:    []string{"Compelling emotional appeals"},
				Weaknesses:   []string{"Few concrete examples when challenged"},
				KeyMoment:    "The opening that framed the human cost of the motion.",
				KeyMomentRef: "B_OPEN",
			},
		},
		Momentum:     core.Momentum{Trajectory: "A_BUILDING", Description: "Side A built momentum while Side B peaked early."},
		Closeness:    "clear",
		Improvements: core.SideScores[[]string]{A: []string{"Strengthen the closing."}, B: []string{"Provide more concrete examples."}},
		BestLines:    core.SideScores[string]{A: "The evidence clearly supports our position.", B: "Consider the human cost."},
	}, nil
}

func (m *Mock) Wrap(ctx context.Context, p prompt.Prompt) (*core.WrapPayload, error) {
	slog.Debug("Mock discussion wrap")
	return &core.WrapPayload{
		Narrative:           "What a fascinating discussion. Both guests brought unique perspectives to this important topic.",
		KeyTakeaways:        []string{"First key takeaway", "Second key takeaway", "Third key takeaway"},
		AreasOfAgreement:    []string{"Both agree on the importance of the topic"},
		AreasOfDisagreement: []string{"They differ on the best approach"},
		OpenQuestions:       []string{"What will the future hold?"},
	}, nil
}

// Text answers every classifier prompt with PASS.
func (m *Mock) Text(ctx context.Context, p prompt.Prompt) (string, error) {
	return "PASS", nil
}
