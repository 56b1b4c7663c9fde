package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Winner is the outcome of a judged debate.
type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "TIE"
)

// ScoreCard holds the four headline scores for one side (1-10 each).
type ScoreCard struct {
	Clarity        int `json:"clarity"`
	Strength       int `json:"strength"`
	Responsiveness int `json:"responsiveness"`
	Weighing       int `json:"weighing"`
}

// Total sums the headline scores.
func (s ScoreCard) Total() int {
	return s.Clarity + s.Strength + s.Responsiveness + s.Weighing
}

// SideScores pairs a value for each side.
type SideScores[T any] struct {
	A T `json:"A"`
	B T `json:"B"`
}

// DetailedScores breaks each side's performance into finer categories.
type DetailedScores struct {
	LogicalRigor          int `json:"logicalRigor"`
	EvidenceQuality       int `json:"evidenceQuality"`
	RebuttalEffectiveness int `json:"rebuttalEffectiveness"`
	ArgumentNovelty       int `json:"argumentNovelty"`
	Persuasiveness        int `json:"persuasiveness"`
	VoiceAuthenticity     int `json:"voiceAuthenticity"`
	RhetoricalSkill       int `json:"rhetoricalSkill"`
	EmotionalResonance    int `json:"emotionalResonance"`
	FramingControl        int `json:"framingControl"`
	Adaptability          int `json:"adaptability"`
}

func (d DetailedScores) values() []int {
	return []int{
		d.LogicalRigor, d.EvidenceQuality, d.RebuttalEffectiveness, d.ArgumentNovelty,
		d.Persuasiveness, d.VoiceAuthenticity, d.RhetoricalSkill, d.EmotionalResonance,
		d.FramingControl, d.Adaptability,
	}
}

// BallotEntry is one reasoned citation into the transcript.
type BallotEntry struct {
	Reason string   `json:"reason"`
	Refs   []string `json:"refs"`
}

// SideAnalysis summarises one side's performance.
type SideAnalysis struct {
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	KeyMoment    string   `json:"keyMoment"`
	KeyMomentRef string   `json:"keyMomentRef"`
}

// Momentum describes who finished stronger.
type Momentum struct {
	Trajectory  string `json:"trajectory"` // A_BUILDING, B_BUILDING, EVEN, A_FADING, B_FADING
	Description string `json:"description"`
}

var (
	validTrajectories = map[string]bool{"A_BUILDING": true, "B_BUILDING": true, "EVEN": true, "A_FADING": true, "B_FADING": true}
	validCloseness    = map[string]bool{"blowout": true, "clear": true, "narrow": true, "razor-thin": true}
)

// Decision is the judge's verdict. It is created exactly once, when the
// JUDGE stage executes, and doubles as the judge turn payload.
type Decision struct {
	ID             string                     `json:"id,omitempty"`
	SessionID      string                     `json:"session_id,omitempty"`
	Winner         Winner                     `json:"winner"`
	Scores         SideScores[ScoreCard]      `json:"scores"`
	DetailedScores SideScores[DetailedScores] `json:"detailedScores"`
	Verdict        string                     `json:"verdict"`
	Ballot         []BallotEntry              `json:"ballot"`
	Analysis       SideScores[SideAnalysis]   `json:"analysis"`
	Momentum       Momentum                   `json:"momentum"`
	Closeness      string                     `json:"closeness"` // blowout, clear, narrow, razor-thin
	Improvements   SideScores[[]string]       `json:"improvements"`
	BestLines      SideScores[string]         `json:"bestLines"`
	CreatedAt      time.Time                  `json:"created_at,omitempty"`
}

func (d *Decision) Kind() PayloadKind     { return KindJudge }
func (d *Decision) NarrativeText() string { return d.Verdict }

// Validate checks the decision has the expected shape and value ranges.
func (d *Decision) Validate() error {
	switch d.Winner {
	case WinnerA, WinnerB, WinnerTie:
	default:
		return fmt.Errorf("winner must be A, B or TIE, got %q", d.Winner)
	}
	for side, card := range map[string]ScoreCard{"A": d.Scores.A, "B": d.Scores.B} {
		for _, v := range []int{card.Clarity, card.Strength, card.Responsiveness, card.Weighing} {
			if v < 1 || v > 10 {
				return fmt.Errorf("scores.%s out of range 1-10: %d", side, v)
			}
		}
	}
	for side, detail := range map[string]DetailedScores{"A": d.DetailedScores.A, "B": d.DetailedScores.B} {
		for _, v := range detail.values() {
			if v < 1 || v > 10 {
				return fmt.Errorf("detailedScores.%s out of range 1-10: %d", side, v)
			}
		}
	}
	if strings.TrimSpace(d.Verdict) == "" {
		return errors.New("verdict is required")
	}
	if len(d.Ballot) == 0 {
		return errors.New("ballot must contain at least one entry")
	}
	if !validTrajectories[d.Momentum.Trajectory] {
		return fmt.Errorf("invalid momentum trajectory: %q", d.Momentum.Trajectory)
	}
	if !validCloseness[d.Closeness] {
		return fmt.Errorf("invalid closeness: %q", d.Closeness)
	}
	return nil
}
