package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func validDecision() *Decision {
	card := ScoreCard{Clarity: 7, Strength: 6, Responsiveness: 8, Weighing: 7}
	detail := DetailedScores{
		LogicalRigor: 7, EvidenceQuality: 6, RebuttalEffectiveness: 7, ArgumentNovelty: 5,
		Persuasiveness: 7, VoiceAuthenticity: 8, RhetoricalSkill: 6, EmotionalResonance: 6,
		FramingControl: 7, Adaptability: 7,
	}
	return &Decision{
		Winner:         WinnerA,
		Scores:         SideScores[ScoreCard]{A: card, B: card},
		DetailedScores: SideScores[DetailedScores]{A: detail, B: detail},
		Verdict:        "A framed the costs better.",
		Ballot:         []BallotEntry{{Reason: "Dropped rebuttal", Refs: []string{"B_REBUTTAL"}}},
		Momentum:       Momentum{Trajectory: "A_BUILDING"},
		Closeness:      "clear",
	}
}

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Decision)
		wantErr string
	}{
		{"valid", func(d *Decision) {}, ""},
		{"tie", func(d *Decision) { d.Winner = WinnerTie }, ""},
		{"bad winner", func(d *Decision) { d.Winner = "C" }, "winner"},
		{"score too high", func(d *Decision) { d.Scores.B.Clarity = 11 }, "scores.B"},
		{"score zero", func(d *Decision) { d.Scores.A.Weighing = 0 }, "scores.A"},
		{"detailed out of range", func(d *Decision) { d.DetailedScores.A.Adaptability = 0 }, "detailedScores.A"},
		{"empty verdict", func(d *Decision) { d.Verdict = "  " }, "verdict"},
		{"empty ballot", func(d *Decision) { d.Ballot = nil }, "ballot"},
		{"bad trajectory", func(d *Decision) { d.Momentum.Trajectory = "UP" }, "trajectory"},
		{"bad closeness", func(d *Decision) { d.Closeness = "close" }, "closeness"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDecision()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestScoreCardTotal(t *testing.T) {
	if got := (ScoreCard{Clarity: 7, Strength: 6, Responsiveness: 8, Weighing: 7}).Total(); got != 28 {
		t.Errorf("Total() = %d, want 28", got)
	}
}

func TestPayloadValidate(t *testing.T) {
	t.Run("ParticipantFillsSlices", func(t *testing.T) {
		p := &ParticipantPayload{Narrative: "We should."}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if p.Callbacks == nil || p.Tags == nil {
			t.Error("expected empty slices, got nil")
		}
	})

	t.Run("ParticipantNeedsNarrative", func(t *testing.T) {
		if err := (&ParticipantPayload{}).Validate(); err == nil {
			t.Error("expected error for empty narrative")
		}
	})

	t.Run("CrossExNeedsQuestions", func(t *testing.T) {
		if err := (&CrossExPayload{}).Validate(); err == nil {
			t.Error("expected error for no questions")
		}
		p := &CrossExPayload{Questions: []QuestionAnswer{{Question: " ", Answer: "yes"}}}
		if err := p.Validate(); err == nil {
			t.Error("expected error for blank question")
		}
	})

	t.Run("WrapNeedsSections", func(t *testing.T) {
		p := &WrapPayload{Narrative: "Summary", KeyTakeaways: []string{"a"}}
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing sections")
		}
		p.AreasOfAgreement = []string{}
		p.AreasOfDisagreement = []string{}
		p.OpenQuestions = []string{}
		if err := p.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		kind PayloadKind
		data string
	}{
		{KindModerator, `{"narrative":"Welcome"}`},
		{KindParticipant, `{"narrative":"Yes","question":"Why?","callbacks":["A_OPEN"],"tags":[]}`},
		{KindCrossEx, `{"questions":[{"question":"Q","answer":"A"}],"tags":[]}`},
		{KindJudge, `{"winner":"B","verdict":"close"}`},
		{KindWrap, `{"narrative":"Done","keyTakeaways":[],"areasOfAgreement":[],"areasOfDisagreement":[],"openQuestions":[]}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := DecodePayload(tt.kind, []byte(tt.data))
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if p.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", p.Kind(), tt.kind)
			}
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := DecodePayload("speech", []byte(`{}`)); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("bad json", func(t *testing.T) {
		if _, err := DecodePayload(KindModerator, []byte(`{`)); err == nil {
			t.Error("expected error for malformed data")
		}
	})
}

func TestTurnMarshalJSON(t *testing.T) {
	turn := &Turn{
		ID:         "t1",
		SessionID:  "s1",
		StageIndex: 1,
		StageID:    "A_OPEN",
		Speaker:    RoleSideA,
		Payload:    &ParticipantPayload{Narrative: "Yes", Callbacks: []string{}, Tags: []string{}},
		Violations: []string{},
	}

	data, err := json.Marshal(turn)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out["payload_kind"] != string(KindParticipant) {
		t.Errorf("payload_kind = %v, want participant", out["payload_kind"])
	}
	if out["stage_id"] != "A_OPEN" {
		t.Errorf("stage_id = %v", out["stage_id"])
	}
	payload, ok := out["payload"].(map[string]any)
	if !ok || payload["narrative"] != "Yes" {
		t.Errorf("payload = %v", out["payload"])
	}
}

func TestParseBackendSpec(t *testing.T) {
	tests := []struct {
		input   string
		want    BackendSpec
		wantErr bool
	}{
		{"claude", BackendSpec{Provider: "claude"}, false},
		{"gemini/gemini-2.5-flash", BackendSpec{Provider: "gemini", Model: "gemini-2.5-flash"}, false},
		{" openai / gpt-4o-mini ", BackendSpec{Provider: "openai", Model: "gpt-4o-mini"}, false},
		{"openrouter/meta/llama-3", BackendSpec{Provider: "openrouter", Model: "meta/llama-3"}, false},
		{"", BackendSpec{}, true},
		{"/model", BackendSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBackendSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBackendSpec(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBackendSpec(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}

	if s := (BackendSpec{Provider: "gemini", Model: "pro"}).String(); s != "gemini/pro" {
		t.Errorf("String() = %q", s)
	}
}

func TestShortID(t *testing.T) {
	id := GenerateID()
	if len(id) != 36 {
		t.Fatalf("GenerateID() length = %d, want 36", len(id))
	}
	if got := ShortID(id); got != id[:8] {
		t.Errorf("ShortID() = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(short) = %q", got)
	}
}
