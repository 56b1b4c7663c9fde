package prompt

import (
	"strings"
	"testing"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/persona"
	"github.com/alienxp03/arena/internal/stage"
)

func testContext(t *testing.T, mode string, index int) Context {
	t.Helper()
	st, err := stage.NewRegistry().GetStage(mode, index)
	if err != nil {
		t.Fatalf("GetStage: %v", err)
	}
	return Context{
		Topic:              "Cities should ban private cars",
		Stage:              st,
		Speaker:            st.Speaker,
		PersonaA:           persona.Get("optimist"),
		PersonaB:           persona.Get("skeptic"),
		Moderator:          persona.Get(persona.DefaultModeratorID),
		ConfrontationLevel: 4,
		Transcript: []Entry{
			{StageID: "MOD_SETUP", Speaker: core.RoleModerator, Text: "Welcome."},
			{StageID: "A_OPEN", Speaker: core.RoleSideA, Text: "Cars clog cities.", Violations: []string{"WORD_LIMIT"}},
		},
	}
}

func mustContain(t *testing.T, s string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			t.Errorf("expected %q in:\n%s", sub, s)
		}
	}
}

func TestDebatePrompts(t *testing.T) {
	t.Run("Moderator", func(t *testing.T) {
		p, err := Moderator(testContext(t, stage.ModePro, 0))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "Maximum words: 120", "Cover 3-4 distinct points")
		mustContain(t, p.User, `Motion: "Cities should ban private cars"`, `"name": "Optimist"`, `"name": "Skeptic"`)
	})

	t.Run("DebaterQuestionRequired", func(t *testing.T) {
		c := testContext(t, stage.ModeQuick, 3) // A_CHALLENGE
		p, err := Debater(c)
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "proposition (FOR)", "You MUST include a question", "Side A Challenge (A_CHALLENGE)")
		mustContain(t, p.User, "[A_OPEN] (A): Cars clog cities.", "for Side A")
		if strings.Contains(p.User, "VIOLATIONS") {
			t.Error("debater transcript should not show violations")
		}
	})

	t.Run("DebaterClosing", func(t *testing.T) {
		p, err := Debater(testContext(t, stage.ModeQuick, 6)) // B_CLOSE
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "opposition (AGAINST)", "CLOSING statement")
		mustContain(t, p.User, `"name": "Skeptic"`)
	})

	t.Run("Rebuttal", func(t *testing.T) {
		p, err := Debater(testContext(t, stage.ModePro, 5))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "at least 2 earlier stage IDs", "Make 2-3 supporting points")
	})

	t.Run("CrossEx", func(t *testing.T) {
		p, err := CrossEx(testContext(t, stage.ModePro, 3))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "exactly 2 questions", "60 words or fewer")
	})

	t.Run("Judge", func(t *testing.T) {
		p, err := Judge(testContext(t, stage.ModeQuick, 8))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, `"winner": "A" | "B" | "TIE"`, "razor-thin")
		mustContain(t, p.User, "[VIOLATIONS: WORD_LIMIT]")
	})
}

func TestDiscussionPrompts(t *testing.T) {
	t.Run("Intro", func(t *testing.T) {
		p, err := DiscussionModerator(testContext(t, stage.ModeDiscussion, 0))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "You are The Moderator", "CONFRONTATION LEVEL: 4/5", "INTRODUCTION")
	})

	t.Run("Question", func(t *testing.T) {
		p, err := DiscussionModerator(testContext(t, stage.ModeDiscussion, 1))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "QUESTION stage", "Maximum words: 60")
	})

	t.Run("Wrap", func(t *testing.T) {
		c := testContext(t, stage.ModeDiscussion, 9)
		c.Moderator = nil
		p, err := DiscussionModerator(c)
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "experienced discussion moderator", "keyTakeaways", "openQuestions")
	})

	t.Run("ParticipantFinal", func(t *testing.T) {
		p, err := DiscussionParticipant(testContext(t, stage.ModeDiscussion, 8))
		if err != nil {
			t.Fatal(err)
		}
		mustContain(t, p.System, "speaking as Optimist", "response number 2", "FINAL thought")
		mustContain(t, p.User, "as Guest A")
	})
}

func TestClassifier(t *testing.T) {
	p, err := Classifier("We close on trade.", []string{"Trade first.", "Trade again."})
	if err != nil {
		t.Fatal(err)
	}
	mustContain(t, p.System, `"PASS"`, `"FAIL: <brief explanation>"`)
	mustContain(t, p.User, "[Prior 1]: Trade first.", "[Prior 2]: Trade again.", "We close on trade.")
}
