package engine

import (
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

func renderCrossEx(p *core.CrossExPayload) string {
	blocks := make([]string, len(p.Questions))
	for i, qa := range p.Questions {
		blocks[i] = fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, qa.Question, i+1, qa.Answer)
	}
	return strings.Join(blocks, "\n\n")
}

func renderScoreCard(side string, s core.ScoreCard) string {
	return fmt.Sprintf("Scores - %s: clarity=%d strength=%d responsiveness=%d weighing=%d",
		side, s.Clarity, s.Strength, s.Responsiveness, s.Weighing)
}

func renderDecision(d *core.Decision) string {
	lines := []string{
		"Winner: " + string(d.Winner),
		renderScoreCard("A", d.Scores.A),
		renderScoreCard("B", d.Scores.B),
		"",
		d.Verdict,
	}
	if len(d.Ballot) > 0 {
		lines = append(lines, "")
		for _, b := range d.Ballot {
			line := "Ballot: " + b.Reason
			if len(b.Refs) > 0 {
				line += " [refs: " + strings.Join(b.Refs, ", ") + "]"
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderWrap(p *core.WrapPayload) string {
	var b strings.Builder
	b.WriteString(p.Narrative)
	sections := []struct {
		title string
		items []string
	}{
		{"Key takeaways", p.KeyTakeaways},
		{"Areas of agreement", p.AreasOfAgreement},
		{"Areas of disagreement", p.AreasOfDisagreement},
		{"Open questions", p.OpenQuestions},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		b.WriteString("\n\n" + s.title + ":")
		for _, item := range s.items {
			b.WriteString("\n- " + item)
		}
	}
	return b.String()
}
