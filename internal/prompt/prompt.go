// Package prompt builds the role-specific requests sent to the generative
// backend. Every builder returns a system instruction and a user message.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/persona"
	"github.com/alienxp03/arena/internal/stage"
)

// Prompt is a rendered request.
type Prompt struct {
	System string
	User   string
}

// Entry is one prior turn as the speakers see it.
type Entry struct {
	StageID    string
	Speaker    core.Role
	Text       string
	Violations []string
}

// Context carries everything a builder may reference.
type Context struct {
	Topic              string
	Stage              stage.Descriptor
	Speaker            core.Role
	PersonaA           *persona.Persona
	PersonaB           *persona.Persona
	Moderator          *persona.Persona
	ConfrontationLevel int
	Transcript         []Entry
}

// Self returns the persona of the speaking side.
func (c Context) Self() *persona.Persona {
	if c.Speaker == core.RoleSideB {
		return c.PersonaB
	}
	return c.PersonaA
}

// Other returns the persona of the opposing side.
func (c Context) Other() *persona.Persona {
	if c.Speaker == core.RoleSideB {
		return c.PersonaA
	}
	return c.PersonaB
}

// SpeakerTurns counts earlier turns by the speaking role.
func (c Context) SpeakerTurns() int {
	n := 0
	for _, e := range c.Transcript {
		if e.Speaker == c.Speaker {
			n++
		}
	}
	return n
}

var funcs = template.FuncMap{
	"persona":    personaJSON,
	"maxWords":   maxWords,
	"side":       side,
	"transcript": transcript,
	"join":       strings.Join,
	"add":        func(a, b int) int { return a + b },
}

var templates = template.Must(template.New("prompts").Funcs(funcs).Parse(templateText))

func render(name string, data any) (Prompt, error) {
	var sys, user strings.Builder
	if err := templates.ExecuteTemplate(&sys, name+".system", data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s system template: %w", name, err)
	}
	if err := templates.ExecuteTemplate(&user, name+".user", data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute %s user template: %w", name, err)
	}
	return Prompt{System: strings.TrimSpace(sys.String()), User: strings.TrimSpace(user.String())}, nil
}

// Moderator builds the debate setup address.
func Moderator(c Context) (Prompt, error) { return render("moderator", c) }

// Debater builds an argument turn for side A or B.
func Debater(c Context) (Prompt, error) { return render("debater", c) }

// CrossEx builds a cross-examination turn.
func CrossEx(c Context) (Prompt, error) { return render("crossex", c) }

// Judge builds the final adjudication request.
func Judge(c Context) (Prompt, error) { return render("judge", c) }

// DiscussionModerator builds a moderator turn in a discussion, including the wrap-up.
func DiscussionModerator(c Context) (Prompt, error) { return render("discussion_moderator", c) }

// DiscussionParticipant builds a guest response in a discussion.
func DiscussionParticipant(c Context) (Prompt, error) { return render("discussion_participant", c) }

// Classifier builds the closing-statement new-argument check.
func Classifier(closing string, prior []string) (Prompt, error) {
	return render("classifier", struct {
		Closing string
		Prior   []string
	}{closing, prior})
}

func personaJSON(p *persona.Persona) string {
	if p == nil {
		return "{}"
	}
	out, err := json.MarshalIndent(struct {
		Name       string   `json:"name"`
		Tagline    string   `json:"tagline"`
		Style      string   `json:"style"`
		Priorities []string `json:"priorities"`
		Background string   `json:"background"`
		Tone       string   `json:"tone"`
	}{p.Name, p.Tagline, p.Style, p.Priorities, p.Background, p.Tone}, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func maxWords(d stage.Descriptor) string {
	if d.MaxWords == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *d.MaxWords)
}

func side(r core.Role) string {
	if r == core.RoleSideB {
		return "opposition (AGAINST)"
	}
	return "proposition (FOR)"
}

func transcript(entries []Entry, withViolations bool) string {
	if len(entries) == 0 {
		return "(No prior turns yet)"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		s := fmt.Sprintf("[%s] (%s): %s", e.StageID, e.Speaker, e.Text)
		if withViolations && len(e.Violations) > 0 {
			s += fmt.Sprintf("\n  [VIOLATIONS: %s]", strings.Join(e.Violations, ", "))
		}
		parts[i] = s
	}
	return strings.Join(parts, "\n\n")
}
