// Package persona defines the characters that argue, discuss and moderate.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Persona is a speaking character referenced by sessions.
type Persona struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Tagline    string    `json:"tagline"`
	Style      string    `json:"style"`
	Priorities []string  `json:"priorities"`
	Background string    `json:"background"`
	Tone       string    `json:"tone"`
	Moderator  bool      `json:"moderator,omitempty"`
	IsBuiltin  bool      `json:"is_builtin"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Validate checks the required fields are present.
func (p *Persona) Validate() error {
	var missing []string
	for field, v := range map[string]string{"id": p.ID, "name": p.Name, "tagline": p.Tagline, "style": p.Style, "tone": p.Tone} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("persona missing required fields: %s", strings.Join(missing, ", "))
	}
	if len(p.Priorities) == 0 {
		return errors.New("persona needs at least one priority")
	}
	return nil
}

// DefaultModeratorID is the moderator used when a session does not name one.
const DefaultModeratorID = "moderator"

// DefaultPersonas returns the built-in personas.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			ID:         "optimist",
			Name:       "Optimist",
			Tagline:    "Sees the opportunity in every change",
			Style:      "Builds from concrete upside to a hopeful but grounded conclusion",
			Priorities: []string{"growth", "opportunity", "constructive solutions"},
			Background: "A former startup founder who has watched bold bets pay off",
			Tone:       "warm, energetic, encouraging",
		},
		{
			ID:         "skeptic",
			Name:       "Skeptic",
			Tagline:    "Show me the evidence",
			Style:      "Questions assumptions, isolates the weakest premise and presses on it",
			Priorities: []string{"evidence", "risk", "unintended consequences"},
			Background: "A research auditor who has reviewed many failed projections",
			Tone:       "dry, precise, unhurried",
		},
		{
			ID:         "pragmatist",
			Name:       "Pragmatist",
			Tagline:    "What actually works on Monday morning",
			Style:      "Weighs costs against benefits and argues for the implementable option",
			Priorities: []string{"feasibility", "cost", "execution"},
			Background: "An operations lead who has shipped under tight budgets",
			Tone:       "plain-spoken, practical, direct",
		},
		{
			ID:         "visionary",
			Name:       "Visionary",
			Tagline:    "Think ten years out",
			Style:      "Connects the motion to long-term trends and transformative outcomes",
			Priorities: []string{"long-term impact", "innovation", "systems change"},
			Background: "A futurist who advises on technology strategy",
			Tone:       "expansive, inspiring, vivid",
		},
		{
			ID:         "analyst",
			Name:       "Analyst",
			Tagline:    "Let the numbers speak",
			Style:      "Structures every claim as premise, data and inference",
			Priorities: []string{"data", "methodology", "quantified impact"},
			Background: "An economist who builds policy models",
			Tone:       "measured, methodical, neutral",
		},
		{
			ID:         "devils_advocate",
			Name:       "Devil's Advocate",
			Tagline:    "Someone has to argue the other side",
			Style:      "Takes the contrarian position to stress-test consensus",
			Priorities: []string{"dissent", "stress-testing", "overlooked perspectives"},
			Background: "A trial lawyer who enjoys the unpopular brief",
			Tone:       "provocative, sharp, intellectually honest",
		},
		{
			ID:         DefaultModeratorID,
			Name:       "The Moderator",
			Tagline:    "Fair, curious and firm on time",
			Style:      "Frames the stakes, keeps both sides responsive and pushes past repetition",
			Priorities: []string{"fairness", "clarity", "depth"},
			Background: "A veteran broadcast host of live debates and panels",
			Tone:       "authoritative, warm, concise",
			Moderator:  true,
		},
	}
}

// Get returns a built-in persona by ID.
func Get(id string) *Persona {
	for _, p := range DefaultPersonas() {
		if p.ID == id {
			p.IsBuiltin = true
			return &p
		}
	}
	return nil
}

// List returns the IDs of the built-in personas.
func List() []string {
	personas := DefaultPersonas()
	ids := make([]string, len(personas))
	for i, p := range personas {
		ids[i] = p.ID
	}
	return ids
}

// Store looks up personas from durable storage. It returns nil, nil when the
// persona does not exist.
type Store interface {
	GetPersona(ctx context.Context, id string) (*Persona, error)
}

// Resolve returns a persona by ID, checking built-ins first and then the store.
// It returns nil, nil when neither has it.
func Resolve(ctx context.Context, id string, store Store) (*Persona, error) {
	if p := Get(id); p != nil {
		return p, nil
	}
	if store == nil {
		return nil, nil
	}
	p, err := store.GetPersona(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get persona %s: %w", id, err)
	}
	return p, nil
}
