package persona

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultPersonas(t *testing.T) {
	personas := DefaultPersonas()

	if len(personas) != 7 {
		t.Errorf("wrong count: got %d, want 7", len(personas))
	}

	moderators := 0
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			t.Errorf("persona %s invalid: %v", p.ID, err)
		}
		if p.Moderator {
			moderators++
		}
	}
	if moderators != 1 {
		t.Errorf("moderators = %d, want 1", moderators)
	}
}

func TestGet(t *testing.T) {
	t.Run("ExistingPersona", func(t *testing.T) {
		p := Get("optimist")
		if p == nil {
			t.Fatal("persona not found")
		}
		if p.Name != "Optimist" {
			t.Errorf("wrong Name: got %s, want Optimist", p.Name)
		}
		if !p.IsBuiltin {
			t.Error("built-in persona should be marked IsBuiltin")
		}
	})

	t.Run("NonExistentPersona", func(t *testing.T) {
		if p := Get("nonexistent"); p != nil {
			t.Error("expected nil for nonexistent persona")
		}
	})

	if ids := List(); len(ids) != 7 || ids[0] != "optimist" {
		t.Errorf("List() = %v", ids)
	}
}

func TestValidate(t *testing.T) {
	p := Persona{ID: "x", Name: "X", Tagline: "t", Style: "s", Tone: "calm"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for persona without priorities")
	}
	p.Priorities = []string{"one"}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	p.Name = " "
	if err := p.Validate(); err == nil {
		t.Error("expected error for blank name")
	}
}

type mapStore struct {
	personas map[string]*Persona
	err      error
}

func (m mapStore) GetPersona(ctx context.Context, id string) (*Persona, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.personas[id], nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	custom := &Persona{ID: "economist", Name: "Economist"}
	store := mapStore{personas: map[string]*Persona{"economist": custom}}

	t.Run("BuiltinWins", func(t *testing.T) {
		p, err := Resolve(ctx, "skeptic", store)
		if err != nil || p == nil || !p.IsBuiltin {
			t.Fatalf("Resolve(skeptic) = %+v, %v", p, err)
		}
	})

	t.Run("FromStore", func(t *testing.T) {
		p, err := Resolve(ctx, "economist", store)
		if err != nil || p != custom {
			t.Fatalf("Resolve(economist) = %+v, %v", p, err)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		p, err := Resolve(ctx, "nobody", store)
		if err != nil || p != nil {
			t.Fatalf("Resolve(nobody) = %+v, %v", p, err)
		}
		if p, _ := Resolve(ctx, "nobody", nil); p != nil {
			t.Fatal("expected nil without store")
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		_, err := Resolve(ctx, "economist", mapStore{err: errors.New("db closed")})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
