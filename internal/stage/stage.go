// Package stage holds the static stage plans that script every session mode.
package stage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alienxp03/arena/internal/core"
)

var (
	// ErrUnknownMode is returned when no plan is registered for a mode.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrStageOutOfRange is returned when a stage index is outside a plan.
	ErrStageOutOfRange = errors.New("stage index out of range")
)

// Mode names.
const (
	ModeQuick      = "quick"
	ModePro        = "pro"
	ModeDiscussion = "discussion"
)

// BulletRange bounds how many bullet points a stage should contain.
type BulletRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Descriptor describes one scripted turn slot.
type Descriptor struct {
	ID               string       `json:"id"`
	Label            string       `json:"label"`
	Speaker          core.Role    `json:"speaker"`
	MaxWords         *int         `json:"max_words,omitempty"`
	Bullets          *BulletRange `json:"bullets,omitempty"`
	QuestionRequired bool         `json:"question_required"`
	QuestionCount    int          `json:"question_count,omitempty"`
}

// IsClosing reports whether the stage is a final summary.
func (d Descriptor) IsClosing() bool { return strings.HasSuffix(d.ID, "_CLOSE") }

// IsCrossEx reports whether the stage is a cross-examination.
func (d Descriptor) IsCrossEx() bool { return strings.Contains(d.ID, "CROSSEX") }

// IsRebuttal reports whether the stage must reference earlier stages.
func (d Descriptor) IsRebuttal() bool { return strings.Contains(d.ID, "REBUTTAL") }

// IsWrap reports whether the stage closes a discussion.
func (d Descriptor) IsWrap() bool { return d.ID == "MOD_WRAP" }

// ExpectedQuestions returns the number of question/answer pairs a
// cross-examination stage must contain.
func (d Descriptor) ExpectedQuestions() int {
	if d.QuestionCount > 0 {
		return d.QuestionCount
	}
	return 2
}

// Plan is an ordered, fixed-length list of stages for one mode.
type Plan struct {
	Mode       string       `json:"mode"`
	Discussion bool         `json:"discussion"`
	Stages     []Descriptor `json:"stages"`
}

// Registry is an immutable lookup of plans by mode.
type Registry struct {
	plans map[string]*Plan
}

// NewRegistry returns a registry holding the built-in plans.
func NewRegistry() *Registry {
	r := &Registry{plans: make(map[string]*Plan)}
	for _, p := range []*Plan{quickPlan(), proPlan(), discussionPlan()} {
		r.plans[p.Mode] = p
	}
	return r
}

// GetPlan returns the plan for a mode.
func (r *Registry) GetPlan(mode string) (*Plan, error) {
	p, ok := r.plans[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return p, nil
}

// GetStage returns the stage at index for a mode.
func (r *Registry) GetStage(mode string, index int) (Descriptor, error) {
	p, err := r.GetPlan(mode)
	if err != nil {
		return Descriptor{}, err
	}
	if index < 0 || index >= len(p.Stages) {
		return Descriptor{}, fmt.Errorf("%w: %d not in [0,%d) for mode %s", ErrStageOutOfRange, index, len(p.Stages), mode)
	}
	return p.Stages[index], nil
}

// StageCount returns the number of stages in a mode's plan.
func (r *Registry) StageCount(mode string) (int, error) {
	p, err := r.GetPlan(mode)
	if err != nil {
		return 0, err
	}
	return len(p.Stages), nil
}

// IsDiscussion reports whether the mode is a moderated discussion.
func (r *Registry) IsDiscussion(mode string) bool {
	p, ok := r.plans[mode]
	return ok && p.Discussion
}

// Modes returns the registered mode names in sorted order.
func (r *Registry) Modes() []string {
	modes := make([]string, 0, len(r.plans))
	for m := range r.plans {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}
