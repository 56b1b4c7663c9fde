// Package validate scores produced turn payloads against their stage rules.
//
// Violations are advisory. A turn with violations is still persisted; the
// codes are stored alongside it so later stages (the judge in particular)
// can take them into account.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/stage"
)

// Code identifies a rule violation.
type Code string

const (
	WordLimit          Code = "WORD_LIMIT"
	MissingField       Code = "MISSING_FIELD"
	NewArgumentClosing Code = "NEW_ARGUMENT_CLOSING"
	CrossExCount       Code = "CROSSEX_QUESTION_COUNT"
	CrossExAnswerLen   Code = "CROSSEX_ANSWER_LENGTH"
	MissingCallbacks   Code = "MISSING_CALLBACKS"
)

const (
	// MaxAnswerWords is the ceiling for any single cross-examination answer.
	MaxAnswerWords = 60

	// MinRebuttalCallbacks is the number of prior-stage references a rebuttal needs.
	MinRebuttalCallbacks = 2

	// maxNewClosingTerms is how many unseen significant words a closing may use.
	maxNewClosingTerms = 2
)

// Result collects violations and a human-readable detail for each.
type Result struct {
	Violations []Code   `json:"violations"`
	Details    []string `json:"details"`
}

func (r *Result) add(code Code, format string, args ...any) {
	r.Violations = append(r.Violations, code)
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
}

// Merge appends the violations of other.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
	r.Details = append(r.Details, other.Details...)
}

// Has reports whether the result contains code.
func (r Result) Has(code Code) bool {
	for _, c := range r.Violations {
		if c == code {
			return true
		}
	}
	return false
}

// Strings returns the violation codes as strings for storage.
func (r Result) Strings() []string {
	out := make([]string, len(r.Violations))
	for i, c := range r.Violations {
		out[i] = string(c)
	}
	return out
}

// Classifier decides whether a closing statement introduces new arguments.
// It returns a non-empty reason when it does.
type Classifier interface {
	Classify(ctx context.Context, closing string, prior []string) (string, error)
}

// Validator runs the per-stage checks. The classifier is optional; when it is
// nil or fails, the closing check uses the significant-word heuristic.
type Validator struct {
	classifier Classifier
}

// New creates a validator. classifier may be nil.
func New(classifier Classifier) *Validator {
	return &Validator{classifier: classifier}
}

// Participant validates a debater or discussion participant payload.
// prior holds earlier narratives by the same speaker; priorStageIDs holds the
// ids of every stage that ran before this one.
func (v *Validator) Participant(ctx context.Context, p *core.ParticipantPayload, st stage.Descriptor, prior []string, priorStageIDs []string) Result {
	var res Result

	res.Merge(WordCount(RenderParticipant(p), st))

	if st.QuestionRequired && strings.TrimSpace(p.Question) == "" {
		res.add(MissingField, "Question is required for this stage but was empty or missing")
	}

	if st.IsClosing() {
		if reason := v.closingNewArguments(ctx, p.Narrative, prior); reason != "" {
			res.add(NewArgumentClosing, "%s", reason)
		}
	}

	if st.IsRebuttal() {
		res.Merge(Rebuttal(p, priorStageIDs))
	}

	logViolations(st, res)
	return res
}

// CrossEx validates a cross-examination payload.
func CrossEx(p *core.CrossExPayload, st stage.Descriptor) Result {
	var res Result

	expected := st.ExpectedQuestions()
	if len(p.Questions) != expected {
		res.add(CrossExCount, "Expected %d questions, got %d", expected, len(p.Questions))
	}
	for i, qa := range p.Questions {
		if n := CountWords(qa.Answer); n > MaxAnswerWords {
			res.add(CrossExAnswerLen, "Answer %d has %d words, exceeds %d word limit", i+1, n, MaxAnswerWords)
		}
	}

	logViolations(st, res)
	return res
}

// WordCount checks rendered text against the stage's word budget.
func WordCount(text string, st stage.Descriptor) Result {
	var res Result
	if st.MaxWords == nil {
		return res
	}
	if n := CountWords(text); n > *st.MaxWords {
		res.add(WordLimit, "Word count %d exceeds limit of %d", n, *st.MaxWords)
	}
	return res
}

// Rebuttal checks that a rebuttal references enough prior stages. When no
// prior stage ids are known every callback counts.
func Rebuttal(p *core.ParticipantPayload, priorStageIDs []string) Result {
	var res Result
	n := 0
	for _, cb := range p.Callbacks {
		if len(priorStageIDs) == 0 || referencesAny(cb, priorStageIDs) {
			n++
		}
	}
	if n < MinRebuttalCallbacks {
		res.add(MissingCallbacks, "Rebuttal requires at least %d callbacks, got %d", MinRebuttalCallbacks, n)
	}
	return res
}

func referencesAny(callback string, ids []string) bool {
	for _, id := range ids {
		if strings.Contains(callback, id) {
			return true
		}
	}
	return false
}

func (v *Validator) closingNewArguments(ctx context.Context, closing string, prior []string) string {
	if v.classifier == nil {
		return ClosingHeuristic(closing, prior)
	}
	reason, err := v.classifier.Classify(ctx, closing, prior)
	if err != nil {
		slog.Warn("Closing classifier failed, falling back to heuristic", "error", err)
		return ClosingHeuristic(closing, prior)
	}
	return reason
}

// ClosingHeuristic flags a closing that uses more than two significant words
// absent from the speaker's earlier narratives.
func ClosingHeuristic(closing string, prior []string) string {
	seen := make(map[string]bool)
	for _, n := range prior {
		for _, w := range SignificantWords(n) {
			seen[w] = true
		}
	}

	var fresh []string
	for _, w := range SignificantWords(closing) {
		if !seen[w] {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) <= maxNewClosingTerms {
		return ""
	}

	shown := fresh
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return fmt.Sprintf("Closing introduces %d new topics: %s", len(fresh), strings.Join(shown, ", "))
}

var nonLetters = regexp.MustCompile(`[^a-z\s]`)

var stopWords = map[string]bool{
	"the": true, "this": true, "that": true, "with": true, "from": true, "have": true, "been": true,
	"will": true, "would": true, "could": true, "should": true, "their": true, "there": true,
	"they": true, "them": true, "then": true, "than": true, "when": true, "what": true, "which": true,
	"while": true, "where": true, "were": true, "does": true, "done": true, "doing": true,
	"being": true, "also": true, "more": true, "most": true, "much": true, "many": true,
	"very": true, "just": true, "only": true, "such": true, "some": true, "same": true,
	"other": true, "each": true, "every": true, "both": true, "about": true, "into": true,
	"over": true, "after": true, "before": true, "between": true, "under": true, "again": true,
	"further": true, "once": true, "here": true, "because": true, "against": true,
}

// SignificantWords lowercases text, drops everything but letters and
// whitespace, and returns the distinct words of four or more letters that are
// not stop words, in order of first appearance.
func SignificantWords(text string) []string {
	cleaned := nonLetters.ReplaceAllString(strings.ToLower(text), "")
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// RenderParticipant joins the narrative and question as they are counted.
func RenderParticipant(p *core.ParticipantPayload) string {
	if p.Question == "" {
		return p.Narrative
	}
	return p.Narrative + " " + p.Question
}

func logViolations(st stage.Descriptor, res Result) {
	if len(res.Violations) == 0 {
		return
	}
	slog.Warn("Validation violations", "stage", st.ID, "violations", res.Strings())
}
