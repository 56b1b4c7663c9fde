package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/alienxp03/arena/internal/prompt"
)

// ClosingClassifier asks the backend whether a closing introduces new arguments.
type ClosingClassifier struct {
	adapter Adapter
}

// NewClosingClassifier creates a classifier backed by adapter.
func NewClosingClassifier(adapter Adapter) *ClosingClassifier {
	return &ClosingClassifier{adapter: adapter}
}

// Classify returns a reason when the closing is judged to add new arguments.
// A response that is neither PASS nor FAIL is an error.
func (c *ClosingClassifier) Classify(ctx context.Context, closing string, prior []string) (string, error) {
	p, err := prompt.Classifier(closing, prior)
	if err != nil {
		return "", err
	}
	out, err := c.adapter.Text(ctx, p)
	if err != nil {
		return "", err
	}

	verdict := strings.Trim(strings.TrimSpace(out), `"`)
	switch {
	case strings.HasPrefix(verdict, "FAIL"):
		explanation := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(verdict, "FAIL"), ":"))
		if explanation == "" {
			explanation = "closing introduces new arguments"
		}
		return "LLM classifier: " + explanation, nil
	case strings.HasPrefix(verdict, "PASS"):
		return "", nil
	default:
		return "", fmt.Errorf("%w: unexpected classifier response %q", ErrMalformedOutput, truncate(verdict, 80))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
