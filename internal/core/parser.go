package core

import (
	"fmt"
	"strings"
)

// BackendSpec names a generative backend and an optional model.
type BackendSpec struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
}

// String renders the spec back to provider[/model] form.
func (b BackendSpec) String() string {
	if b.Model == "" {
		return b.Provider
	}
	return b.Provider + "/" + b.Model
}

// ParseBackendSpec parses a backend specification string.
// Format: provider[/model]
//
// Examples:
//   - "claude" -> {Provider: "claude", Model: ""}
//   - "gemini/gemini-2.5-flash" -> {Provider: "gemini", Model: "gemini-2.5-flash"}
func ParseBackendSpec(spec string) (BackendSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return BackendSpec{}, fmt.Errorf("backend spec cannot be empty")
	}

	parts := strings.SplitN(spec, "/", 2)
	b := BackendSpec{Provider: strings.TrimSpace(parts[0])}
	if b.Provider == "" {
		return BackendSpec{}, fmt.Errorf("provider cannot be empty in spec: %s", spec)
	}
	if len(parts) == 2 {
		b.Model = strings.TrimSpace(parts[1])
	}
	return b, nil
}
