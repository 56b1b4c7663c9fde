package claude

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/alienxp03/arena/provider"
)

// JSONResponse represents Claude CLI JSON output.
type JSONResponse struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Model   string `json:"model,omitempty"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      *struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	} `json:"usage,omitempty"`
	Result     string `json:"result,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ParseJSON parses Claude CLI JSON output. Output that is not JSON is
// returned as plain text.
func ParseJSON(data string, duration time.Duration) *provider.Response {
	var raw JSONResponse
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return &provider.Response{Content: data, Raw: data}
	}

	resp := &provider.Response{Model: raw.Model, Raw: data}

	var b strings.Builder
	for _, c := range raw.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	resp.Content = b.String()
	if resp.Content == "" {
		resp.Content = raw.Result
	}

	meta := &provider.Metadata{Duration: duration, StopReason: raw.StopReason}
	if raw.DurationMs > 0 {
		meta.Duration = time.Duration(raw.DurationMs) * time.Millisecond
	}
	if raw.Usage != nil {
		input := raw.Usage.InputTokens + raw.Usage.CacheCreationInputTokens + raw.Usage.CacheReadInputTokens
		meta.InputTokens = input
		meta.OutputTokens = raw.Usage.OutputTokens
		meta.TotalTokens = input + raw.Usage.OutputTokens
	}
	resp.Metadata = meta
	return resp
}
