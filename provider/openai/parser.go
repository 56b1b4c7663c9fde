package openai

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/alienxp03/arena/provider"
)

// JSONResponse is the chat completions response body.
type JSONResponse struct {
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// ParseJSON decodes a chat completions response.
func ParseJSON(data string, duration time.Duration) (*provider.Response, error) {
	var raw JSONResponse
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	resp := &provider.Response{
		Content: raw.Choices[0].Message.Content,
		Model:   raw.Model,
		Raw:     data,
		Metadata: &provider.Metadata{
			Duration:   duration,
			StopReason: raw.Choices[0].FinishReason,
		},
	}
	if raw.Usage != nil {
		resp.Metadata.InputTokens = raw.Usage.PromptTokens
		resp.Metadata.OutputTokens = raw.Usage.CompletionTokens
		resp.Metadata.TotalTokens = raw.Usage.TotalTokens
	}
	return resp, nil
}

// errorMessage extracts the message from an API error body.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
