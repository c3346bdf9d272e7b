// Package llm wraps the reply-generation language model behind a small
// interface. The orchestrator builds the message window; this package only
// moves it over the wire.
package llm

import (
	"context"
	"errors"
)

// Role is the speaker slot of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the model-facing conversation window.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the provider-reported token accounting for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// Generation is the model's reply for one turn.
type Generation struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	Usage Usage  `json:"usage"`
}

// ErrEmptyGeneration is returned when the model replies with no usable text.
var ErrEmptyGeneration = errors.New("llm: model returned empty reply")

// Generator produces the agent's reply for one turn.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (Generation, error)
}
