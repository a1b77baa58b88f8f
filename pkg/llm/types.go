package llm

import (
	"context"
)

// Provider is the completion backend used by the conversation use-case
type Provider interface {
	// Complete sends the outgoing text and returns the model's reply
	Complete(ctx context.Context, request CompletionRequest) (*Completion, error)

	// Name returns the provider name
	Name() string
}

// CompletionRequest represents a chat completion request for a single turn
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"` // nil leaves the provider default
	MaxTokens   int       `json:"max_tokens"`
}

// Completion represents the reply of a chat completion
type Completion struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	TokensUsed   int    `json:"tokens_used"`
	FinishReason string `json:"finish_reason"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reasons reported by providers
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)
