// Package simulated provides a deterministic completion provider that never
// leaves the process. It is the default provider of the service.
package simulated

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/d4l-data4life/go-bot-host/pkg/llm"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const (
	defaultModel = "gpt-3.5-turbo"
	// replyPrefix opens every simulated reply
	replyPrefix = "Simulated response to: "
)

// Client implements llm.Provider without calling any upstream API
type Client struct {
	model string
}

// NewClient creates a simulated provider answering with the given default model
func NewClient(model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{model: model}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "simulated"
}

// Complete echoes the last user message. Token usage is estimated from the
// whitespace-separated words of prompt and reply; the reply is cut to MaxTokens words.
func (c *Client) Complete(ctx context.Context, request llm.CompletionRequest) (*llm.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := request.Model
	if model == "" {
		model = c.model
	}

	prompt := lastUserMessage(request.Messages)
	if prompt == "" {
		return nil, fmt.Errorf("%w: no user message to answer", llm.ErrRequestFailed)
	}

	words := strings.Fields(replyPrefix + prompt)
	finishReason := llm.FinishReasonStop
	if request.MaxTokens > 0 && len(words) > request.MaxTokens {
		words = words[:request.MaxTokens]
		finishReason = llm.FinishReasonLength
	}
	reply := strings.Join(words, " ")

	completion := &llm.Completion{
		ID:           "sim-" + uuid.NewString(),
		Model:        model,
		Content:      reply,
		TokensUsed:   len(strings.Fields(prompt)) + len(words),
		FinishReason: finishReason,
	}
	logging.LogDebugf("Simulated completion (model=%s tokens=%d)", completion.Model, completion.TokensUsed)
	return completion, nil
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
