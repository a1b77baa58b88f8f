package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-bot-host/pkg/llm"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const (
	defaultAPIBaseURL = "https://api.openai.com/v1"
	defaultModel      = "gpt-3.5-turbo"
)

// Client implements the llm.Provider interface using the official OpenAI Go SDK.
type Client struct {
	model  string
	openai *openai.Client
}

// Config defines the settings for the OpenAI client wrapper.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient builds a new llm.Provider backed by OpenAI's official SDK.
// Any OpenAI-compatible endpoint can be targeted through BaseURL.
func NewClient(cfg Config) *Client {
	baseURL := normalizeBaseURL(cfg.BaseURL)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, option.WithBaseURL(baseURL))

	openaiClient := openai.NewClient(opts...)

	logging.LogDebugf("Initialized OpenAI client (model=%s, base=%s, timeout=%s)",
		cfg.Model, baseURL, cfg.Timeout)

	return &Client{
		model:  cfg.Model,
		openai: &openaiClient,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Complete sends a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, request llm.CompletionRequest) (*llm.Completion, error) {
	if request.Model == "" {
		request.Model = c.model
	}

	resp, err := c.openai.Chat.Completions.New(ctx, buildChatParams(request))
	if err != nil {
		return nil, errors.Wrap(llm.ErrRequestFailed, err.Error())
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	return &llm.Completion{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		TokensUsed:   int(resp.Usage.TotalTokens),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func buildChatParams(req llm.CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params
}

func convertMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			result = append(result, openai.ChatCompletionMessageParamOfAssistant(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func normalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAPIBaseURL
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if !strings.HasSuffix(trimmed, "/v1") {
		trimmed += "/v1"
	}
	return trimmed
}
