package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-bot-host/pkg/llm"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "https://api.openai.com/v1"},
		{"http://localhost:11434", "http://localhost:11434/v1"},
		{"http://localhost:11434/v1/", "http://localhost:11434/v1"},
		{" https://example.com/v1 ", "https://example.com/v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeBaseURL(tt.raw))
	}
}

func TestClient_Complete(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hi!"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	zero := 0.0
	completion, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
		Temperature: &zero,
		MaxTokens:   20,
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", completion.ID)
	assert.Equal(t, "Hi!", completion.Content)
	assert.Equal(t, 7, completion.TokensUsed)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, "gpt-4o-mini", received["model"])
	assert.EqualValues(t, 20, received["max_tokens"])
	temperature, sent := received["temperature"]
	assert.True(t, sent, "an explicit zero temperature must reach the API")
	assert.EqualValues(t, 0, temperature)
}

func TestBuildChatParams_OmitsUnsetTemperature(t *testing.T) {
	params := buildChatParams(llm.CompletionRequest{Model: "gpt-4o-mini"})
	assert.False(t, params.Temperature.Valid())
}

func TestClient_Complete_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
	})
	assert.ErrorIs(t, err, llm.ErrRequestFailed)
}
