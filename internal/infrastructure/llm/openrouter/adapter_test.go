package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
	"screen-agent/internal/infrastructure/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertResponseMessage_WithContent(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role:    "assistant",
		Content: "Hello, world!",
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Equal(t, "Hello, world!", result.Content)
}

func TestConvertMessages_TextOnly(t *testing.T) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: "You plan UI tasks."},
		{Role: entity.RoleUser, Content: "Open Chrome"},
	}

	result := convertMessages(messages)

	require.Len(t, result, 2)
	assert.Equal(t, "system", result[0].Role)
	assert.Equal(t, "Open Chrome", result[1].Content)
	assert.Empty(t, result[1].MultiContent)
}

func TestConvertMessages_WithImages(t *testing.T) {
	messages := []entity.Message{{
		Role:    entity.RoleUser,
		Content: "Detect elements",
		Images:  []entity.Screenshot{{ID: "a.png", Data: []byte{1, 2, 3}, Format: "jpeg"}},
	}}

	result := convertMessages(messages)

	require.Len(t, result, 1)
	assert.Empty(t, result[0].Content)
	require.Len(t, result[0].MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, result[0].MultiContent[0].Type)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, result[0].MultiContent[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,AQID", result[0].MultiContent[1].ImageURL.URL)
}

func TestChat_AgainstCompatibleServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: got.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: `{"steps":[]}`},
			}},
			Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 5},
		})
	}))
	defer srv.Close()

	cfg := DefaultConfig("test-key", "default-model")
	cfg.BaseURL = srv.URL
	cfg.Logger = logger.NewNop()
	adapter := NewOpenRouterAdapter(cfg)

	resp, err := adapter.Chat(context.Background(), output.ChatRequest{
		Messages:     []entity.Message{{Role: entity.RoleUser, Content: "plan"}},
		Model:        "vision-model",
		JSONResponse: true,
		Temperature:  0.1,
	})
	require.NoError(t, err)

	assert.Equal(t, "vision-model", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
	assert.Equal(t, `{"steps":[]}`, resp.Message.Content)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("k", "m")
	cfg.BaseURL = srv.URL
	_, err := NewOpenRouterAdapter(cfg).Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
