package output

import (
	"context"

	"screen-agent/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
	// Model overrides the adapter's default model when set.
	Model string
	// JSONResponse asks the provider for a JSON object response.
	JSONResponse bool
}

type ChatResponse struct {
	Message entity.Message
	Model   string
	Usage   TokenUsage
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}
