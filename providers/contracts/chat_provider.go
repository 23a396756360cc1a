package contracts

import (
	"context"

	"github.com/00dev-org/llmpal/providers/models"
)

// IChatAIProvider sends one chat-completion request and waits for the reply.
type IChatAIProvider interface {
	ChatCompletionRequest(ctx context.Context, request *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
}
