// masochat/controllers/chat.go
package controllers

import (
	"context"

	"masochat/masochat/services/llm"
	"masochat/masochat/utils/logging"
	"masochat/masochat/utils/types"
)

type ChatController struct {
	llm   llm.Streamer
	model string
}

func NewChatController(streamer llm.Streamer, model string) *ChatController {
	return &ChatController{llm: streamer, model: model}
}

func (c *ChatController) Model() string {
	return c.model
}

// Stream forwards the transcript to the model unchanged and returns the
// resulting fragment stream. The provider is called exactly once.
func (c *ChatController) Stream(ctx context.Context, messages []types.Message) (llm.Stream, error) {
	defer logging.LogDuration(ctx, "chat_controller_stream")()
	return c.llm.Stream(ctx, c.model, messages)
}
