package llm

import (
	"context"
	"errors"
	"io"

	"masochat/masochat/utils/logging"
	"masochat/masochat/utils/types"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GPTClient streams chat completions from OpenAI or any API that speaks
// the same protocol.
type GPTClient struct {
	client *openai.Client
	name   string
}

// NewGPTClient does not validate apiKey; a missing key shows up as an
// authentication error from the first request.
func NewGPTClient(apiKey, baseURL string) *GPTClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &GPTClient{client: openai.NewClientWithConfig(cfg), name: "gpt"}
}

func (c *GPTClient) Stream(ctx context.Context, model string, messages []types.Message) (Stream, error) {
	defer logging.LogDuration(ctx, c.name+"_stream_open")()

	in := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		in = append(in, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: in,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}
	return &gptStream{stream: stream, name: c.name}, nil
}

type gptStream struct {
	stream *openai.ChatCompletionStream
	name   string
}

// Recv skips role-only and empty deltas so every fragment carries text.
func (s *gptStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logging.ErrorLogger.Error(s.name+" stream read error", zap.Error(err))
			}
			return "", err
		}
		var text string
		for _, choice := range resp.Choices {
			text += choice.Delta.Content
		}
		if text != "" {
			return text, nil
		}
	}
}

func (s *gptStream) Close() error {
	return s.stream.Close()
}
