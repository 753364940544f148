// masochat/services/llm/llm.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"masochat/masochat/config"
	httputils "masochat/masochat/utils/http"
	"masochat/masochat/utils/logging"
	"masochat/masochat/utils/types"

	"go.uber.org/zap"
)

// Stream is a finite, single-use sequence of text fragments. Recv returns
// io.EOF once the model has finished.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Streamer opens a streaming completion for a transcript.
type Streamer interface {
	Stream(ctx context.Context, model string, messages []types.Message) (Stream, error)
}

// NewStreamer picks the provider named in cfg.
func NewStreamer(cfg config.Config) (Streamer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewGPTClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case config.ProviderGroq:
		return NewGroqClient(cfg.GroqAPIKey), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{baseURL: baseURL, httpClient: http.DefaultClient}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func (c *OllamaClient) Stream(ctx context.Context, model string, messages []types.Message) (Stream, error) {
	defer logging.LogDuration(ctx, "ollama_stream_open")()

	req := ollamaChatRequest{Model: model, Stream: true, Messages: make([]ollamaMessage, 0, len(messages))}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := httputils.PostStream(ctx, c.httpClient, c.baseURL+"/chat", req, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	return &ollamaStream{body: body, decoder: json.NewDecoder(body)}, nil
}

type ollamaStream struct {
	body    io.ReadCloser
	decoder *json.Decoder
	done    bool
}

func (s *ollamaStream) Recv() (string, error) {
	for !s.done {
		var chunk ollamaChunk
		if err := s.decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				break
			}
			logging.ErrorLogger.Error("ollama stream decode error", zap.Error(err))
			return "", fmt.Errorf("ollama stream: %w", err)
		}
		if chunk.Error != "" {
			return "", errors.New(chunk.Error)
		}
		if chunk.Done {
			s.done = true
			break
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
	}
	return "", io.EOF
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
