package panel

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"

	"masochat/masochat/utils/datastream"
	httputils "masochat/masochat/utils/http"
	"masochat/masochat/utils/types"
)

// Sender opens one streamed reply for a transcript.
type Sender interface {
	Send(ctx context.Context, messages []types.Message) iter.Seq2[string, error]
}

// Client talks to the chat endpoint over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the server at baseURL. The request is only
// made once the returned sequence is ranged over.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Send yields reply fragments in arrival order. It ends after the finish
// part, or with exactly one error: the server's text for non-2xx answers and
// error parts, io.ErrUnexpectedEOF when the stream stops early, or the
// transport error itself.
func (c *Client) Send(ctx context.Context, messages []types.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := httputils.PostStream(ctx, c.httpClient, c.baseURL+"/api/chat",
			types.ChatRequest{Messages: messages},
			map[string]string{"Accept": "text/event-stream"})
		if err != nil {
			yield("", err)
			return
		}
		defer body.Close()

		for p, err := range datastream.Read(body) {
			if err != nil {
				yield("", err)
				return
			}
			switch p.Type {
			case datastream.TypeText:
				if !yield(p.Text, nil) {
					return
				}
			case datastream.TypeError:
				yield("", errors.New(p.Text))
				return
			case datastream.TypeFinish:
				return
			}
		}
		yield("", io.ErrUnexpectedEOF)
	}
}
