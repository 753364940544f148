package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"masochat/masochat/controllers"
	"masochat/masochat/services/llm"
	"masochat/masochat/utils/datastream"
	"masochat/masochat/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreamer replays canned fragments and records every call.
type fakeStreamer struct {
	mu        sync.Mutex
	calls     int
	got       []types.Message
	fragments []string
	openErr   error
	openPanic any
	failAfter int // fail Recv with recvErr after this many fragments; -1 disables
	recvErr   error
}

func newFake(fragments ...string) *fakeStreamer {
	return &fakeStreamer{fragments: fragments, failAfter: -1}
}

func (f *fakeStreamer) Stream(_ context.Context, _ string, messages []types.Message) (llm.Stream, error) {
	f.mu.Lock()
	f.calls++
	f.got = messages
	f.mu.Unlock()
	if f.openPanic != nil {
		panic(f.openPanic)
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeStream{f: f}, nil
}

func (f *fakeStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStreamer) messages() []types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

type fakeStream struct {
	f      *fakeStreamer
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.f.failAfter >= 0 && s.pos == s.f.failAfter {
		return "", s.f.recvErr
	}
	if s.pos >= len(s.f.fragments) {
		return "", io.EOF
	}
	s.pos++
	return s.f.fragments[s.pos-1], nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func newServer(t *testing.T, f *fakeStreamer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(
		controllers.NewChatController(f, "gpt-3.5-turbo"),
		controllers.NewHealthController("fake", "gpt-3.5-turbo"),
	))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func parts(t *testing.T, body string) []datastream.Part {
	t.Helper()
	var out []datastream.Part
	for p, err := range datastream.Read(strings.NewReader(body)) {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestChatRejectsMalformedBodies(t *testing.T) {
	bodies := map[string]string{
		"not json":         `{"messages":`,
		"empty object":     `{}`,
		"null body":        `null`,
		"top-level array":  `[{"role":"user","content":"hi"}]`,
		"string messages":  `{"messages":"hi"}`,
		"object messages":  `{"messages":{"role":"user"}}`,
		"null messages":    `{"messages":null}`,
		"number elements":  `{"messages":[1,2]}`,
		"wrong field type": `{"messages":[{"role":"user","content":42}]}`,
		"trailing garbage": `{"messages":[{"role":"user","content":"hi"}]} this is not json`,
		"second value":     `{"messages":[]}{"messages":"x"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f := newFake("unused")
			resp, text := post(t, newServer(t, f), body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid request body: messages must be an array.", text)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
			assert.Zero(t, f.callCount())
		})
	}
}

func TestChatStreamsFragmentsAndForwardsTranscript(t *testing.T) {
	f := newFake("Hel", "lo", " there")
	resp, body := post(t, newServer(t, f), `{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hey"},
		{"role":"user","content":"say hello"}]}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Equal(t, []datastream.Part{
		datastream.TextPart("Hel"),
		datastream.TextPart("lo"),
		datastream.TextPart(" there"),
		datastream.FinishPart(),
	}, parts(t, body))

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, []types.Message{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hey"},
		{Role: types.RoleUser, Content: "say hello"},
	}, f.messages())
}

func TestChatAcceptsEmptyTranscript(t *testing.T) {
	f := newFake()
	resp, body := post(t, newServer(t, f), "{\"messages\":[]}\n")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []datastream.Part{datastream.FinishPart()}, parts(t, body))
	assert.Equal(t, 1, f.callCount())
	assert.Empty(t, f.messages())
}

func TestChatInferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeStreamer)
		want  string
	}{
		{"open error", func(f *fakeStreamer) { f.openErr = errors.New("rate limit reached") }, "Error: rate limit reached"},
		{"first recv error", func(f *fakeStreamer) { f.failAfter, f.recvErr = 0, errors.New("upstream closed") }, "Error: upstream closed"},
		{"panic with error", func(f *fakeStreamer) { f.openPanic = errors.New("nil model") }, "Error: nil model"},
		{"panic with string", func(f *fakeStreamer) { f.openPanic = "boom" }, "An unknown error occurred."},
		{"panic with struct", func(f *fakeStreamer) { f.openPanic = struct{ Code int }{7} }, "An unknown error occurred."},
		{"error without message", func(f *fakeStreamer) { f.openErr = errors.New("") }, "An unknown error occurred."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake("never sent")
			tt.setup(f)
			resp, body := post(t, newServer(t, f), `{"messages":[{"role":"user","content":"hi"}]}`)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, tt.want, body)
			assert.Equal(t, 1, f.callCount())
		})
	}
}

func TestChatMidStreamFailureEndsWithErrorPart(t *testing.T) {
	f := newFake("par", "tial", "never")
	f.failAfter, f.recvErr = 2, errors.New("connection reset")
	resp, body := post(t, newServer(t, f), `{"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []datastream.Part{
		datastream.TextPart("par"),
		datastream.TextPart("tial"),
		datastream.ErrorPart("Error: connection reset"),
	}, parts(t, body))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
}

func TestChatWebsocketRelaysParts(t *testing.T) {
	f := newFake("Hello", " there")
	srv := newServer(t, f)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}}))

	var got []datastream.Part
	for {
		var p datastream.Part
		if err := wsjson.Read(ctx, conn, &p); err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
			break
		}
		got = append(got, p)
	}
	assert.Equal(t, []datastream.Part{
		datastream.TextPart("Hello"),
		datastream.TextPart(" there"),
		datastream.FinishPart(),
	}, got)
	assert.Equal(t, 1, f.callCount())
}

func TestChatWebsocketRejectsBadRequest(t *testing.T) {
	f := newFake("unused")
	srv := newServer(t, f)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"messages":"nope"}`)))

	var p datastream.Part
	require.NoError(t, wsjson.Read(ctx, conn, &p))
	assert.Equal(t, datastream.ErrorPart("Invalid request body: messages must be an array."), p)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))
	assert.Zero(t, f.callCount())
}

func TestChatWebsocketInferenceFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeStreamer)
		want  []datastream.Part
	}{
		{
			name:  "open error",
			setup: func(f *fakeStreamer) { f.openErr = errors.New("quota") },
			want:  []datastream.Part{datastream.ErrorPart("Error: quota")},
		},
		{
			name:  "mid-stream error",
			setup: func(f *fakeStreamer) { f.failAfter, f.recvErr = 1, errors.New("connection reset") },
			want: []datastream.Part{
				datastream.TextPart("par"),
				datastream.ErrorPart("Error: connection reset"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake("par", "tial")
			tt.setup(f)
			srv := newServer(t, f)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
			require.NoError(t, err)
			defer conn.CloseNow()

			require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}}))

			var got []datastream.Part
			var closeErr error
			for {
				var p datastream.Part
				if closeErr = wsjson.Read(ctx, conn, &p); closeErr != nil {
					break
				}
				got = append(got, p)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(closeErr))
			assert.Equal(t, 1, f.callCount())
		})
	}
}

func TestHealthRoute(t *testing.T) {
	srv := newServer(t, newFake())
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
