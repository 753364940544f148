package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"masochat/masochat/controllers"
	"masochat/masochat/services/llm"
	"masochat/masochat/utils/datastream"
	"masochat/masochat/utils/logging"
	"masochat/masochat/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("Invalid request body: messages must be an array.")

const unknownErrorText = "An unknown error occurred."

// ChatRoutes serves POST / as an event stream and GET /ws as a websocket
// carrying the same parts. No timeout is applied to either route.
func ChatRoutes(ctrl *controllers.ChatController) chi.Router {
	h := &chatHandler{ctrl: ctrl}
	r := chi.NewRouter()
	r.Post("/", h.post)
	r.Get("/ws", h.serveWS)
	return r
}

type chatHandler struct {
	ctrl *controllers.ChatController
}

// decodeChatRequest accepts a JSON object whose "messages" member is an array
// of message objects. Anything else is ErrInvalidRequest.
func decodeChatRequest(body io.Reader) ([]types.Message, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	// the body must hold exactly one JSON value
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after request object", ErrInvalidRequest)
	}
	field := bytes.TrimSpace(raw["messages"])
	if len(field) == 0 || field[0] != '[' {
		return nil, ErrInvalidRequest
	}
	var msgs []types.Message
	if err := json.Unmarshal(field, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return msgs, nil
}

// panicError carries a value recovered from a provider panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	return ""
}

func (e *panicError) Unwrap() error {
	err, _ := e.value.(error)
	return err
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn()
}

// describeFailure is the client-facing text for an inference failure.
func describeFailure(err error) string {
	if err == nil || err.Error() == "" {
		return unknownErrorText
	}
	return "Error: " + err.Error()
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, msg)
}

// relay pulls fragments from an opened stream. Provider panics come back as
// errors so a half-written response can still be terminated cleanly.
type relay struct {
	stream llm.Stream
}

func (rl *relay) next() (frag string, err error) {
	err = guard(func() error {
		var e error
		frag, e = rl.stream.Recv()
		return e
	})
	return frag, err
}

// open calls the provider and waits for the first fragment, so failures that
// happen before any output still get a proper status code. The returned
// first error is io.EOF for an empty completion.
func (h *chatHandler) open(r *http.Request, msgs []types.Message) (rl *relay, first string, err error) {
	rl = &relay{}
	err = guard(func() error {
		s, err := h.ctrl.Stream(r.Context(), msgs)
		if err != nil {
			return err
		}
		rl.stream = s
		return nil
	})
	if err != nil {
		return rl, "", err
	}
	first, err = rl.next()
	return rl, first, err
}

func (rl *relay) close() {
	if rl.stream != nil {
		_ = guard(rl.stream.Close)
	}
}

func (h *chatHandler) post(w http.ResponseWriter, r *http.Request) {
	msgs, err := decodeChatRequest(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, ErrInvalidRequest.Error())
		return
	}

	rl, frag, err := h.open(r, msgs)
	defer rl.close()
	if err != nil && !errors.Is(err, io.EOF) {
		logging.ErrorLogger.Error("[API Chat Error]", zap.Error(err), zap.Int("messages", len(msgs)))
		writeText(w, http.StatusInternalServerError, describeFailure(err))
		return
	}

	dw, uerr := datastream.Upgrade(w, r)
	if uerr != nil {
		logging.ErrorLogger.Error("[API Chat Error]", zap.Error(uerr))
		writeText(w, http.StatusInternalServerError, describeFailure(uerr))
		return
	}

	for err == nil {
		if serr := dw.Send(datastream.TextPart(frag)); serr != nil {
			logging.AppLogger.Info("chat client went away", zap.Error(serr))
			return
		}
		frag, err = rl.next()
	}

	if errors.Is(err, io.EOF) {
		_ = dw.Send(datastream.FinishPart())
		return
	}
	logging.ErrorLogger.Error("[API Chat Error] stream relay", zap.Error(err))
	_ = dw.Send(datastream.ErrorPart(describeFailure(err)))
}

func (h *chatHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	if typ != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "unsupported data")
		return
	}
	msgs, err := decodeChatRequest(bytes.NewReader(data))
	if err != nil {
		wsjson.Write(ctx, conn, datastream.ErrorPart(ErrInvalidRequest.Error()))
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	rl, frag, err := h.open(r, msgs)
	defer rl.close()
	for err == nil {
		if werr := wsjson.Write(ctx, conn, datastream.TextPart(frag)); werr != nil {
			return
		}
		frag, err = rl.next()
	}

	if errors.Is(err, io.EOF) {
		wsjson.Write(ctx, conn, datastream.FinishPart())
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	logging.ErrorLogger.Error("[API Chat Error] websocket", zap.Error(err))
	wsjson.Write(ctx, conn, datastream.ErrorPart(describeFailure(err)))
	conn.Close(websocket.StatusInternalError, "stream error")
}
