// Package datastream frames a chat response as server-sent events.
//
// Every part is one event: "text" carries a JSON string fragment, "error" a
// JSON string describing a terminal failure, and "finish" a JSON object with
// the finish reason. Fragments are never merged or split by this layer.
package datastream

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/tmaxmax/go-sse"
)

const (
	TypeText   = "text"
	TypeError  = "error"
	TypeFinish = "finish"

	FinishStop = "stop"
)

// Part is one decoded stream element. The websocket transport sends it as-is.
type Part struct {
	Type         string `json:"type"`
	Text         string `json:"text,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

func TextPart(s string) Part  { return Part{Type: TypeText, Text: s} }
func ErrorPart(s string) Part { return Part{Type: TypeError, Text: s} }
func FinishPart() Part        { return Part{Type: TypeFinish, FinishReason: FinishStop} }

type finishData struct {
	FinishReason string `json:"finishReason"`
}

// Writer sends parts over an upgraded SSE session.
type Writer struct {
	sess *sse.Session
}

// Upgrade switches the response to text/event-stream. Nothing is written to
// the client until the first part is sent.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Writer, error) {
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		return nil, fmt.Errorf("upgrade to event stream: %w", err)
	}
	return &Writer{sess: sess}, nil
}

// Send writes one part and flushes it.
func (w *Writer) Send(p Part) error {
	var payload any = p.Text
	if p.Type == TypeFinish {
		payload = finishData{FinishReason: p.FinishReason}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := &sse.Message{Type: sse.Type(p.Type)}
	msg.AppendData(string(data))
	if err := w.sess.Send(msg); err != nil {
		return err
	}
	return w.sess.Flush()
}

// Read decodes parts from an event stream body. Iteration stops after the
// first error; unknown event types are skipped.
func Read(r io.Reader) iter.Seq2[Part, error] {
	return func(yield func(Part, error) bool) {
		for ev, err := range sse.Read(r, nil) {
			if err != nil {
				yield(Part{}, fmt.Errorf("read event stream: %w", err))
				return
			}

			p := Part{Type: ev.Type}
			switch ev.Type {
			case TypeText, TypeError:
				err = json.Unmarshal([]byte(ev.Data), &p.Text)
			case TypeFinish:
				var fd finishData
				err = json.Unmarshal([]byte(ev.Data), &fd)
				p.FinishReason = fd.FinishReason
			default:
				continue
			}
			if err != nil {
				yield(Part{}, fmt.Errorf("decode %s event: %w", ev.Type, err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}
