// Package panel is the chat panel: conversation state, the client that talks
// to the chat endpoint, and the terminal views that render them.
//
// State is mutated only through its transition methods. Every view drives it
// from a single goroutine, so it carries no locking.
package panel

import (
	"strings"

	"masochat/masochat/utils/types"

	"github.com/google/uuid"
)

type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusStreaming
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusStreaming:
		return "streaming"
	case StatusErrored:
		return "errored"
	default:
		return "idle"
	}
}

type State struct {
	Messages []types.Message
	Draft    string
	Loading  bool
	Err      error

	// replying is set once the assistant message for the in-flight
	// request has been appended.
	replying bool
	newID    func() string
}

func NewState() *State {
	return &State{newID: uuid.NewString}
}

func (s *State) Status() Status {
	switch {
	case s.Loading && s.replying:
		return StatusStreaming
	case s.Loading:
		return StatusSubmitting
	case s.Err != nil:
		return StatusErrored
	default:
		return StatusIdle
	}
}

func (s *State) SetDraft(v string) {
	s.Draft = v
}

// Submit appends the draft as a user message and returns the transcript to
// send. It refuses blank drafts and submits while a reply is in flight.
func (s *State) Submit() ([]types.Message, bool) {
	if s.Loading || strings.TrimSpace(s.Draft) == "" {
		return nil, false
	}
	s.Messages = append(s.Messages, types.Message{ID: s.newID(), Role: types.RoleUser, Content: s.Draft})
	s.Draft = ""
	s.Loading = true
	s.Err = nil
	s.replying = false
	return s.Transcript(), true
}

// Receive appends a streamed fragment to the assistant reply, creating the
// reply on the first fragment.
func (s *State) Receive(fragment string) {
	if !s.Loading {
		return
	}
	if !s.replying {
		s.Messages = append(s.Messages, types.Message{ID: s.newID(), Role: types.RoleAssistant})
		s.replying = true
	}
	s.Messages[len(s.Messages)-1].Content += fragment
}

func (s *State) Finish() {
	s.Loading = false
	s.replying = false
}

// Fail ends the request with err. Messages already in the transcript,
// including a partial reply, are kept.
func (s *State) Fail(err error) {
	s.Loading = false
	s.replying = false
	s.Err = err
}

// Transcript returns a copy of the messages safe to hand to another goroutine.
func (s *State) Transcript() []types.Message {
	out := make([]types.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}
