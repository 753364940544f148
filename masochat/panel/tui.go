package panel

import (
	"context"
	"iter"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type fragmentMsg struct{ text string }

// streamEndMsg closes a reply; err is nil on a clean finish.
type streamEndMsg struct{ err error }

// Model is the Bubble Tea chat panel. Update is the only place State changes.
type Model struct {
	ctx    context.Context
	sender Sender
	state  *State

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int

	next   func() (string, error, bool)
	stop   func()
	cancel context.CancelFunc
}

func NewModel(ctx context.Context, sender Sender) *Model {
	in := textinput.New()
	in.Placeholder = "Ok. Let me check"
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:      ctx,
		sender:   sender,
		state:    NewState(),
		input:    in,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

// State exposes the conversation for inspection.
func (m *Model) State() *State {
	return m.state
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			// a command may be blocked in next, so only cancel here
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		}
		if m.state.Loading || scrollKey(msg) {
			// input is disabled while a reply streams; the transcript still scrolls
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.state.SetDraft(m.input.Value())
		return m, cmd

	case fragmentMsg:
		m.state.Receive(msg.text)
		m.refresh()
		return m, m.waitNext()

	case streamEndMsg:
		m.release()
		if msg.err != nil {
			m.state.Fail(msg.err)
		} else {
			m.state.Finish()
		}
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func scrollKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		return true
	}
	return false
}

func (m *Model) submit() tea.Cmd {
	m.state.SetDraft(m.input.Value())
	msgs, ok := m.state.Submit()
	if !ok {
		return nil
	}
	m.input.Reset()
	m.input.Blur()
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.start(m.sender.Send(ctx, msgs))
	m.refresh()
	return tea.Batch(m.waitNext(), m.spinner.Tick)
}

func (m *Model) start(seq iter.Seq2[string, error]) {
	m.next, m.stop = iter.Pull2(seq)
}

// release drops a finished reply and its response body. It must not run
// while a command is inside next.
func (m *Model) release() {
	if m.stop != nil {
		m.stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.next, m.stop, m.cancel = nil, nil, nil
}

func (m *Model) waitNext() tea.Cmd {
	next := m.next
	if next == nil {
		return nil
	}
	return func() tea.Msg {
		frag, err, ok := next()
		switch {
		case !ok:
			return streamEndMsg{}
		case err != nil:
			return streamEndMsg{err: err}
		default:
			return fragmentMsg{text: frag}
		}
	}
}

// refresh lays out the panes and re-renders the transcript, keeping the
// newest message in view.
func (m *Model) refresh() {
	m.input.Width = max(m.width-6, 10)
	chrome := lipgloss.Height(renderHeader(m.width)) + lipgloss.Height(m.footer())
	if toast := renderToast(m.state.Err, m.width); toast != "" {
		chrome += lipgloss.Height(toast)
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-chrome, 3)
	m.viewport.SetContent(RenderTranscript(m.state.Messages, m.width))
	m.viewport.GotoBottom()
}

func (m *Model) footer() string {
	send := "➤"
	if m.state.Loading {
		send = m.spinner.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, m.input.View(), " ", send)
}

func (m *Model) View() string {
	parts := []string{renderHeader(m.width), m.viewport.View(), m.footer()}
	if toast := renderToast(m.state.Err, m.width); toast != "" {
		parts = append(parts, toast)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
