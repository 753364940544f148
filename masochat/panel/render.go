package panel

import (
	"strings"

	"masochat/masochat/utils/types"

	"github.com/charmbracelet/lipgloss"
)

const (
	title        = "Masocampus"
	titleAvatar  = "LM"
	titleStatus  = "Online"
	emptyHint    = "Type a message to start the conversation."
	errorHeading = "Error occurred:"
)

var (
	indigo      = lipgloss.Color("#4F46E5")
	indigoLight = lipgloss.Color("#E0E7FF")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(indigo).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C7D2FE")).Background(indigo)
	avatarStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	userBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#D1D5DB")).
			Padding(0, 1)
	assistantBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(indigo).
			Foreground(indigoLight).
			Padding(0, 1)

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#DC2626")).
			Foreground(lipgloss.Color("#FCA5A5")).
			Padding(0, 1)
)

// Bubble is one rendered transcript row: user bubbles sit on the right,
// assistant bubbles on the left.
type Bubble struct {
	Message types.Message
	Align   lipgloss.Position
	Avatar  string
}

func Bubbles(msgs []types.Message) []Bubble {
	out := make([]Bubble, 0, len(msgs))
	for _, m := range msgs {
		b := Bubble{Message: m, Align: lipgloss.Left, Avatar: "AI"}
		if m.Role == types.RoleUser {
			b.Align, b.Avatar = lipgloss.Right, "U"
		}
		out = append(out, b)
	}
	return out
}

// RenderTranscript lays the messages out for a pane of the given width.
// Rendering has no side effects on the messages.
func RenderTranscript(msgs []types.Message, width int) string {
	if width <= 0 {
		width = 80
	}
	if len(msgs) == 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, hintStyle.Render(emptyHint))
	}

	rows := make([]string, 0, len(msgs))
	for _, b := range Bubbles(msgs) {
		rows = append(rows, renderBubble(b, width))
	}
	return strings.Join(rows, "\n")
}

func renderBubble(b Bubble, width int) string {
	style := assistantBubble
	if b.Align == lipgloss.Right {
		style = userBubble
	}

	// bubbles take at most 70% of the pane, minus border and padding
	maxInner := width*7/10 - 4
	if maxInner < 8 {
		maxInner = 8
	}
	inner := lipgloss.Width(b.Message.Content)
	if inner > maxInner {
		inner = maxInner
	}
	if inner < 1 {
		inner = 1
	}
	bubble := style.Width(inner + 2).Render(b.Message.Content)
	avatar := avatarStyle.Render(b.Avatar)

	var row string
	if b.Align == lipgloss.Right {
		row = lipgloss.JoinHorizontal(lipgloss.Bottom, bubble, avatar)
	} else {
		row = lipgloss.JoinHorizontal(lipgloss.Bottom, avatar, bubble)
	}
	return lipgloss.PlaceHorizontal(width, b.Align, row)
}

func renderHeader(width int) string {
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		avatarStyle.Background(indigoLight).Foreground(indigo).Render(titleAvatar),
		headerStyle.Render(title),
		statusStyle.Render(titleStatus),
	)
	return headerStyle.Width(width).Render(line)
}

func renderToast(err error, width int) string {
	if err == nil {
		return ""
	}
	box := toastStyle.Width(min(width-2, 48)).Render(errorHeading + "\n" + err.Error())
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, box)
}
