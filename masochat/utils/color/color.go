// masochat/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	infoColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed, color.Bold)
	assistantColor = color.New(color.FgHiMagenta)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorAssistant(s string) string {
	return assistantColor.Sprint(s)
}

// Disable turns colouring off, e.g. when output is not a terminal.
func Disable() {
	color.NoColor = true
}
