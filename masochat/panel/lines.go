package panel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"masochat/masochat/utils/color"
)

// RunLines is the chat panel for pipes and dumb terminals: one prompt per
// line, fragments printed as they arrive. It returns the final state when
// input ends or the user types exit.
func RunLines(ctx context.Context, in io.Reader, out io.Writer, sender Sender) (*State, error) {
	state := NewState()

	fmt.Fprintln(out, color.ColorInfo(title+" is "+strings.ToLower(titleStatus)+". Type a message, or 'exit' to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, color.ColorPrompt("you> "))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return state, nil
		}

		state.SetDraft(line)
		msgs, ok := state.Submit()
		if !ok {
			continue
		}

		fmt.Fprint(out, color.ColorAssistant("ai> "))
		for frag, err := range sender.Send(ctx, msgs) {
			if err != nil {
				state.Fail(err)
				break
			}
			state.Receive(frag)
			fmt.Fprint(out, frag)
		}
		fmt.Fprintln(out)

		if state.Err != nil {
			fmt.Fprintln(out, color.ColorError(errorHeading+" "+state.Err.Error()))
			continue
		}
		state.Finish()
	}
	fmt.Fprintln(out)
	return state, scanner.Err()
}
