// Command-line chat panel for a running masochat server
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"masochat/masochat/config"
	"masochat/masochat/panel"
	"masochat/masochat/utils/color"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	serverURL string
	plain     bool
)

var rootCmd = &cobra.Command{
	Use:          "masochat",
	Short:        "Chat with the masochat assistant from a terminal",
	SilenceUsage: true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat panel",
	Long: `Open the chat panel against a masochat server.

A full-screen panel is used when stdin and stdout are terminals; otherwise,
or with --plain, messages are read line by line and replies are printed as
they stream in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := panel.NewClient(serverURL, nil)
		tty := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if plain || !tty {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				color.Disable()
			}
			_, err := panel.RunLines(ctx, os.Stdin, os.Stdout, client)
			return err
		}

		_, err := tea.NewProgram(panel.NewModel(ctx, client), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	},
}

func main() {
	cfg := config.LoadConfig()
	chatCmd.Flags().StringVar(&serverURL, "server", "http://localhost"+cfg.Addr(), "base URL of the masochat server")
	chatCmd.Flags().BoolVar(&plain, "plain", false, "use the line-by-line panel even on a terminal")
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}
}
