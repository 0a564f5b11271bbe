package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/internal/tui/browser"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

// NewTuiCmd creates the `convo tui` command.
func NewTuiCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and manage conversations interactively",
		Long: `Launch an interactive Terminal User Interface with the conversation tree on the
left and the transcript of the selected conversation on the right.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for TTY
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			model := browser.New(cmd.Context(), *svc)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}

			return nil
		},
	}
	return cmd
}
