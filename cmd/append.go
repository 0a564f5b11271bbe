package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewAppendCmd(svc **service.Service) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "append <path> [text...]",
		Short: "Add a transcript segment to a conversation",
		Long: `Add text as a new, timestamped transcript segment.

Examples:
  convo append Work/Standup "Ship the release on Friday"
  pbpaste | convo append Work/Standup       # stdin is detected automatically`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])

			if !cmd.Flags().Changed("stdin") && len(args) == 1 && !isTerminal(os.Stdin) {
				fromStdin = true
			}

			var text string
			if fromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			} else {
				text = strings.Join(args[1:], " ")
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("nothing to append")
			}

			seg, err := s.AppendTranscript(p, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appended segment %s to %s\n", seg.ID, p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the segment text from stdin")
	return cmd
}
