package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewNewCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <path> | new <parent-path> <name>",
		Short: "Create a conversation",
		Long: `Create a conversation. Its transcript starts out empty.

Examples:
  convo new Inbox               # Top-level conversation
  convo new Work/Standup        # Conversation inside the Work folder
  convo new Work "Design review"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			parent, name := splitTarget(args)
			if err := s.CreateConversation(parent, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created conversation %s\n", parent.Join(name))
			return nil
		},
	}
	return cmd
}
