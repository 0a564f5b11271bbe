package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewRenameCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rename <path> <new-name>",
		Aliases: []string{"mv"},
		Short:   "Rename a folder or conversation",
		Long: `Rename a folder or conversation in place. Transcripts and recordings move
with it, including those of every conversation inside a renamed folder.

Examples:
  convo rename Work/Standup DailySync
  convo mv Work Office`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])
			if err := s.Rename(p, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", p, p.Parent().Join(models.NormalizeName(args[1])))
			return nil
		},
	}
	return cmd
}
