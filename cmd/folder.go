package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewFolderCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder <path> | folder <parent-path> <name>",
		Aliases: []string{"mkdir"},
		Short:   "Create a folder",
		Long: `Create an empty folder.

Examples:
  convo folder Work            # Top-level folder
  convo folder Work/Meetings   # Folder inside Work
  convo folder Work Meetings   # Same, with parent and name apart`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			parent, name := splitTarget(args)
			if err := s.CreateFolder(parent, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created folder %s\n", parent.Join(name))
			return nil
		},
	}
	return cmd
}
