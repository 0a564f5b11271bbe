package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewDeleteCmd(svc **service.Service) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <path>",
		Aliases: []string{"rm"},
		Short:   "Delete a folder or conversation",
		Long: `Delete a folder or conversation together with everything beneath it,
including transcripts and recordings. This cannot be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])
			if _, ok := s.Store.Resolve(p); !ok || p.IsRoot() {
				return &hierarchy.OpError{Op: "delete", Path: p.String(), Err: hierarchy.ErrInvalidPath}
			}

			if !yes {
				if !isTerminal(os.Stdin) {
					return fmt.Errorf("refusing to delete %s without --yes", p)
				}
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s and all of its transcripts?", p)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			if err := s.Delete(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", p)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
