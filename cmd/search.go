package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewSearchCmd(svc **service.Service) *cobra.Command {
	var (
		within     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search transcripts",
		Long: `Full-text search over every transcript segment.

Examples:
  convo search budget
  convo search "release date" --in Work`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			query := strings.Join(args, " ")

			opts := []service.SearchOption{service.WithLimit(limit)}
			if within != "" {
				opts = append(opts, service.InConversation(models.ParsePath(within)))
			}
			results, err := s.Search(query, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return outputJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No matches for %q\n", query)
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s  %s\n    %s\n", r.Conversation, r.Time.Format("2006-01-02 15:04"), r.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&within, "in", "", "Only search below this path")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	return cmd
}
