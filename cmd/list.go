package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewListCmd(svc **service.Service) *cobra.Command {
	var (
		sortBy string
		format string
		depth  int
	)

	cmd := &cobra.Command{
		Use:     "list [path]",
		Aliases: []string{"ls"},
		Short:   "List folders and conversations",
		Long: `List the hierarchy below a folder, most recently modified first.

Examples:
  convo list                  # Everything
  convo list Work --depth 1   # Direct children of Work
  convo ls --sort name --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			order := hierarchy.SortOrder(sortBy)
			switch order {
			case hierarchy.SortModified, hierarchy.SortName, hierarchy.SortInsertion:
			default:
				return fmt.Errorf("unknown sort order %q (use modified, name or insertion)", sortBy)
			}

			var p models.Path
			if len(args) == 1 {
				p = models.ParsePath(args[0])
			}
			tree, err := s.Tree(p, order, depth)
			if err != nil {
				return err
			}

			entries := tree.Children
			if tree.Kind == models.KindConversation {
				entries = []*models.Entry{tree}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return outputJSON(out, entries)
			case "yaml":
				return outputYAML(out, entries)
			case "table":
				if len(entries) == 0 {
					fmt.Fprintln(out, "Nothing here yet. Create a conversation with `convo new <name>`.")
					return nil
				}
				current, _ := s.Current()
				printTree(out, entries, current)
				return nil
			default:
				return fmt.Errorf("unknown format %q (use table, json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", string(hierarchy.SortModified), "Sort siblings by modified, name or insertion")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	cmd.Flags().IntVar(&depth, "depth", 0, "Levels to expand (0 for all)")
	return cmd
}

func printTree(out io.Writer, entries []*models.Entry, current models.Path) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tKIND\tSEGMENTS\tMODIFIED")
	fmt.Fprintln(w, "----\t----\t--------\t--------")

	var walk func(entries []*models.Entry, level int)
	walk = func(entries []*models.Entry, level int) {
		for _, e := range entries {
			name := strings.Repeat("  ", level) + e.Name
			segments := "-"
			if e.Kind == models.KindFolder {
				name += "/"
			} else {
				segments = fmt.Sprintf("%d", e.Segments)
				if current != nil && e.Path.Equal(current) {
					name += " *"
				}
			}
			modified := "never"
			if !e.ModifiedAt.IsZero() {
				modified = humanize.Time(e.ModifiedAt)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, e.Kind, segments, modified)
			walk(e.Children, level+1)
		}
	}
	walk(entries, 0)

	w.Flush()
}

func outputJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputYAML(out io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(v)
}
