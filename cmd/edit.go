package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
	"github.com/mattsolo1/grove-convo/pkg/transcript"
)

func NewEditCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <path>",
		Short: "Edit a transcript in $EDITOR",
		Long: `Open the whole transcript of a conversation in your editor.

Each segment is a block headed by "### <id>". Edit the text under a header to change
that segment, delete a block to delete the segment, and start a block with "### new"
to add one. Saving an unchanged file changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])
			segments, err := s.Segments(p)
			if err != nil {
				return err
			}

			original := transcript.FormatBulk(segments)
			f, err := os.CreateTemp("", "convo-edit-*.md")
			if err != nil {
				return fmt.Errorf("create edit file: %w", err)
			}
			defer os.Remove(f.Name())
			if _, err := f.WriteString(original); err != nil {
				f.Close()
				return fmt.Errorf("write edit file: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write edit file: %w", err)
			}

			if err := openInEditor(s.Config.Editor, f.Name()); err != nil {
				return err
			}

			data, err := os.ReadFile(f.Name())
			if err != nil {
				return fmt.Errorf("read edit file: %w", err)
			}
			if string(data) == original {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes")
				return nil
			}

			edited, err := transcript.ParseBulk(strings.NewReader(string(data)))
			if err != nil {
				return err
			}
			edited = transcript.RestoreUnchanged(segments, edited)
			saved, err := s.SaveSegments(p, edited)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d segment(s) to %s\n", len(saved), p)
			return nil
		},
	}
	return cmd
}

func openInEditor(editor, file string) error {
	if editor == "" {
		editor = "vi"
	}
	// $EDITOR may carry arguments, e.g. "code --wait".
	fields := strings.Fields(editor)
	c := exec.Command(fields[0], append(fields[1:], file)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("run editor %s: %w", fields[0], err)
	}
	return nil
}
