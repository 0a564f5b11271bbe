package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewTranscribeCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <path> [file]",
		Short: "Transcribe recordings into a conversation",
		Long: `Without a file, transcribe the recorded chunks still waiting in the conversation.
With a file, transcribe that audio file into a new segment and leave the file alone.
Files over the upload limit are split before they are sent.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])
			if len(args) == 1 {
				return transcribePending(cmd.Context(), s, p, cmd.OutOrStdout())
			}

			seg, err := s.TranscribeFile(cmd.Context(), p, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appended segment %s to %s\n", seg.ID, p)
			return nil
		},
	}
	return cmd
}
