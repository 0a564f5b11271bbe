package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func NewRecordCmd(svc **service.Service) *cobra.Command {
	var (
		duration     time.Duration
		noTranscribe bool
	)

	cmd := &cobra.Command{
		Use:   "record <path>",
		Short: "Record audio into a conversation",
		Long: `Record from the default microphone until Ctrl-C, then transcribe the recording
into a new segment. Audio is written in fixed-length chunks as it is captured, so an
interrupted transcription can be resumed with "convo transcribe <path>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			p := models.ParsePath(args[0])
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			rec, err := s.StartRecording(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recording %s. Press Ctrl-C to stop.\n", p)

			err = rec.Wait()
			stop()
			fmt.Fprintf(out, "Stopped, %d chunk(s) written\n", len(rec.Chunks()))
			if err != nil {
				return err
			}
			if noTranscribe {
				return nil
			}
			return transcribePending(cmd.Context(), s, p, out)
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (default: until Ctrl-C)")
	cmd.Flags().BoolVar(&noTranscribe, "no-transcribe", false, "Keep the chunks without transcribing them")
	return cmd
}

func transcribePending(ctx context.Context, s *service.Service, p models.Path, out io.Writer) error {
	fmt.Fprintln(out, "Transcribing...")
	res, err := s.TranscribePending(ctx, p)
	if errors.Is(err, service.ErrNothingPending) {
		fmt.Fprintln(out, "Nothing to transcribe")
		return nil
	}
	if res != nil && res.Transcribed > 0 {
		fmt.Fprintf(out, "Transcribed %d chunk(s) into %s\n", res.Transcribed, p)
	}
	if err != nil {
		if res != nil && len(res.Remaining) > 0 {
			fmt.Fprintf(out, "%d chunk(s) kept for retry with `convo transcribe %s`\n", len(res.Remaining), p)
		}
		return err
	}
	return nil
}
