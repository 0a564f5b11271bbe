package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/hierarchy"
	"github.com/mattsolo1/grove-convo/pkg/models"
	"github.com/mattsolo1/grove-convo/pkg/recorder"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

const noServiceAnnotation = "convo/no-service"

// NeedsService reports whether cmd runs against the service. Commands that only touch
// files passed on the command line opt out.
func NeedsService(cmd *cobra.Command) bool {
	_, skip := cmd.Annotations[noServiceAnnotation]
	return !skip
}

func withoutService(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[noServiceAnnotation] = "true"
	return cmd
}

var hints = []struct {
	err  error
	hint string
}{
	{hierarchy.ErrNameConflict, "choose a name not used by a sibling"},
	{hierarchy.ErrInvalidPath, "run `convo list` to see existing paths"},
	{hierarchy.ErrNotFolder, "the parent must be a folder"},
	{hierarchy.ErrNotConversation, "transcripts belong to conversations, not folders"},
	{hierarchy.ErrArtifactConflict, "another conversation already uses the same transcript directory"},
	{service.ErrNoAudioInput, "no microphone is available"},
	{recorder.ErrRecording, "stop the current recording first"},
}

// Describe turns err into a message for the terminal.
func Describe(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return fmt.Sprintf("%v (%s)", err, h.hint)
		}
	}
	return err.Error()
}

// splitTarget reads "<parent> <name>" or a single "<parent>/<name>" path.
func splitTarget(args []string) (models.Path, string) {
	if len(args) == 2 {
		return models.ParsePath(args[0]), args[1]
	}
	p := models.ParsePath(args[0])
	return p.Parent(), p.Base()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// confirm asks a yes/no question on the terminal. The default is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
