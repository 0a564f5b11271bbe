package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/pkg/wavsplit"
)

func NewSplitCmd() *cobra.Command {
	var parts int

	cmd := &cobra.Command{
		Use:   "split <file> [out-dir]",
		Short: "Split a WAV file into equal parts",
		Long: `Split a WAV file into equal-length parts named <name>_part1.wav, <name>_part2.wav
and so on, next to the file or in out-dir.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := ""
			if len(args) == 2 {
				outDir = args[1]
			}
			files, err := wavsplit.Split(args[0], outDir, parts)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&parts, "parts", "n", 2, "Number of parts")
	return withoutService(cmd)
}
