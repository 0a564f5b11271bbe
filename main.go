package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-convo/cmd"
	"github.com/mattsolo1/grove-convo/cmd/config"
	"github.com/mattsolo1/grove-convo/pkg/recorder/portaudio"
	"github.com/mattsolo1/grove-convo/pkg/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cmd.Describe(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var svc *service.Service

	rootCmd := &cobra.Command{
		Use:           "convo",
		Short:         "Record, transcribe and organize conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddGlobalFlags(rootCmd)
	cobra.OnInitialize(config.InitConfig)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand
		if !cmd.NeedsService(c) {
			return nil
		}
		logger := config.NewLogger()

		var err error
		svc, err = config.InitService(logger, service.WithAudioSource(portaudio.NewSource()))
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(c *cobra.Command, args []string) error {
		if svc != nil {
			return svc.Close()
		}
		return nil
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewFolderCmd(&svc))
	rootCmd.AddCommand(cmd.NewNewCmd(&svc))
	rootCmd.AddCommand(cmd.NewRenameCmd(&svc))
	rootCmd.AddCommand(cmd.NewDeleteCmd(&svc))
	rootCmd.AddCommand(cmd.NewListCmd(&svc))
	rootCmd.AddCommand(cmd.NewShowCmd(&svc))
	rootCmd.AddCommand(cmd.NewAppendCmd(&svc))
	rootCmd.AddCommand(cmd.NewEditCmd(&svc))
	rootCmd.AddCommand(cmd.NewRecordCmd(&svc))
	rootCmd.AddCommand(cmd.NewTranscribeCmd(&svc))
	rootCmd.AddCommand(cmd.NewSplitCmd())
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc))
	rootCmd.AddCommand(cmd.NewReindexCmd(&svc))
	rootCmd.AddCommand(cmd.NewTuiCmd(&svc))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	return rootCmd
}
