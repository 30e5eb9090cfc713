package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localcue/dictate/internal/config"
)

var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:   "dictated",
	Short: "Privacy-first push-to-talk dictation backend",
	Long: `dictated hosts the capture, privacy-guard, model, hardware and
transcription components behind a single CLI, standing in for a GUI
front-end shell.`,
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDir, err := config.DataDir("dictated")
	if err != nil {
		defaultDir = ""
	}
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", defaultDir,
		"application data directory (config.toml, models/, logs/)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(hardwareCmd)
	rootCmd.AddCommand(configCmd)
}
