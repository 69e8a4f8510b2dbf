package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice hosts trees of lifecycle-managed modules",
	Long: `Lattice assembles a tree of modules from a manifest and manages their
shared lifecycle: load, suspend, resume and negotiated unload.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("manifest", "f", "lattice.yaml", "Path to the module manifest")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func setupLogger(cmd *cobra.Command) *slog.Logger {
	raw, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		level = slog.LevelInfo
	}

	logger := logging.New(level)
	slog.SetDefault(logger)
	return logger
}
