package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crucible",
		Short: "Crucible - iterative multi-agent refinement of analyses and ideas",
		Long: `Crucible refines an analysis of a topic, and then a set of business ideas
built on it, through repeated rounds of generation, critique, adversarial
attack, external validation and scoring.

Each loop stops when the work reaches the quality threshold, runs out of
iterations, or a checkpoint decides to stop.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	logFile := cmd.PersistentFlags().String("log-file", "", "Write structured JSON logs to this file (rotated)")

	var rotator *lumberjack.Logger
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if *debugLogging {
			level = slog.LevelDebug
		}
		if *logFile == "" {
			slog.SetLogLoggerLevel(level)
			return
		}
		rotator = &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level})))
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if rotator != nil {
			_ = rotator.Close()
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newSessionCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
