package main

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/session"
	"github.com/spf13/cobra"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "View session event logs",
		Long: `View session event logs.

Session logs are NDJSON files written during runs when output.session_log is
enabled. They record the full lifecycle: session start, every scored
iteration, degraded steps, checkpoints, phase results and completion.`,
	}

	cmd.AddCommand(newSessionListCommand())
	cmd.AddCommand(newSessionViewCommand())

	return cmd
}

func newSessionListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded session logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListSessions(absDir)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No session logs found.")
				return nil
			}

			fmt.Fprintf(out, "%s %-8s %s\n", pad("File", 56), "Events", "Modified")
			fmt.Fprintln(out, "─────────────────────────────────────────────────────────────────────────────────")
			for _, f := range files {
				fmt.Fprintf(out, "%s %-8d %s\n", pad(f.Name, 56), f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", filepath.Join(projectconfig.DefaultOutputDir, "sessions"), "Directory to search for session logs")

	return cmd
}

func newSessionViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view <session-file>",
		Short: "View a session timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := session.ReadEvents(args[0])
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}

			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}
}
