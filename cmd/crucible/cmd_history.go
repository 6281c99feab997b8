package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/reporting"
	"github.com/spboyer/crucible/internal/store"
	"github.com/spf13/cobra"
)

const historyFile = "history.db"

func newHistoryCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past sessions",
		Long: `Browse sessions recorded in the history database.

Every session is recorded when it completes or fails, with its per-iteration
scores and decisions. The database lives in the output directory.`,
	}

	cmd.PersistentFlags().StringVar(&dir, "dir", projectconfig.DefaultOutputDir, "Output directory holding the history database")

	cmd.AddCommand(newHistoryListCommand(&dir))
	cmd.AddCommand(newHistoryShowCommand(&dir))

	return cmd
}

func openHistory(dir string) (*store.Store, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(filepath.Join(absDir, historyFile))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return st, nil
}

func newHistoryListCommand(dir *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHistory(*dir)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			rows, err := st.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printSessionRows(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")

	return cmd
}

func printSessionRows(w io.Writer, rows []store.SessionRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	fmt.Fprintf(w, "%s %s %s %s %s %s\n",
		pad("Session", 10), pad("Started", 17), pad("Status", 10), pad("Analysis", 9), pad("Ideas", 6), "Topic")
	fmt.Fprintln(w, "─"+strings.Repeat("─", 70))
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s %s %s %s %s\n",
			pad(r.ID, 10),
			pad(r.StartedAt.Local().Format("2006-01-02 15:04"), 17),
			pad(r.Status, 10),
			pad(fmt.Sprintf("%.2f", r.AnalysisScore), 9),
			pad(fmt.Sprintf("%.2f", r.IdeasScore), 6),
			r.Topic)
	}
}

func newHistoryShowCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the iterations and results of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHistory(*dir)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			return showSession(cmd.Context(), cmd.OutOrStdout(), st, args[0])
		},
	}
}

func showSession(ctx context.Context, w io.Writer, st *store.Store, id string) error {
	row, err := st.GetSession(ctx, id)
	if err != nil {
		return err
	}
	its, err := st.Iterations(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Session:  %s\n", row.ID)
	fmt.Fprintf(w, "Topic:    %s\n", row.Topic)
	fmt.Fprintf(w, "Model:    %s\n", row.Model)
	fmt.Fprintf(w, "Status:   %s\n", row.Status)
	if row.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", row.Error)
	}
	fmt.Fprintf(w, "Started:  %s\n", row.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !row.CompletedAt.IsZero() {
		fmt.Fprintf(w, "Duration: %s\n", formatDuration(row.CompletedAt.Sub(row.StartedAt)))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %s %s %s %s %s\n",
		pad("Phase", 14), pad("#", 3), pad("Score", 6), pad("Grade", 6), pad("Flags", 6), "Decision")
	fmt.Fprintln(w, "─"+strings.Repeat("─", 60))
	for _, it := range its {
		decision := fmt.Sprintf("%s (%s)", it.Action, it.Reason)
		if len(it.Degraded) > 0 {
			decision += "  ⚠ " + strings.Join(it.Degraded, ",")
		}
		fmt.Fprintf(w, "%s %s %s %s %s %s\n",
			pad(string(it.Phase), 14),
			pad(fmt.Sprintf("%d", it.Iteration), 3),
			pad(fmt.Sprintf("%.2f", it.FinalScore), 6),
			pad(it.Grade, 6),
			pad(fmt.Sprintf("%d", it.RedFlags), 6),
			decision)
	}

	d, err := st.Deliverables(ctx, id)
	if err != nil {
		return err
	}
	if d != nil && len(d.Recommendations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recommendations:")
		for _, r := range d.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
		if d.Analysis != nil {
			fmt.Fprintf(w, "\nAnalysis: %s\n", reporting.InterpretScore(d.Analysis.FinalScore))
		}
		if d.Ideas != nil {
			fmt.Fprintf(w, "Ideas:    %s\n", reporting.InterpretScore(d.Ideas.FinalScore))
		}
	}
	return nil
}
