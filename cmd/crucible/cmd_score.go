package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spboyer/crucible/internal/agents"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spboyer/crucible/internal/scoring"
	"github.com/spf13/cobra"
)

func newScoreCommand() *cobra.Command {
	var (
		mode      string
		configDir string
		minGrade  string
	)

	cmd := &cobra.Command{
		Use:   "score <synthesis.json|->",
		Short: "Score a synthesizer assessment against the configured criteria",
		Long: `Score a synthesizer assessment against the configured criteria.

The input is the JSON object a synthesizer returns: a summary plus a score
(1-10) and rationale per criterion. Missing criteria fall back to a neutral
score. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold scoring.Grade
			if minGrade != "" {
				g, err := scoring.ParseGrade(minGrade)
				if err != nil {
					return err
				}
				threshold = g
			}

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := projectconfig.Load(configDir)
			if err != nil {
				return err
			}
			engine, err := scoring.NewEngineFromConfig(cfg)
			if err != nil {
				return err
			}

			synthesis, err := agents.ParseSynthesis(string(data))
			if err != nil {
				return err
			}
			score, err := engine.Score(models.Mode(mode), synthesis.RawScores(), synthesis.Notes())
			if err != nil {
				return err
			}

			printScore(cmd.OutOrStdout(), score)

			if threshold != "" && !scoring.Grade(score.Grade).AtLeast(threshold) {
				return &QualityGateError{
					Message: fmt.Sprintf("grade %s is below required grade %s", score.Grade, threshold),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(models.ModeAnalysis), "Criteria set: analysis or ideas")
	cmd.Flags().StringVar(&configDir, "config-dir", ".", "Directory to start searching for .crucible.yaml")
	cmd.Flags().StringVar(&minGrade, "min-grade", "", "Exit with code 1 when the grade is below this (e.g. B+)")

	return cmd
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func printScore(w io.Writer, score *models.CompositeScore) {
	fmt.Fprintf(w, "%s %s %s %s\n", pad("Criterion", 24), pad("Raw", 6), pad("Weight", 7), "Weighted")
	fmt.Fprintln(w, "─"+strings.Repeat("─", 50))
	for _, s := range score.Scores {
		raw := fmt.Sprintf("%.1f", s.RawScore)
		if s.Defaulted {
			raw += "*"
		}
		fmt.Fprintf(w, "%s %s %s %.2f\n",
			pad(s.Criterion, 24),
			pad(raw, 6),
			pad(fmt.Sprintf("%.1f", s.Weight), 7),
			s.WeightedScore)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Final score: %.2f (%s)\n", score.FinalScore, score.Grade)

	for _, f := range score.RedFlags {
		fmt.Fprintf(w, "  ✗ [%s] %s scored %.1f (threshold %.1f)\n", strings.ToUpper(string(f.Severity)), f.Criterion, f.Score, f.Threshold)
	}
	for _, s := range score.Scores {
		if s.Defaulted {
			fmt.Fprintln(w, "  * no score given, neutral default used")
			break
		}
	}

	if suggestions := scoring.Suggestions(score); len(suggestions) > 0 {
		fmt.Fprintln(w)
		for _, line := range suggestions {
			fmt.Fprintln(w, line)
		}
	}
}
