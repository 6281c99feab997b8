package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/crucible/internal/models"
)

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// pad right-pads s to width terminal cells.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// printSummary writes the headline results of a finished session.
func printSummary(w io.Writer, s *models.Session) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w, " SESSION RESULTS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	d := s.Deliverables
	if d == nil {
		fmt.Fprintf(w, "Session %s has no deliverables.\n", s.ID)
		return
	}

	fmt.Fprintf(w, "Session:        %s\n", s.ID)
	fmt.Fprintf(w, "Topic:          %s\n", s.Topic)
	fmt.Fprintf(w, "Checkpoints:    %d\n", d.Summary.Checkpoints)
	fmt.Fprintf(w, "Degraded steps: %d\n", d.Summary.DegradedSteps)
	fmt.Fprintf(w, "Duration:       %s\n", formatDuration(d.Summary.EndedAt.Sub(d.Summary.StartedAt)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %s %s %s %s\n", pad("Phase", 10), pad("Score", 7), pad("Grade", 6), pad("Best", 8), "Stop reason")
	fmt.Fprintln(w, "─"+strings.Repeat("─", 50))
	for _, row := range []struct {
		name string
		res  *models.PhaseResult
	}{
		{"Analysis", d.Analysis},
		{"Ideas", d.Ideas},
	} {
		if row.res == nil {
			fmt.Fprintf(w, "%s %s\n", pad(row.name, 10), "skipped")
			continue
		}
		best := fmt.Sprintf("%d/%d", row.res.BestIteration, row.res.Iterations)
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			pad(row.name, 10),
			pad(fmt.Sprintf("%.2f", row.res.FinalScore), 7),
			pad(row.res.Grade, 6),
			pad(best, 8),
			row.res.StopReason)
	}

	if len(d.Recommendations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recommendations:")
		for _, r := range d.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}
	fmt.Fprintln(w)
}

// FormatMarkdownReport formats a session as a markdown document holding the
// carried-forward artifacts and their scores.
func FormatMarkdownReport(s *models.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 🔥 Crucible: %s\n\n", s.Topic)

	d := s.Deliverables
	if d == nil {
		b.WriteString("_Session did not finish._\n")
		return b.String()
	}

	duration := d.Summary.EndedAt.Sub(d.Summary.StartedAt)
	fmt.Fprintf(&b, "**Session:** `%s` | **Duration:** %s | **Checkpoints:** %d | **Degraded steps:** %d\n\n",
		s.ID, formatDuration(duration), d.Summary.Checkpoints, d.Summary.DegradedSteps)

	b.WriteString("| Phase | Score | Grade | Best iteration | Stop reason |\n")
	b.WriteString("|-------|-------|-------|----------------|-------------|\n")
	writeMarkdownRow(&b, "Analysis", d.Analysis)
	writeMarkdownRow(&b, "Ideas", d.Ideas)
	b.WriteString("\n")

	if d.Analysis != nil {
		b.WriteString("## Analysis\n\n")
		writeRedFlags(&b, d.Analysis.RedFlags)
		b.WriteString(strings.TrimSpace(d.Analysis.Artifact))
		b.WriteString("\n\n")
	}
	if d.Ideas != nil {
		b.WriteString("## Ideas\n\n")
		writeRedFlags(&b, d.Ideas.RedFlags)
		b.WriteString(strings.TrimSpace(d.Ideas.Artifact))
		b.WriteString("\n\n")
	}

	if div := d.Diversity; div != nil && div.CandidateCount > 1 {
		b.WriteString("## Diversity\n\n")
		fmt.Fprintf(&b, "- **Score:** %.2f across %d ideas\n", div.DiversityScore, div.CandidateCount)
		fmt.Fprintf(&b, "- **Unique audiences / business models / technologies:** %d / %d / %d\n",
			div.UniqueAudiences, div.UniqueBusinessModels, div.UniqueTechnologies)
		for _, dup := range div.Duplicates {
			fmt.Fprintf(&b, "- ⚠️ Near-duplicate: %q and %q (%.2f)\n", dup.First, dup.Second, dup.Similarity)
		}
		b.WriteString("\n")
	}

	if len(d.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, r := range d.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeMarkdownRow(b *strings.Builder, name string, res *models.PhaseResult) {
	if res == nil {
		fmt.Fprintf(b, "| %s | - | - | - | skipped |\n", name)
		return
	}
	icon := "✅"
	if res.StopReason != models.ReasonQualityAchieved {
		icon = "⚠️"
	}
	fmt.Fprintf(b, "| %s | %.2f | %s | %d of %d | %s %s |\n",
		name, res.FinalScore, res.Grade, res.BestIteration, res.Iterations, icon, res.StopReason)
}

func writeRedFlags(b *strings.Builder, flags []models.RedFlag) {
	if len(flags) == 0 {
		return
	}
	b.WriteString("> **Unresolved red flags:**")
	for _, f := range flags {
		fmt.Fprintf(b, " %s (%s, %.1f);", f.Criterion, f.Severity, f.Score)
	}
	b.WriteString("\n\n")
}
