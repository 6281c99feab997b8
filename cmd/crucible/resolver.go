package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/crucible/internal/models"
	"github.com/spboyer/crucible/internal/orchestration"
	"golang.org/x/term"
)

// promptResolver asks the user to arbitrate a checkpoint.
type promptResolver struct {
	in  io.Reader
	out io.Writer
}

func (p promptResolver) Resolve(ctx context.Context, req orchestration.CheckpointRequest) (models.Action, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	choice := string(models.ActionContinue)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Checkpoint in %s, iteration %d", req.Phase, req.Iteration)).
				Description(checkpointDescription(req)).
				Options(
					huh.NewOption("Continue refining", string(models.ActionContinue)),
					huh.NewOption("Stop and keep this iteration", string(models.ActionStop)),
				).
				Value(&choice),
		),
	)
	if p.in != nil {
		form = form.WithInput(p.in)
	}
	if p.out != nil {
		form = form.WithOutput(p.out)
	}
	if f, ok := p.in.(*os.File); p.in != nil && (!ok || !term.IsTerminal(int(f.Fd()))) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("checkpoint prompt failed: %w", err)
	}
	return models.Action(choice), nil
}

// checkpointDescription summarises why the loop paused.
func checkpointDescription(req orchestration.CheckpointRequest) string {
	var b strings.Builder
	score := 0.0
	flags := 0
	if req.Score != nil {
		score = req.Score.FinalScore
		flags = len(req.Score.RedFlags)
	}
	fmt.Fprintf(&b, "Score %.2f with %d red flag(s).", score, flags)
	if info := req.Decision.Checkpoint; info != nil {
		fmt.Fprintf(&b, "\n%s.", info.Situation)
		if info.Recommendation != "" {
			fmt.Fprintf(&b, " Recommended: %s.", info.Recommendation)
		}
	} else if req.Decision.Reasoning != "" {
		fmt.Fprintf(&b, "\n%s", req.Decision.Reasoning)
	}
	return b.String()
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
