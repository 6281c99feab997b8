package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spboyer/crucible/internal/template"
)

// HookConfig defines a single hook command. Each whitespace-separated
// argument is rendered as a template, so a multi-word topic stays one
// argument.
type HookConfig struct {
	Command          string            `yaml:"command" validate:"required"`
	WorkingDirectory string            `yaml:"working_directory,omitempty"`
	ExitCodes        []int             `yaml:"exit_codes,omitempty"`
	ErrorOnFail      bool              `yaml:"error_on_fail,omitempty"`
	Vars             map[string]string `yaml:"vars,omitempty"`
}

// HooksConfig holds the session lifecycle hooks.
type HooksConfig struct {
	BeforeSession []HookConfig `yaml:"before_session,omitempty" validate:"dive"`
	AfterSession  []HookConfig `yaml:"after_session,omitempty" validate:"dive"`
}

// Runner executes hook commands at lifecycle points.
type Runner struct {
	// Output receives hook command output when set.
	Output io.Writer
}

// Execute runs all hooks for a given lifecycle point.
// name identifies the lifecycle point (e.g. "after_session") for logging and error context.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig, vars *template.Context) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}

		if err := r.runHook(ctx, name, i, h, vars); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig, vars *template.Context) error {
	parts, err := renderArgs(h, vars)
	if err != nil {
		return fmt.Errorf("hook %s[%d]: %w", name, index, err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	//nolint:gosec // hook commands come from the user's own .crucible.yaml
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}

	output, err := cmd.CombinedOutput()

	if r.Output != nil && len(output) > 0 {
		fmt.Fprintf(r.Output, "[hook:%s] %s\n", name, strings.TrimRight(string(output), "\n"))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			exitCode := exitErr.ExitCode()

			if !isAcceptableExit(exitCode, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
				}
				slog.Warn("Hook exited with unexpected code, continuing", "hook", name, "index", index, "code", exitCode)
			}
		} else {
			// Non-exit error (e.g. command not found)
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			slog.Warn("Hook failed, continuing", "hook", name, "index", index, "error", err)
		}
		return nil
	}

	// err == nil means exit code 0; verify 0 is acceptable
	if !isAcceptableExit(0, h.ExitCodes) {
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: command exited with code 0 but expected %v", name, index, h.ExitCodes)
		}
		slog.Warn("Hook exited with code 0 but other codes were expected, continuing", "hook", name, "index", index, "expected", h.ExitCodes)
	}

	return nil
}

// renderArgs splits the command and renders every argument with the
// session variables and the hook's own Vars.
func renderArgs(h HookConfig, vars *template.Context) ([]string, error) {
	fields := strings.Fields(h.Command)
	if len(fields) == 0 {
		return nil, nil
	}

	tctx := template.Context{}
	if vars != nil {
		tctx = *vars
	}
	tctx.Vars = h.Vars

	args := make([]string, 0, len(fields))
	for _, f := range fields {
		arg, err := template.Render(f, &tctx)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

// isAcceptableExit checks whether exitCode is in the allowed list.
// An empty allowedCodes list defaults to allowing only exit code 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	if len(allowedCodes) == 0 {
		return exitCode == 0
	}
	for _, code := range allowedCodes {
		if exitCode == code {
			return true
		}
	}
	return false
}
