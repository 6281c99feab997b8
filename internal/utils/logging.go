package utils

import (
	"context"
	"log/slog"

	"github.com/spboyer/crucible/internal/execution"
)

// ResponseToSlog logs a model response at debug level. Output text is only
// included when it is short enough to stay readable in a log line.
func ResponseToSlog(role string, resp *execution.ExecutionResponse) {
	if resp == nil || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"role", role,
		"durationMs", resp.DurationMs,
	}

	attrs = addIf(attrs, "model", resp.ModelID)
	attrs = addIf(attrs, "promptTokens", resp.PromptTokens)
	attrs = addIf(attrs, "completionTokens", resp.CompletionTokens)
	attrs = addIf(attrs, "attempts", resp.Attempts)
	attrs = addIf(attrs, "error", resp.ErrorMsg)
	if len(resp.FinalOutput) <= maxLoggedOutput {
		attrs = addIf(attrs, "output", resp.FinalOutput)
	} else {
		attrs = append(attrs, "outputBytes", len(resp.FinalOutput))
	}

	slog.Debug("Response received", attrs...)
}

const maxLoggedOutput = 512

func addIf[T comparable](attrs []any, name string, v T) []any {
	var zero T
	if v != zero {
		attrs = append(attrs, name, v)
	}

	return attrs
}
