package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/spboyer/crucible/internal/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	return &buf
}

func TestResponseToSlogDebugDisabled(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	ResponseToSlog("primary", &execution.ExecutionResponse{FinalOutput: "hello"})
	assert.Equal(t, 0, buf.Len())
}

func TestResponseToSlogNil(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	ResponseToSlog("primary", nil)
	assert.Equal(t, 0, buf.Len())
}

func TestResponseToSlogDebugEnabled(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	ResponseToSlog("critic", &execution.ExecutionResponse{
		FinalOutput:  "looks thin",
		ModelID:      "gpt-4o-mini",
		DurationMs:   120,
		PromptTokens: 42,
		Attempts:     2,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "Response received", entry["msg"])
	assert.Equal(t, "critic", entry["role"])
	assert.Equal(t, "gpt-4o-mini", entry["model"])
	assert.Equal(t, "looks thin", entry["output"])
	assert.Equal(t, float64(42), entry["promptTokens"])
	assert.Equal(t, float64(2), entry["attempts"])
	assert.NotContains(t, entry, "completionTokens")
	assert.NotContains(t, entry, "error")
}

func TestResponseToSlogLongOutput(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	ResponseToSlog("primary", &execution.ExecutionResponse{FinalOutput: strings.Repeat("x", 600)})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "output")
	assert.Equal(t, float64(600), entry["outputBytes"])
}
