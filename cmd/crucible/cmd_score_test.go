package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flaggedSynthesis = `Here is my assessment:
` + "```json" + `
{"summary": "Solid but thin on logic.",
 "scores": {"logic": 2, "comprehensiveness": 9, "consistency": 9, "evidence": 9, "depth": 9}}
` + "```"

func TestScoreCommand(t *testing.T) {
	configDir, _ := writeProjectConfig(t)

	tests := []struct {
		name     string
		input    string
		args     []string
		wantErr  string
		wantGate bool
		want     []string
	}{
		{
			name:  "red flag from stdin",
			input: flaggedSynthesis,
			args:  []string{"-"},
			want: []string{
				"Final score: 7.44",
				"logic scored 2.0 (threshold 3.0)",
				"PRIORITY: resolve red flags",
			},
		},
		{
			name:  "missing criteria use neutral default",
			input: `{"summary": "s", "scores": {"logic": {"score": 8, "rationale": "tight"}}}`,
			args:  []string{"-"},
			want:  []string{"5.0*", "no score given, neutral default used"},
		},
		{
			name:     "below required grade",
			input:    flaggedSynthesis,
			args:     []string{"-", "--min-grade", "A"},
			wantGate: true,
			wantErr:  "is below required grade A",
		},
		{
			name:    "invalid grade",
			args:    []string{"-", "--min-grade", "Z"},
			wantErr: "invalid grade",
		},
		{
			name:    "contract violation",
			input:   `{"summary": "s", "scores": {}}`,
			args:    []string{"-"},
			wantErr: "contract",
		},
		{
			name:    "unknown mode",
			input:   flaggedSynthesis,
			args:    []string{"-", "--mode", "poetry"},
			wantErr: `no criteria configured for mode "poetry"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newScoreCommand()
			cmd.SetIn(strings.NewReader(tt.input))
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, "--config-dir", configDir))

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var gateErr *QualityGateError
				assert.Equal(t, tt.wantGate, errors.As(err, &gateErr))
				return
			}
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestScoreCommand_ReadsFile(t *testing.T) {
	configDir, _ := writeProjectConfig(t)
	path := filepath.Join(t.TempDir(), "synthesis.json")
	require.NoError(t, os.WriteFile(path, []byte(flaggedSynthesis), 0o644))

	var out bytes.Buffer
	cmd := newScoreCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--config-dir", configDir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Criterion")
	assert.Contains(t, out.String(), "Final score: 7.44")
}

func TestReadInput_Missing(t *testing.T) {
	_, err := readInput(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.json")
}
