package hooks

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/spboyer/crucible/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHook(t *testing.T) {
	// Determine a portable true/false command
	trueCmd := "true"
	falseCmd := "false"
	if runtime.GOOS == "windows" {
		trueCmd = "cmd /c exit 0"
		falseCmd = "cmd /c exit 1"
	}

	tests := []struct {
		name      string
		hook      HookConfig
		wantErr   bool
		errSubstr string
	}{
		{
			name: "happy path - command succeeds",
			hook: HookConfig{Command: trueCmd},
		},
		{
			name:      "empty command returns error",
			hook:      HookConfig{Command: ""},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:      "whitespace-only command returns error",
			hook:      HookConfig{Command: "   "},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:    "non-zero exit with error_on_fail true returns error",
			hook:    HookConfig{Command: falseCmd, ErrorOnFail: true},
			wantErr: true,
		},
		{
			name: "non-zero exit with error_on_fail false continues",
			hook: HookConfig{Command: falseCmd},
		},
		{
			name: "custom acceptable exit codes",
			hook: HookConfig{Command: falseCmd, ExitCodes: []int{1}, ErrorOnFail: true},
		},
		{
			name:      "bad template returns error",
			hook:      HookConfig{Command: "echo {{.Nope}}"},
			wantErr:   true,
			errSubstr: "template",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Runner{}
			err := r.runHook(context.Background(), "test", 0, tc.hook, nil)

			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.errSubstr != "" {
				assert.Contains(t, err.Error(), tc.errSubstr)
			}
		})
	}
}

func TestRenderArgs_KeepsTopicAsOneArgument(t *testing.T) {
	args, err := renderArgs(
		HookConfig{Command: "notify --topic {{.Topic}} --channel {{.Vars.channel}}", Vars: map[string]string{"channel": "research"}},
		&template.Context{Topic: "urban beekeeping"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"notify", "--topic", "urban beekeeping", "--channel", "research"}, args)
}

func TestExecute_WritesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo is a shell builtin on windows")
	}

	var out bytes.Buffer
	r := &Runner{Output: &out}
	err := r.Execute(context.Background(), "after_session", []HookConfig{
		{Command: "echo {{.SessionID}} {{.Status}}"},
	}, &template.Context{SessionID: "sess-1", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "[hook:after_session] sess-1 completed\n", out.String())
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	r := &Runner{}
	err := r.Execute(ctx, "test", []HookConfig{{Command: "echo hello"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestExecute_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond) // ensure timeout fires

	r := &Runner{}
	err := r.Execute(ctx, "test", []HookConfig{{Command: "echo hello"}}, nil)
	assert.Error(t, err)
}
