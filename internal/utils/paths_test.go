package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		baseDir  string
		expected string
	}{
		{name: "empty stays empty", path: "", baseDir: "/base", expected: ""},
		{name: "absolute cleaned", path: "/abs//out/", baseDir: "/base", expected: "/abs/out"},
		{name: "relative joined", path: ".crucible/cache", baseDir: "/proj", expected: "/proj/.crucible/cache"},
		{name: "parent reference", path: "../shared", baseDir: "/proj/sub", expected: "/proj/shared"},
		{name: "home expanded", path: "~/crucible", baseDir: "/proj", expected: filepath.Join(home, "crucible")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.expected), ResolvePath(tt.path, tt.baseDir))
		})
	}
}
