package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath resolves path against baseDir. Absolute paths are returned
// cleaned, a leading "~/" expands to the home directory, and an empty path
// stays empty.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
