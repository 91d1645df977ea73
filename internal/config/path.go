package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves $VAR references and a leading ~ against the user's home.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
