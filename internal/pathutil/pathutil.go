package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultStateDir = "~/.tether"

// ExpandHomePath expands a leading "~" to the current user's home directory.
func ExpandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func ResolveStateDir(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultStateDir
	}
	return filepath.Clean(ExpandHomePath(raw))
}

func ResolveStateFile(stateDir, filename string) string {
	return filepath.Join(ResolveStateDir(stateDir), filename)
}

func ResolveStateChildDir(stateDir, childName, fallback string) string {
	childName = strings.TrimSpace(childName)
	if childName == "" {
		childName = fallback
	}
	if filepath.IsAbs(childName) {
		return filepath.Clean(childName)
	}
	return filepath.Join(ResolveStateDir(stateDir), childName)
}
