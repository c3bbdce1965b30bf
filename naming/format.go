// Package naming generates and persists platform thread names for
// sessions, keeping them unique per platform across restarts.
package naming

import (
	"strings"
	"unicode"
)

// maxNameLen caps thread names at the tightest platform limit so the same
// name is usable on every platform.
const maxNameLen = 64

var runnerDisplayNames = map[string]string{
	"claude-subprocess": "Claude",
	"claude-local":      "Claude",
	"claude":            "Claude",
	"codex":             "Codex",
	"pi":                "Pi",
	"litellm":           "LiteLLM",
	"opencode":          "OpenCode",
}

var adapterToRunner = map[string]string{
	"claude_auto":       "claude",
	"claude_subprocess": "claude",
	"codex_sdk_sidecar": "codex",
	"litellm":           "litellm",
	"pi_rpc":            "pi",
	"opencode":          "opencode",
}

// RunnerForAdapter maps a backend adapter name to its runner type, or ""
// when unknown.
func RunnerForAdapter(adapter string) string {
	return adapterToRunner[adapter]
}

// RunnerDisplayName returns a human-friendly runner label, or "" when the
// runner type is unknown.
func RunnerDisplayName(runnerType string) string {
	return runnerDisplayNames[runnerType]
}

// DeriveBaseName derives a display label from a directory path: the last
// path segment with its first letter upper-cased, or "Session" when the
// path yields nothing.
func DeriveBaseName(directory string) string {
	trimmed := strings.TrimRight(directory, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "Session"
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return truncateRunes(string(runes), maxNameLen)
}

// FormatThreadName builds "<Runner> / <Dir>" when the runner is known,
// otherwise just the directory label. runnerType wins over adapter when
// both are given.
func FormatThreadName(directory, runnerType, adapter string) string {
	dirLabel := DeriveBaseName(directory)

	rt := runnerType
	if rt == "" {
		rt = RunnerForAdapter(adapter)
	}
	if label := RunnerDisplayName(rt); label != "" {
		return truncateRunes(label+" / "+dirLabel, maxNameLen)
	}
	return dirLabel
}

// truncateRunes cuts s to at most n runes without splitting a rune.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
