// Package textcmd implements the command grammar shared by text-driven
// platform adapters: !new / !list argument parsing, approval reply
// handling, and external-session replay formatting. Platform adapters
// own the transport; this package owns the semantics.
package textcmd

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quailyquaily/tether/bridge"
)

// agentAdapters maps user-facing agent shorthands to backend adapter
// names. Exact adapter names are also accepted as-is.
var agentAdapters = map[string]string{
	"claude":            "claude_auto",
	"codex":             "codex_sdk_sidecar",
	"claude_auto":       "claude_auto",
	"claude_subprocess": "claude_subprocess",
	"claude_api":        "claude_api",
	"codex_sdk_sidecar": "codex_sdk_sidecar",
	"opencode":          "opencode",
	"litellm":           "litellm",
	"pi":                "pi_rpc",
	"pi_rpc":            "pi_rpc",
}

// UsageError carries a user-facing message for malformed command input.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func usageErrorf(msg string) error { return &UsageError{Message: msg} }

// AdapterForAgent resolves an agent token to a backend adapter name, or ""
// when unknown.
func AdapterForAgent(token string) string {
	return agentAdapters[strings.ToLower(strings.TrimSpace(token))]
}

// SplitCommand separates a "!cmd args" line into the lowercased command
// and its raw argument string.
func SplitCommand(text string) (cmd, args string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return cmd, args
}

// ParseListArgs interprets !list arguments: a leading integer selects a
// page within the current listing, anything else is a search query for
// page one. keepQuery is true for the paging form, telling the caller to
// hold on to whatever query is already active instead of clearing it.
func ParseListArgs(args string) (page int, query string, keepQuery bool) {
	args = strings.TrimSpace(args)
	if args == "" {
		return 1, "", false
	}
	first := strings.Fields(args)[0]
	if n, err := strconv.Atoi(first); err == nil {
		return n, "", true
	}
	return 1, args, false
}

// NewSessionArgs is the resolved outcome of a !new command.
type NewSessionArgs struct {
	Adapter   string
	Directory string
}

// ParseNewArgs parses "!new [agent] [directory]" into an adapter and a
// resolved directory. Inside a session thread (baseSessionID set) the
// base session's adapter and directory fill in whatever is omitted, so
// "!new" alone clones the current session's setup. Malformed input
// returns a UsageError with the message to show the user.
func ParseNewArgs(ctx context.Context, cb bridge.Callbacks, args, baseSessionID string) (NewSessionArgs, error) {
	parts := strings.Fields(args)

	var baseDirectory, baseAdapter string
	if baseSessionID != "" && cb.GetSessionInfo != nil {
		if info, ok := cb.GetSessionInfo(ctx, baseSessionID); ok {
			baseDirectory = info.Directory
			baseAdapter = info.Adapter
		}
	}

	var adapter, directoryRaw string
	switch len(parts) {
	case 0:
		if baseDirectory == "" {
			return NewSessionArgs{}, usageErrorf(
				"Usage: !new <agent> <directory>\nOr, inside a session thread: !new or !new <agent>")
		}
		adapter = baseAdapter
		directoryRaw = baseDirectory
	case 1:
		token := parts[0]
		maybeAdapter := AdapterForAgent(token)
		if baseDirectory != "" {
			if maybeAdapter != "" {
				adapter = maybeAdapter
				directoryRaw = baseDirectory
			} else {
				adapter = baseAdapter
				directoryRaw = token
			}
		} else {
			if maybeAdapter != "" {
				return NewSessionArgs{}, usageErrorf("Usage: !new <agent> <directory>")
			}
			directoryRaw = token
		}
	default:
		adapter = AdapterForAgent(parts[0])
		if adapter == "" {
			return NewSessionArgs{}, usageErrorf(
				"Unknown agent. Use: claude, codex, claude_auto, claude_subprocess, claude_api, codex_sdk_sidecar")
		}
		directoryRaw = strings.TrimSpace(strings.Join(parts[1:], " "))
	}

	directory, err := resolveDirectoryArg(ctx, cb, directoryRaw, baseDirectory)
	if err != nil {
		return NewSessionArgs{}, err
	}
	return NewSessionArgs{Adapter: adapter, Directory: directory}, nil
}

// resolveDirectoryArg resolves a directory argument, interpreting relative
// paths against the base session's directory and verifying existence via
// the backend.
func resolveDirectoryArg(ctx context.Context, cb bridge.Callbacks, raw, baseDirectory string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", usageErrorf("Usage: !new <agent> <directory>")
	}
	if !filepath.IsAbs(raw) && baseDirectory != "" && raw != baseDirectory {
		raw = filepath.Join(baseDirectory, raw)
	}
	if cb.CheckDirectory == nil {
		return raw, nil
	}
	info, err := cb.CheckDirectory(ctx, raw)
	if err != nil {
		return "", err
	}
	if !info.Exists {
		return "", usageErrorf("Directory not found: " + raw)
	}
	if info.ResolvedPath != "" {
		return info.ResolvedPath, nil
	}
	return raw, nil
}
