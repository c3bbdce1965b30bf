package textcmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quailyquaily/tether/bridge"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		args string
	}{
		{text: "!new claude /tmp/repo", cmd: "!new", args: "claude /tmp/repo"},
		{text: "!LIST", cmd: "!list", args: ""},
		{text: "  !status  ", cmd: "!status", args: ""},
		{text: "", cmd: "", args: ""},
	}
	for _, tc := range cases {
		cmd, args := SplitCommand(tc.text)
		if cmd != tc.cmd || args != tc.args {
			t.Fatalf("SplitCommand(%q) = %q, %q, want %q, %q", tc.text, cmd, args, tc.cmd, tc.args)
		}
	}
}

func TestParseListArgs(t *testing.T) {
	cases := []struct {
		args      string
		page      int
		query     string
		keepQuery bool
	}{
		{args: "", page: 1, query: ""},
		{args: "3", page: 3, query: "", keepQuery: true},
		{args: "3 extra", page: 3, query: "", keepQuery: true},
		{args: "api server", page: 1, query: "api server"},
	}
	for _, tc := range cases {
		page, query, keep := ParseListArgs(tc.args)
		if page != tc.page || query != tc.query || keep != tc.keepQuery {
			t.Fatalf("ParseListArgs(%q) = %d, %q, %v, want %d, %q, %v",
				tc.args, page, query, keep, tc.page, tc.query, tc.keepQuery)
		}
	}
}

func existingDirs(dirs ...string) bridge.Callbacks {
	return bridge.Callbacks{
		CheckDirectory: func(_ context.Context, path string) (bridge.DirectoryInfo, error) {
			for _, d := range dirs {
				if d == path {
					return bridge.DirectoryInfo{Exists: true, ResolvedPath: path}, nil
				}
			}
			return bridge.DirectoryInfo{}, nil
		},
	}
}

func withBaseSession(cb bridge.Callbacks, directory, adapter string) bridge.Callbacks {
	cb.GetSessionInfo = func(_ context.Context, sessionID string) (bridge.SessionSummary, bool) {
		if sessionID != "base" {
			return bridge.SessionSummary{}, false
		}
		return bridge.SessionSummary{ID: "base", Directory: directory, Adapter: adapter}, true
	}
	return cb
}

func TestParseNewArgsExplicit(t *testing.T) {
	cb := existingDirs("/home/user/repo")
	got, err := ParseNewArgs(context.Background(), cb, "claude /home/user/repo", "")
	if err != nil {
		t.Fatalf("ParseNewArgs: %v", err)
	}
	if got.Adapter != "claude_auto" || got.Directory != "/home/user/repo" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseNewArgsUnknownAgent(t *testing.T) {
	cb := existingDirs("/home/user/repo")
	_, err := ParseNewArgs(context.Background(), cb, "gemini /home/user/repo", "")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UsageError", err)
	}
	if !strings.Contains(ue.Message, "Unknown agent") {
		t.Fatalf("message = %q", ue.Message)
	}
}

func TestParseNewArgsNoArgsOutsideThread(t *testing.T) {
	_, err := ParseNewArgs(context.Background(), bridge.Callbacks{}, "", "")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UsageError", err)
	}
}

func TestParseNewArgsInheritsFromBaseSession(t *testing.T) {
	cb := withBaseSession(existingDirs("/home/user/repo"), "/home/user/repo", "codex_sdk_sidecar")

	// Bare !new clones the base session's agent and directory.
	got, err := ParseNewArgs(context.Background(), cb, "", "base")
	if err != nil {
		t.Fatalf("ParseNewArgs: %v", err)
	}
	if got.Adapter != "codex_sdk_sidecar" || got.Directory != "/home/user/repo" {
		t.Fatalf("got %+v", got)
	}

	// !new <agent> keeps the directory, swaps the agent.
	got, err = ParseNewArgs(context.Background(), cb, "claude", "base")
	if err != nil {
		t.Fatalf("ParseNewArgs: %v", err)
	}
	if got.Adapter != "claude_auto" || got.Directory != "/home/user/repo" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseNewArgsSingleTokenDirectory(t *testing.T) {
	cb := withBaseSession(existingDirs("/home/user/other"), "/home/user/repo", "claude_auto")

	// A non-agent token inside a thread is a directory, keeping the agent.
	got, err := ParseNewArgs(context.Background(), cb, "/home/user/other", "base")
	if err != nil {
		t.Fatalf("ParseNewArgs: %v", err)
	}
	if got.Adapter != "claude_auto" || got.Directory != "/home/user/other" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseNewArgsAgentOnlyOutsideThreadFails(t *testing.T) {
	_, err := ParseNewArgs(context.Background(), existingDirs(), "claude", "")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UsageError", err)
	}
}

func TestParseNewArgsMissingDirectory(t *testing.T) {
	cb := existingDirs("/home/user/repo")
	_, err := ParseNewArgs(context.Background(), cb, "claude /does/not/exist", "")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UsageError", err)
	}
	if !strings.Contains(ue.Message, "Directory not found") {
		t.Fatalf("message = %q", ue.Message)
	}
}

func TestParseNewArgsRelativeDirectory(t *testing.T) {
	cb := withBaseSession(existingDirs("/home/user/repo/subdir"), "/home/user/repo", "claude_auto")
	got, err := ParseNewArgs(context.Background(), cb, "claude subdir", "base")
	if err != nil {
		t.Fatalf("ParseNewArgs: %v", err)
	}
	if got.Directory != "/home/user/repo/subdir" {
		t.Fatalf("directory = %q", got.Directory)
	}
}
