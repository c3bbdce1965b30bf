package naming

import (
	"strings"
	"testing"
)

func TestDeriveBaseName(t *testing.T) {
	cases := []struct {
		directory string
		want      string
	}{
		{directory: "/home/user/repo", want: "Repo"},
		{directory: "/home/user/repo/", want: "Repo"},
		{directory: "my-project", want: "My-project"},
		{directory: "", want: "Session"},
		{directory: "/", want: "Session"},
	}
	for _, tc := range cases {
		if got := DeriveBaseName(tc.directory); got != tc.want {
			t.Fatalf("DeriveBaseName(%q) = %q, want %q", tc.directory, got, tc.want)
		}
	}
}

func TestFormatThreadName(t *testing.T) {
	cases := []struct {
		name       string
		directory  string
		runnerType string
		adapter    string
		want       string
	}{
		{name: "runner type", directory: "/home/user/repo", runnerType: "claude", want: "Claude / Repo"},
		{name: "adapter mapped", directory: "/home/user/repo", adapter: "codex_sdk_sidecar", want: "Codex / Repo"},
		{name: "runner type wins", directory: "/x/api", runnerType: "pi", adapter: "codex_sdk_sidecar", want: "Pi / Api"},
		{name: "unknown runner", directory: "/home/user/repo", runnerType: "mystery", want: "Repo"},
		{name: "no runner info", directory: "/home/user/repo", want: "Repo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatThreadName(tc.directory, tc.runnerType, tc.adapter); got != tc.want {
				t.Fatalf("FormatThreadName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatThreadNameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := FormatThreadName("/tmp/"+long, "claude", "")
	if len([]rune(got)) > 64 {
		t.Fatalf("name length = %d, want <= 64", len([]rune(got)))
	}
	if !strings.HasPrefix(got, "Claude / A") {
		t.Fatalf("name = %q", got)
	}
}
