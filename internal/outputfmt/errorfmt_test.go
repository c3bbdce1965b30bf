package outputfmt

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeErrorTextStripsHostAndRedactsQuery(t *testing.T) {
	in := `backend call failed: Post "https://backend.internal:8443/api/v1/respond?token=sk-secret&session=abc": connection refused`

	out := SanitizeErrorText(in)
	if strings.Contains(out, "backend.internal") {
		t.Fatalf("host should be removed, got %q", out)
	}
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("token value should be redacted, got %q", out)
	}
	if !strings.Contains(out, "session=abc") {
		t.Fatalf("non-sensitive query should be kept, got %q", out)
	}
}

func TestSanitizeErrorTextMultipleURLs(t *testing.T) {
	in := `send failed: https://a.example.com/ping?key=abc then https://b.example.com/health?ok=1`
	out := SanitizeErrorText(in)
	if strings.Contains(out, "a.example.com") || strings.Contains(out, "b.example.com") {
		t.Fatalf("hosts should be removed, got %q", out)
	}
	if !strings.Contains(out, "/health?ok=1") {
		t.Fatalf("second url should keep path/query, got %q", out)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	if got := FormatErrorForDisplay(nil); got != "" {
		t.Fatalf("nil error should format as empty string, got %q", got)
	}
	err := errors.New(`Post "https://example.com/api?apikey=123": bad gateway`)
	got := FormatErrorForDisplay(err)
	if strings.Contains(got, "example.com") {
		t.Fatalf("host should be removed, got %q", got)
	}
	if !strings.Contains(got, "apikey=%5Bredacted%5D") {
		t.Fatalf("expected redacted apikey query, got %q", got)
	}
}
