package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

var absoluteURLInTextRE = regexp.MustCompile(`https?://[^\s"'<>]+`)

// FormatErrorForDisplay sanitizes error text before it is posted to a chat
// thread. URL hosts are dropped and secret-bearing query values redacted.
func FormatErrorForDisplay(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorText(err.Error())
}

// SanitizeErrorText removes URL hosts from arbitrary text while keeping
// path/query/fragment details.
func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return absoluteURLInTextRE.ReplaceAllStringFunc(raw, stripURLHost)
}

func stripURLHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return raw
	}
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	if q := u.Query(); len(q) > 0 {
		for k := range q {
			if isSensitiveQueryKey(k) {
				q.Set(k, "[redacted]")
			}
		}
		out += "?" + q.Encode()
	}
	if frag := strings.TrimSpace(u.EscapedFragment()); frag != "" {
		out += "#" + frag
	}
	return out
}

func isSensitiveQueryKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	n := strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	if n == "key" {
		return true
	}
	for _, marker := range []string{"apikey", "authorization", "token", "secret", "password", "cookie"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}
