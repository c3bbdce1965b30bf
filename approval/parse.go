package approval

import "strings"

const (
	// TimerAll requests a session-wide allow-all grant.
	TimerAll = "all"
	// TimerDirectory requests a grant scoped to the session's directory.
	TimerDirectory = "dir"
)

// Reply is a parsed approval response. Timer is empty for a plain
// allow/deny, TimerAll, TimerDirectory, or a tool name.
type Reply struct {
	Allow  bool
	Reason string
	Timer  string
}

// ParseReplyText interprets free text as an approval reply. The second
// return value is false when the text is not an approval reply at all, so
// the caller can fall through to other interpretations (e.g. plain input).
func ParseReplyText(text string) (Reply, bool) {
	trimmed := strings.TrimSpace(text)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Reply{}, false
	}

	head := strings.ToLower(strings.TrimSuffix(fields[0], ":"))
	colonHead := strings.HasSuffix(fields[0], ":")
	rest := strings.TrimSpace(trimmed[len(fields[0]):])

	switch head {
	case "allow", "yes", "approve", "proceed", "continue":
		// The colon form is defined for deny/reject only.
		if colonHead {
			return Reply{}, false
		}
		if rest == "" {
			return Reply{Allow: true}, true
		}
		if head == "allow" && len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case TimerAll:
				return Reply{Allow: true, Timer: TimerAll}, true
			case TimerDirectory:
				return Reply{Allow: true, Timer: TimerDirectory}, true
			default:
				return Reply{Allow: true, Timer: fields[1]}, true
			}
		}
		return Reply{}, false
	case "deny", "reject":
		if rest == "" {
			return Reply{Allow: false}, true
		}
		reason := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		return Reply{Allow: false, Reason: reason}, true
	case "no", "cancel":
		if colonHead {
			return Reply{}, false
		}
		if rest == "" {
			return Reply{Allow: false}, true
		}
		return Reply{}, false
	}
	return Reply{}, false
}
