package textcmd

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/tether/bridge"
)

// ReplayLimits bounds the size of a formatted history replay.
type ReplayLimits struct {
	Messages      int
	ContentChars  int
	ThinkingChars int
	TotalChars    int
}

// DefaultReplayLimits keeps a replay comfortably inside one platform
// message.
var DefaultReplayLimits = ReplayLimits{
	Messages:      20,
	ContentChars:  800,
	ThinkingChars: 400,
	TotalChars:    3000,
}

// FormatExternalReplay renders an external session's transcript as plain
// text for posting into a freshly attached thread. Returns "" when there
// is nothing to show.
func FormatExternalReplay(history bridge.History, limits ReplayLimits) string {
	messages := history.Messages
	if len(messages) == 0 {
		return ""
	}
	if limits.Messages > 0 && len(messages) > limits.Messages {
		messages = messages[len(messages)-limits.Messages:]
	}

	lines := []string{fmt.Sprintf("Recent history (last %d messages):\n", len(messages))}
	for i, msg := range messages {
		prefix := rolePrefix(msg.Role)
		content := truncateWithEllipsis(strings.TrimSpace(msg.Content), limits.ContentChars)
		thinking := truncateWithEllipsis(strings.TrimSpace(msg.Thinking), limits.ThinkingChars)
		if content != "" {
			lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, prefix, content))
		}
		if thinking != "" {
			lines = append(lines, fmt.Sprintf("   %s (thinking): %s", prefix, thinking))
		}
	}

	text := strings.Join(lines, "\n")
	if limits.TotalChars > 3 && len(text) > limits.TotalChars {
		text = text[:limits.TotalChars-3] + "..."
	}
	return text
}

func rolePrefix(role string) string {
	switch strings.ToLower(role) {
	case "user":
		return "👤"
	case "assistant":
		return "🤖"
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return "?"
	}
	return strings.ToUpper(role[:1])
}

func truncateWithEllipsis(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
