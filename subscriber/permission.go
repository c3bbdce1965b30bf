package subscriber

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quailyquaily/tether/approval"
	"github.com/quailyquaily/tether/bridge"
)

// askUserQuestionMarker prefixes the tool name some backends use to emit a
// structured multi-option question through the permission channel.
const askUserQuestionMarker = "AskUserQuestion"

// buildApprovalRequest normalizes a permission event into an approval
// request. Structured question payloads become a choice request with
// numbered options; everything else becomes a plain Allow/Deny permission
// request whose description renders the tool input.
func buildApprovalRequest(data bridge.EventData) approval.Request {
	toolName := data.ToolName
	if toolName == "" {
		toolName = "Permission request"
	}

	if strings.HasPrefix(toolName, askUserQuestionMarker) {
		if req, ok := choiceRequestFromToolInput(data.RequestID, data.ToolInput); ok {
			return req
		}
	}

	return approval.Request{
		Kind:        approval.KindPermission,
		RequestID:   data.RequestID,
		Title:       toolName,
		Description: renderToolInput(data.ToolInput),
		Options:     []string{"Allow", "Deny"},
	}
}

// renderToolInput renders backend-defined tool input for display: strings
// pass through, structured values render as JSON.
func renderToolInput(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

// choiceRequestFromToolInput extracts the first question from a structured
// question payload. The payload shape is backend-defined, so it is decoded
// through a JSON round-trip rather than type assertions on nested maps.
func choiceRequestFromToolInput(requestID string, input any) (approval.Request, bool) {
	raw, err := json.Marshal(input)
	if err != nil {
		return approval.Request{}, false
	}
	var payload struct {
		Questions []struct {
			Header   string `json:"header"`
			Question string `json:"question"`
			Options  []struct {
				Label       string `json:"label"`
				Description string `json:"description"`
			} `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Questions) == 0 {
		return approval.Request{}, false
	}

	q := payload.Questions[0]
	header := q.Header
	if header == "" {
		header = "Question"
	}

	var labels []string
	var lines []string
	if text := strings.TrimSpace(q.Question); text != "" {
		lines = append(lines, text)
	}
	for _, opt := range q.Options {
		label := strings.TrimSpace(opt.Label)
		if label == "" {
			continue
		}
		labels = append(labels, label)
		desc := strings.TrimSpace(opt.Description)
		if desc != "" {
			lines = append(lines, fmt.Sprintf("%d. %s - %s", len(labels), label, desc))
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s", len(labels), label))
		}
	}

	return approval.Request{
		Kind:        approval.KindChoice,
		RequestID:   requestID,
		Title:       header,
		Description: strings.TrimSpace(strings.Join(lines, "\n")),
		Options:     labels,
	}, true
}
