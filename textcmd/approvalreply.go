package textcmd

import (
	"context"

	"github.com/quailyquaily/tether/approval"
	"github.com/quailyquaily/tether/bridge"
)

// HandleApprovalReply applies a parsed approval reply to the pending
// request: timer grants become side effects on the tracker, the backend's
// permission callback is invoked, and pending state is cleared either way.
// The returned display message is what the adapter echoes into the thread;
// ok is false when the backend rejected or failed the response.
func HandleApprovalReply(
	ctx context.Context,
	cb bridge.Callbacks,
	tracker *approval.Tracker,
	sessionID string,
	req approval.Request,
	reply approval.Reply,
) (bool, string) {
	tracker.ApplyTimer(sessionID, reply)

	var message string
	if reply.Allow {
		switch reply.Timer {
		case "":
			message = "Approved"
		case approval.TimerAll:
			message = "Allow All (30m)"
		case approval.TimerDirectory:
			message = "Allow dir (30m)"
		default:
			message = "Allow " + reply.Timer + " (30m)"
		}
	} else {
		if reply.Reason != "" {
			message = "Denied: " + reply.Reason
		} else {
			message = "Denied"
		}
	}

	// Pending state is cleared regardless of the callback outcome; a
	// failed response is reported, not retried.
	defer tracker.ClearPending(sessionID)

	if cb.RespondToPermission == nil {
		return false, message
	}
	ok, err := cb.RespondToPermission(ctx, sessionID, req.RequestID, reply.Allow, message)
	if err != nil || !ok {
		return false, message
	}
	return true, message
}

// ResolveChoiceReply matches free text against a pending choice request
// and, on a match, responds to the backend with the selected label.
// Returns the label and true when the reply resolved the choice.
func ResolveChoiceReply(
	ctx context.Context,
	cb bridge.Callbacks,
	tracker *approval.Tracker,
	sessionID, text string,
) (string, bool) {
	req, ok := tracker.Pending(sessionID)
	if !ok || req.Kind != approval.KindChoice {
		return "", false
	}
	label := tracker.ParseChoiceText(sessionID, text)
	if label == "" {
		return "", false
	}

	defer tracker.ClearPending(sessionID)
	if cb.RespondToPermission == nil {
		return label, false
	}
	ok, err := cb.RespondToPermission(ctx, sessionID, req.RequestID, true, label)
	if err != nil || !ok {
		return label, false
	}
	return label, true
}
