// Package approval tracks pending permission/choice requests per session,
// parses user reply text, and manages time-limited auto-approve grants.
package approval

// Kind distinguishes yes/no permission requests from multi-option choices.
type Kind string

const (
	KindPermission Kind = "permission"
	KindChoice     Kind = "choice"
)

// Request is a backend-originated question awaiting a human decision.
// Options is empty for KindPermission.
type Request struct {
	Kind        Kind     `json:"kind"`
	RequestID   string   `json:"request_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"`
}
