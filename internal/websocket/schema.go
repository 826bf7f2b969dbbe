package websocket

import "github.com/stemsi/gradebook-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing   Action = "ping"
	ActionFilter Action = "filter"
)

// Request is any client message. StudentID and Subject apply to ActionFilter;
// zero values clear the corresponding filter.
type Request struct {
	Action    Action `json:"action"`
	StudentID int    `json:"student_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubscribed Event = "subscribed"
	EventHistory    Event = "grade_history"
	EventPong       Event = "pong"
)

// HistoryEvent carries one committed grade history entry.
type HistoryEvent struct {
	Event Event              `json:"event"`
	Entry model.GradeHistory `json:"entry"`
}

// SubscribedResponse confirms the active filter.
type SubscribedResponse struct {
	Event  Event  `json:"event"`
	Filter Filter `json:"filter"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// Filter narrows the feed. Zero fields match everything.
type Filter struct {
	StudentID int    `json:"student_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// Matches reports whether entry passes the filter. Subjects compare exactly.
func (f Filter) Matches(entry model.GradeHistory) bool {
	if f.StudentID != 0 && entry.StudentID != f.StudentID {
		return false
	}
	if f.Subject != "" && entry.Subject != f.Subject {
		return false
	}
	return true
}
