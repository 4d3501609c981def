package model

import "strings"

// StatusKind is the wash transaction status a notification is sent for.
type StatusKind string

const (
	StatusPending    StatusKind = "pending"
	StatusInProgress StatusKind = "in_progress"
	StatusCompleted  StatusKind = "completed"
	StatusCancelled  StatusKind = "cancelled"
)

// StatusKinds lists every known status in lifecycle order.
var StatusKinds = []StatusKind{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s StatusKind) String() string { return string(s) }

func (s StatusKind) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatusKind normalizes input (case-insensitive, trimmed).
// Returns (value, true) if valid; otherwise (pending, false).
func ParseStatusKind(s string) (StatusKind, bool) {
	st := StatusKind(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st, true
	}
	return StatusPending, false
}
