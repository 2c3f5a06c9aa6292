package protocol

import "github.com/shubham-shewale/stock-ticker/pkg/models"

// Client -> server actions.
const (
	ActionRefresh = "refresh"
)

// Server -> client event types.
const (
	EventSnapshot = "snapshot"
	EventUpdate   = "update"
	EventError    = "error"
)

type WSRequest struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// Event is the envelope of every server push. Data carries the full tracked
// set for snapshot and update events.
type Event struct {
	Type    string          `json:"type"`              // "snapshot", "update", "error"
	ID      string          `json:"id,omitempty"`      // Matches request ID
	Message string          `json:"message,omitempty"` // error text
	Data    models.Snapshot `json:"data,omitempty"`
}
