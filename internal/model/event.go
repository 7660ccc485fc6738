package model

import (
	"encoding/json"
	"time"
)

// Event is a persisted record of a lifecycle transition, kept for audit.
// SessionID is empty for facility-level events (blocklist toggles, manual
// gate overrides).
type Event struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	SessionID string          `json:"session_id,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
