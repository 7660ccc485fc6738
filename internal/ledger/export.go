package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	SessionCount int       `json:"session_count"`
	BlockedCount int       `json:"blocked_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every session and the blocklist from the store as
// JSONL to w. Sessions come out in entry-time order.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	sessions, _, err := s.ListSessions(ctx, model.SessionFilter{})
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	blocked, err := s.ListBlocked(ctx)
	if err != nil {
		return fmt.Errorf("list blocklist: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		SessionCount: len(sessions),
		BlockedCount: len(blocked),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, sess := range sessions {
		if err := enc.Encode(record{Type: "session", Data: sess}); err != nil {
			return fmt.Errorf("encode session %s: %w", sess.ID, err)
		}
	}

	for _, plate := range blocked {
		if err := enc.Encode(record{Type: "blocked_plate", Data: plate}); err != nil {
			return fmt.Errorf("encode blocked plate %s: %w", plate, err)
		}
	}

	return nil
}
