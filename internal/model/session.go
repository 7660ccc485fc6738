package model

import (
	"strings"
	"time"
)

// Session is the record of one vehicle's stay, from entry to exit.
type Session struct {
	ID        string     `json:"id"`
	Plate     string     `json:"plate"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
	Paid      bool       `json:"paid"`
	// AmountCents is set exactly once, at the moment Paid becomes true.
	AmountCents *int64     `json:"amount_cents,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	// BlockedAtEntry records blocklist membership at creation time for audit.
	// Live gating decisions always re-query the blocklist, never this field.
	BlockedAtEntry bool `json:"blocked_at_entry,omitempty"`
}

// Open reports whether the session has no recorded exit time.
// An open session occupies one capacity slot.
func (s *Session) Open() bool {
	return s.ExitTime == nil
}

// NormalizePlate canonicalizes a plate string: whitespace is stripped and the
// result upper-cased, so " ab12 cde " and "AB12CDE" compare equal. Beyond
// normalization, plates are opaque identifiers; no format validation happens
// here.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
