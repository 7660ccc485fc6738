// Package events defines the lifecycle event topics published by the
// facility and the Publisher/Subscriber interfaces that carry them.
package events

import (
	"context"

	"github.com/kerbside/parkd/internal/model"
)

// Event topic constants
const (
	TopicSessionCreated = "parkd.session.created"
	TopicSessionSettled = "parkd.session.settled"
	TopicSessionClosed  = "parkd.session.closed"

	TopicEntryDenied = "parkd.entry.denied"
	TopicExitDenied  = "parkd.exit.denied"

	// TopicSettlementPending marks a paid session whose close failed; the
	// session stays open-and-paid until an operator retries the exit.
	TopicSettlementPending = "parkd.settlement.pending"

	TopicBlocklistToggled = "parkd.blocklist.toggled"

	TopicGateOpened = "parkd.gate.opened"
	TopicGateClosed = "parkd.gate.closed"
)

// Event types

type SessionCreated struct {
	Session *model.Session `json:"session"`
}

type SessionSettled struct {
	Session     *model.Session `json:"session"`
	AmountCents int64          `json:"amount_cents"`
}

type SessionClosed struct {
	Session *model.Session `json:"session"`
}

type EntryDenied struct {
	Plate  string `json:"plate"`
	Reason string `json:"reason"` // blocked, full, duplicate_open
}

type ExitDenied struct {
	Plate  string `json:"plate"`
	Reason string `json:"reason"` // not_found
}

type SettlementPending struct {
	Session *model.Session `json:"session"`
	Reason  string         `json:"reason"`
}

type BlocklistToggled struct {
	Plate   string `json:"plate"`
	Blocked bool   `json:"blocked"`
	Actor   string `json:"actor,omitempty"`
}

type GateChanged struct {
	Gate  model.GateID    `json:"gate"`
	State model.GateState `json:"state"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
