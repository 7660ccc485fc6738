// Package client provides a transport-agnostic interface for the parkd
// service and an HTTP/JSON implementation that talks to the parkd REST API.
package client

import (
	"context"
	"time"

	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/model"
)

// ParkdClient is the interface that all parkd CLI commands use to
// communicate with the server. It is implemented by HTTPClient and can be
// backed by any transport.
type ParkdClient interface {
	// Lifecycle operations
	RequestEntry(ctx context.Context, plate string) (*facility.EntryResult, error)
	RequestExit(ctx context.Context, plate string) (*facility.ExitResult, error)
	SettlePayment(ctx context.Context, sessionID string) (*facility.SettleResult, error)
	QuoteFee(ctx context.Context, sessionID string, at *time.Time) (*FeeQuote, error)

	// Sessions
	ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	GetSessionEvents(ctx context.Context, id string) ([]*model.Event, error)

	// Blocklist
	ToggleBlock(ctx context.Context, plate, actor string) (*ToggleBlockResponse, error)
	ListBlocked(ctx context.Context) ([]string, error)

	// Gates
	ListGates(ctx context.Context) ([]model.GateStatus, error)
	OpenGate(ctx context.Context, gate model.GateID, plate string) (*OpenGateResponse, error)
	CloseGate(ctx context.Context, gate model.GateID) (*model.GateStatus, error)
	HoldGate(ctx context.Context, gate model.GateID, hold bool) (*model.GateStatus, error)

	// Dashboard
	Stats(ctx context.Context) (*model.Stats, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// FeeQuote is the response from QuoteFee.
type FeeQuote struct {
	AmountCents int64          `json:"amount_cents"`
	Session     *model.Session `json:"session,omitempty"`
}

// ListSessionsRequest holds parameters for listing sessions.
type ListSessionsRequest struct {
	Open   *bool  `json:"open,omitempty"`
	Unpaid bool   `json:"unpaid,omitempty"`
	Plate  string `json:"plate,omitempty"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ListSessionsResponse is the response from ListSessions.
type ListSessionsResponse struct {
	Sessions []*model.Session `json:"sessions"`
	Total    int              `json:"total"`
}

// ToggleBlockResponse is the response from ToggleBlock.
type ToggleBlockResponse struct {
	Plate   string `json:"plate"`
	Blocked bool   `json:"blocked"`
}

// OpenGateResponse is the response from OpenGate. Reason is set when the
// context checks refused the open.
type OpenGateResponse struct {
	Opened bool              `json:"opened"`
	Reason string            `json:"reason,omitempty"`
	Gate   *model.GateStatus `json:"gate,omitempty"`
}
