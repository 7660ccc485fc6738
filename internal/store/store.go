package store

import (
	"context"
	"time"

	"github.com/kerbside/parkd/internal/model"
)

// Store defines the persistence interface for parking sessions, the
// blocklist, and the audit event log. Implementations must make the
// duplicate-open check inside CreateSession atomic with respect to other
// creates for the same plate.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	FindOpenSession(ctx context.Context, plate string) (*model.Session, error)
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]*model.Session, int, error) // returns sessions, total count, error
	CountOpen(ctx context.Context) (int, error)
	// Stats aggregates occupancy and revenue counters. Revenue covers
	// payments with paid_at >= since; capacity fields are left for the
	// caller to fill in.
	Stats(ctx context.Context, since time.Time) (*model.Stats, error)
	SettleSession(ctx context.Context, id string, amountCents int64, paidAt time.Time) (*model.Session, error)
	CloseSession(ctx context.Context, id string, exitTime time.Time) (*model.Session, error)

	// Blocklist
	IsBlocked(ctx context.Context, plate string) (bool, error)
	ToggleBlock(ctx context.Context, plate string) (bool, error) // returns new membership state
	ListBlocked(ctx context.Context) ([]string, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, sessionID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
