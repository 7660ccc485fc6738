// Package postgres implements the store.Store interface backed by PostgreSQL.
//
// The at-most-one-open-session-per-plate invariant is enforced by a partial
// unique index on (plate) WHERE exit_time IS NULL, so concurrent entry
// attempts for the same plate are resolved by the database, not by
// application-level locking.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *model.Session) error {
	return queryCreateSession(ctx, s.db, session)
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return queryGetSession(ctx, s.db, id)
}

func (s *PostgresStore) FindOpenSession(ctx context.Context, plate string) (*model.Session, error) {
	return queryFindOpenSession(ctx, s.db, plate)
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter model.SessionFilter) ([]*model.Session, int, error) {
	return queryListSessions(ctx, s.db, filter)
}

func (s *PostgresStore) CountOpen(ctx context.Context) (int, error) {
	return queryCountOpen(ctx, s.db)
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (*model.Stats, error) {
	return queryStats(ctx, s.db, since)
}

func (s *PostgresStore) SettleSession(ctx context.Context, id string, amountCents int64, paidAt time.Time) (*model.Session, error) {
	return querySettleSession(ctx, s.db, id, amountCents, paidAt)
}

func (s *PostgresStore) CloseSession(ctx context.Context, id string, exitTime time.Time) (*model.Session, error) {
	return queryCloseSession(ctx, s.db, id, exitTime)
}

func (s *PostgresStore) IsBlocked(ctx context.Context, plate string) (bool, error) {
	return queryIsBlocked(ctx, s.db, plate)
}

func (s *PostgresStore) ToggleBlock(ctx context.Context, plate string) (bool, error) {
	return queryToggleBlock(ctx, s.db, plate)
}

func (s *PostgresStore) ListBlocked(ctx context.Context) ([]string, error) {
	return queryListBlocked(ctx, s.db)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, sessionID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, sessionID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateSession(ctx context.Context, session *model.Session) error {
	return queryCreateSession(ctx, s.tx, session)
}

func (s *txStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return queryGetSession(ctx, s.tx, id)
}

func (s *txStore) FindOpenSession(ctx context.Context, plate string) (*model.Session, error) {
	return queryFindOpenSession(ctx, s.tx, plate)
}

func (s *txStore) ListSessions(ctx context.Context, filter model.SessionFilter) ([]*model.Session, int, error) {
	return queryListSessions(ctx, s.tx, filter)
}

func (s *txStore) CountOpen(ctx context.Context) (int, error) {
	return queryCountOpen(ctx, s.tx)
}

func (s *txStore) Stats(ctx context.Context, since time.Time) (*model.Stats, error) {
	return queryStats(ctx, s.tx, since)
}

func (s *txStore) SettleSession(ctx context.Context, id string, amountCents int64, paidAt time.Time) (*model.Session, error) {
	return querySettleSession(ctx, s.tx, id, amountCents, paidAt)
}

func (s *txStore) CloseSession(ctx context.Context, id string, exitTime time.Time) (*model.Session, error) {
	return queryCloseSession(ctx, s.tx, id, exitTime)
}

func (s *txStore) IsBlocked(ctx context.Context, plate string) (bool, error) {
	return queryIsBlocked(ctx, s.tx, plate)
}

func (s *txStore) ToggleBlock(ctx context.Context, plate string) (bool, error) {
	return queryToggleBlock(ctx, s.tx, plate)
}

func (s *txStore) ListBlocked(ctx context.Context) ([]string, error) {
	return queryListBlocked(ctx, s.tx)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, sessionID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, sessionID)
}

// RunInTransaction on a txStore reuses the existing transaction.
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for txStore; the transaction is owned by RunInTransaction.
func (s *txStore) Close() error {
	return nil
}
