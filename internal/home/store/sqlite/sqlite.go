// Package sqlite implements store.Store on SQLite via modernc.org/sqlite
// (pure Go, no cgo). Schema management is golang-migrate over the embedded
// migrations directory.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/hearth-im/hearth/internal/home/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// repositories work identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the sqlite-backed store.Store.
type Store struct {
	db *sql.DB
	q  querier
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path, applies pragmas and
// runs pending migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection sidesteps SQLITE_BUSY
	// churn under concurrent transactions.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, q: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Users() store.UserRepo                 { return &userRepo{q: s.q} }
func (s *Store) RefreshTokens() store.RefreshTokenRepo { return &refreshTokenRepo{q: s.q} }
func (s *Store) Servers() store.ServerRepo             { return &serverRepo{q: s.q} }
func (s *Store) Memberships() store.MembershipRepo     { return &membershipRepo{q: s.q} }
func (s *Store) Channels() store.ChannelRepo           { return &channelRepo{q: s.q} }
func (s *Store) Messages() store.MessageRepo           { return &messageRepo{q: s.q} }

// WithTx runs fn against a transactional copy of the store. Nested calls
// reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// mapNotFound translates sql.ErrNoRows into the store sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapNotFoundAffected is the sentinel for writes that matched no rows.
func mapNotFoundAffected() error { return store.ErrNotFound }
