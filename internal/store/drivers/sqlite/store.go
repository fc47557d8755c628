package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
