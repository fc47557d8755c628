package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store"
)

const (
	getValueQuery = `SELECT value FROM kv WHERE key = ?`
	upsertQuery   = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteQuery = `DELETE FROM kv WHERE key = ?`
	clearQuery  = `DELETE FROM kv`
	keysQuery   = `SELECT key FROM kv ORDER BY key`
)

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getValueQuery, key).Scan(&value)
	if err := mapNotFound(err); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	updatedAt := s.now().UnixMilli()

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for k, v := range kv {
			if _, err := stmt.ExecContext(ctx, k, v, updatedAt); err != nil {
				return fmt.Errorf("set %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, deleteQuery, k); err != nil {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, clearQuery)
	return err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, keysQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
