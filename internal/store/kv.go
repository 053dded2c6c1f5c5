package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StringSet returns the members of the string set under (namespace, key) in
// insertion order. A missing key is an empty set.
func (s *Store) StringSet(ctx context.Context, namespace, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member FROM string_sets
		WHERE namespace = ? AND key = ?
		ORDER BY seq ASC, member ASC
	`, namespace, key)
	if err != nil {
		return nil, fmt.Errorf("read string set %s/%s: %w", namespace, key, err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("read string set %s/%s: scan: %w", namespace, key, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read string set %s/%s: %w", namespace, key, err)
	}
	return members, nil
}

// PutStringSet replaces the string set under (namespace, key) with members.
// Duplicate members collapse; the first occurrence fixes the order. An empty
// members slice deletes the key.
//
// The replacement is a single transaction, but nothing guards a caller's
// preceding read: concurrent read-modify-write callers can overwrite each
// other.
func (s *Store) PutStringSet(ctx context.Context, namespace, key string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write string set %s/%s: begin tx: %w", namespace, key, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM string_sets WHERE namespace = ? AND key = ?
	`, namespace, key); err != nil {
		return fmt.Errorf("write string set %s/%s: clear: %w", namespace, key, err)
	}

	for i, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO string_sets (namespace, key, member, seq)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key, member) DO NOTHING
		`, namespace, key, m, i); err != nil {
			return fmt.Errorf("write string set %s/%s: insert: %w", namespace, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write string set %s/%s: commit: %w", namespace, key, err)
	}
	return nil
}

// AddToStringSet adds member to the string set under (namespace, key) after
// every existing member, and returns the set's size. Adding a member that is
// already present keeps its position.
func (s *Store) AddToStringSet(ctx context.Context, namespace, key, member string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add to string set %s/%s: begin tx: %w", namespace, key, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO string_sets (namespace, key, member, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), -1) + 1
		FROM string_sets WHERE namespace = ? AND key = ?
		ON CONFLICT(namespace, key, member) DO NOTHING
	`, namespace, key, member, namespace, key); err != nil {
		return 0, fmt.Errorf("add to string set %s/%s: insert: %w", namespace, key, err)
	}

	var size int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM string_sets WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&size); err != nil {
		return 0, fmt.Errorf("add to string set %s/%s: count: %w", namespace, key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add to string set %s/%s: commit: %w", namespace, key, err)
	}
	return size, nil
}

// Setting returns the scalar value under (namespace, key). ok is false when
// the key is unset.
func (s *Store) Setting(ctx context.Context, namespace, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// PutSetting stores a scalar value under (namespace, key), replacing any
// previous value.
func (s *Store) PutSetting(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s/%s: %w", namespace, key, err)
	}
	return nil
}

// DeleteSetting removes the value under (namespace, key). Deleting a missing
// key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM settings WHERE namespace = ? AND key = ?
	`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete setting %s/%s: %w", namespace, key, err)
	}
	return nil
}
