package store

import (
	"context"
	"database/sql"
	"errors"
)

// PutSlot overwrites the backup blob held for owner. Last writer wins.
func (s *Store) PutSlot(ctx context.Context, owner, blob string, updatedAt int64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO backup_slots (owner, blob, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			blob = excluded.blob,
			updated_at = excluded.updated_at
	`, owner, blob, updatedAt)
	if err != nil {
		return unavailable("put slot", err)
	}
	return nil
}

// GetSlot returns the backup blob held for owner.
// Returns a NOT_FOUND ledgererr if the owner never uploaded.
func (s *Store) GetSlot(ctx context.Context, owner string) (string, error) {
	var blob string
	err := s.q.QueryRowContext(ctx, `SELECT blob FROM backup_slots WHERE owner = ?`, owner).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("get slot", "slot", owner)
	}
	if err != nil {
		return "", unavailable("get slot", err)
	}
	return blob, nil
}
