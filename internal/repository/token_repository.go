package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists and validates refresh token hashes.
type TokenRepo struct{}

// StoreRefresh inserts a refresh token hash row.
func (TokenRepo) StoreRefresh(ctx context.Context, q dbtx, userID uint64, tokenHash string, exp time.Time) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a non-revoked, non-expired token.
// Unknown, revoked and expired tokens all yield ErrNotFound.
func (TokenRepo) ValidateRefresh(ctx context.Context, q dbtx, tokenHash string, now time.Time) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, noRows(err)
	}
	if revokedAt.Valid || now.UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (TokenRepo) RevokeByHash(ctx context.Context, q dbtx, tokenHash string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP(3) WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all of a user's active tokens.
func (TokenRepo) RevokeAllForUser(ctx context.Context, q dbtx, userID uint64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP(3) WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
