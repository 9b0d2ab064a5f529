package repository

import (
	"context"
	"database/sql"
	"time"
)

// PluginKeyRepo persists/validates machine credentials (single 'key_hash'
// column, bcrypt).  Rotation is revoke-then-insert; the caller wraps both
// steps in one transaction so the single-active-key invariant holds even
// while an old key is being verified concurrently.
type PluginKeyRepo struct{ DB *sql.DB }

func NewPluginKeyRepo(db *sql.DB) *PluginKeyRepo { return &PluginKeyRepo{DB: db} }

// RevokeActiveTx soft-deletes any active key for the (team, user) pair.
func (r *PluginKeyRepo) RevokeActiveTx(ctx context.Context, tx *sql.Tx, teamID, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE plugin_keys SET revoked_at=? WHERE team_id=? AND user_id=? AND revoked_at IS NULL",
		time.Now().UTC(), teamID, userID)
	return err
}

// InsertTx stores a new key hash for the pair.
func (r *PluginKeyRepo) InsertTx(ctx context.Context, tx *sql.Tx, teamID, userID uint64, keyHash string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO plugin_keys (team_id, user_id, key_hash, created_at) VALUES (?,?,?,?)",
		teamID, userID, keyHash, time.Now().UTC())
	return err
}

// ActiveHash returns the hash of the single non-revoked key for the pair,
// or sql.ErrNoRows when none exists.  Verification always reads the
// currently committed active key, so an in-flight rotation wins or loses
// cleanly at its commit point.
func (r *PluginKeyRepo) ActiveHash(ctx context.Context, teamID, userID uint64) (string, error) {
	var hash string
	err := r.DB.QueryRowContext(ctx,
		"SELECT key_hash FROM plugin_keys WHERE team_id=? AND user_id=? AND revoked_at IS NULL ORDER BY id DESC LIMIT 1",
		teamID, userID).Scan(&hash)
	return hash, err
}

// CountActive returns the number of non-revoked keys for the pair.
// Diagnostic helper; the invariant says this is never above one.
func (r *PluginKeyRepo) CountActive(ctx context.Context, teamID, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plugin_keys WHERE team_id=? AND user_id=? AND revoked_at IS NULL",
		teamID, userID).Scan(&n)
	return n, err
}
