package repository

import (
	"context"
	"database/sql"
	"time"
)

// CompletionRepo is the completion ledger.  The unique key over
// (team_id, square_id, user_id) is the whole concurrency story: two
// events racing to complete the same square for the same user both reach
// the insert, the constraint lets exactly one through, and the loser is
// recovered as a no-op.  No prior read, no application lock.
type CompletionRepo struct{ DB *sql.DB }

func NewCompletionRepo(db *sql.DB) *CompletionRepo { return &CompletionRepo{DB: db} }

// InsertTx records a completion within the caller's transaction.  It
// returns whether this call produced a new completion: false means the
// triple was already satisfied and nothing was written.
func (r *CompletionRepo) InsertTx(ctx context.Context, tx *sql.Tx, teamID, squareID, userID, evidenceEventID uint64, at time.Time) (bool, error) {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO completions (team_id, square_id, user_id, evidence_event_id, completed_at) VALUES (?,?,?,?,?)",
		teamID, squareID, userID, evidenceEventID, at)
	if err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Exists reports whether the (team, square, user) triple is completed.
func (r *CompletionRepo) Exists(ctx context.Context, teamID, squareID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM completions WHERE team_id=? AND square_id=? AND user_id=? LIMIT 1",
		teamID, squareID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountForSquare returns how many users have completed a square.
func (r *CompletionRepo) CountForSquare(ctx context.Context, teamID, squareID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM completions WHERE team_id=? AND square_id=?",
		teamID, squareID).Scan(&n)
	return n, err
}
