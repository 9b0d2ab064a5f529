package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
)

// ClaimRepo provides access to claims.  The claim state machine is
// forward-only: claims are born CLAIMED (declared intent) or PENDING
// (evidence attached), and move to COMPLETED via the event pipeline or an
// approving review, to REJECTED via a denying review, or to ABANDONED by
// the claimant.
type ClaimRepo struct{ DB *sql.DB }

func NewClaimRepo(db *sql.DB) *ClaimRepo { return &ClaimRepo{DB: db} }

// hasActiveClaim reports whether the user already holds a PENDING or
// CLAIMED claim on the square.
func (r *ClaimRepo) hasActiveClaim(ctx context.Context, teamID, squareID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM claims WHERE team_id=? AND square_id=? AND user_id=? AND status IN (?,?) LIMIT 1",
		teamID, squareID, userID, model.ClaimPending, model.ClaimClaimed).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create records a user's declared-intent claim on a square and returns
// the claim ID.  A user holds at most one active claim per square; when a
// PENDING or CLAIMED one already exists the call fails with ErrConflict.
func (r *ClaimRepo) Create(ctx context.Context, teamID, squareID, userID uint64) (uint64, error) {
	return r.insert(ctx, teamID, squareID, userID, model.ClaimClaimed, nil)
}

// CreatePending records an evidence-backed claim awaiting leader review.
// Same one-active-claim rule as Create.
func (r *ClaimRepo) CreatePending(ctx context.Context, teamID, squareID, userID uint64, evidencePath string) (uint64, error) {
	return r.insert(ctx, teamID, squareID, userID, model.ClaimPending, &evidencePath)
}

func (r *ClaimRepo) insert(ctx context.Context, teamID, squareID, userID uint64, status string, evidencePath *string) (uint64, error) {
	active, err := r.hasActiveClaim(ctx, teamID, squareID, userID)
	if err != nil {
		return 0, err
	}
	if active {
		return 0, ErrConflict
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO claims (team_id, square_id, user_id, status, evidence_path, created_at) VALUES (?,?,?,?,?,?)",
		teamID, squareID, userID, status, evidencePath, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CompleteForSquareTx transitions any active claim for the (team, square,
// user) triple to COMPLETED.  The status predicate in the WHERE clause is
// the state machine: already-completed claims and other users' claims are
// untouched, and zero matched rows is not an error since a square can be
// completed by automatic detection with no prior claim.  A PENDING claim
// completes too: the gameplay event is stronger evidence than the
// screenshot awaiting review.
func (r *ClaimRepo) CompleteForSquareTx(ctx context.Context, tx *sql.Tx, teamID, squareID, userID uint64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE claims SET status=?, completed_at=? WHERE team_id=? AND square_id=? AND user_id=? AND status IN (?,?)",
		model.ClaimCompleted, at, teamID, squareID, userID, model.ClaimPending, model.ClaimClaimed)
	return err
}

// PendingClaim is one row of the leader's review queue.
type PendingClaim struct {
	ClaimID      uint64    `json:"claimId"`
	SquareID     uint64    `json:"squareId"`
	SquareCode   string    `json:"squareCode"`
	UserID       uint64    `json:"userId"`
	RSN          string    `json:"rsn"`
	EvidencePath string    `json:"evidencePath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListPending returns the team's claims awaiting review, newest first.
func (r *ClaimRepo) ListPending(ctx context.Context, teamID uint64) ([]PendingClaim, error) {
	const q = `SELECT c.id, c.square_id, s.code, c.user_id, u.rsn, c.evidence_path, c.created_at
	           FROM claims c
	           JOIN squares s ON s.id = c.square_id
	           JOIN users u ON u.id = c.user_id
	           WHERE c.team_id = ? AND c.status = ?
	           ORDER BY c.id DESC`
	rows, err := r.DB.QueryContext(ctx, q, teamID, model.ClaimPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pending := []PendingClaim{}
	for rows.Next() {
		var p PendingClaim
		var evidence sql.NullString
		if err := rows.Scan(&p.ClaimID, &p.SquareID, &p.SquareCode, &p.UserID, &p.RSN, &evidence, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.EvidencePath = evidence.String
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ReviewTx resolves a PENDING claim to the given terminal status within
// the caller's transaction and returns the claim as it was before the
// update, so an approving caller knows which (square, user) to complete.
// sql.ErrNoRows means no such claim on the team; ErrConflict means the
// claim exists but is not pending (already reviewed, completed by the
// pipeline, or abandoned).
func (r *ClaimRepo) ReviewTx(ctx context.Context, tx *sql.Tx, teamID, claimID uint64, status string, reviewerID uint64, at time.Time) (model.Claim, error) {
	c, err := getByIDTx(ctx, tx, claimID)
	if err != nil {
		return model.Claim{}, err
	}
	if c.TeamID != teamID {
		return model.Claim{}, sql.ErrNoRows
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE claims SET status=?, reviewed_by=?, reviewed_at=? WHERE id=? AND status=?",
		status, reviewerID, at, claimID, model.ClaimPending)
	if err != nil {
		return model.Claim{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Claim{}, err
	}
	if n == 0 {
		return model.Claim{}, ErrConflict
	}
	return c, nil
}

// Abandon lets a user retire their own active claim.  sql.ErrNoRows means
// the claim does not exist, belongs to someone else or is no longer
// active; the distinction is not worth leaking.
func (r *ClaimRepo) Abandon(ctx context.Context, teamID, claimID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE claims SET status=? WHERE id=? AND team_id=? AND user_id=? AND status IN (?,?)",
		model.ClaimAbandoned, claimID, teamID, userID, model.ClaimPending, model.ClaimClaimed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const claimColumns = "id,team_id,square_id,user_id,status,evidence_path,reviewed_by,reviewed_at,created_at,completed_at"

// GetByID fetches a claim by id.
func (r *ClaimRepo) GetByID(ctx context.Context, id uint64) (model.Claim, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE id=? LIMIT 1", id)
	return scanClaim(row)
}

func getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Claim, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE id=? LIMIT 1", id)
	return scanClaim(row)
}

func scanClaim(row *sql.Row) (model.Claim, error) {
	var c model.Claim
	var evidence sql.NullString
	var reviewedBy sql.NullInt64
	var reviewedAt, completedAt sql.NullTime
	err := row.Scan(&c.ID, &c.TeamID, &c.SquareID, &c.UserID, &c.Status,
		&evidence, &reviewedBy, &reviewedAt, &c.CreatedAt, &completedAt)
	if err != nil {
		return c, err
	}
	if evidence.Valid {
		s := evidence.String
		c.EvidencePath = &s
	}
	if reviewedBy.Valid {
		u := uint64(reviewedBy.Int64)
		c.ReviewedBy = &u
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		c.ReviewedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return c, nil
}
