package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
)

// UserRepo provides access to users and team memberships.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrRSNExists = errors.New("rsn already exists")

// Create inserts a user for a display name and returns its ID.  The rsn
// is stored trimmed; comparison stays case-sensitive because the game
// treats names as displayed.
func (r *UserRepo) Create(ctx context.Context, rsn string) (uint64, error) {
	rsn = strings.TrimSpace(rsn)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (rsn, had_infernal, created_at) VALUES (?,0,?)",
		rsn, time.Now().UTC())
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrRSNExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByRSN fetches a user by display name.
func (r *UserRepo) GetByRSN(ctx context.Context, rsn string) (model.User, error) {
	rsn = strings.TrimSpace(rsn)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,rsn,had_infernal,created_at FROM users WHERE rsn=? LIMIT 1",
		rsn).Scan(&u.ID, &u.RSN, &u.HadInfernal, &u.CreatedAt)
	return u, err
}

// EnsureMember records team membership for a user.  The first player to
// join becomes the team leader; everyone after is a member.  Re-joining
// is a duplicate-key no-op thanks to the (team_id, user_id) primary key,
// and a re-join never changes the stored role.
func (r *UserRepo) EnsureMember(ctx context.Context, teamID, userID uint64) error {
	var members int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM team_members WHERE team_id=?", teamID).Scan(&members); err != nil {
		return err
	}
	role := model.RoleMember
	if members == 0 {
		role = model.RoleLeader
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO team_members (team_id, user_id, role, joined_at) VALUES (?,?,?,?)",
		teamID, userID, role, time.Now().UTC())
	if err != nil && !isDuplicate(err) {
		return err
	}
	return nil
}

// RoleOf returns the user's role on the team, or sql.ErrNoRows when the
// user is not a member.
func (r *UserRepo) RoleOf(ctx context.Context, teamID, userID uint64) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM team_members WHERE team_id=? AND user_id=? LIMIT 1",
		teamID, userID).Scan(&role)
	return role, err
}

// IsMember reports whether the user belongs to the team.
func (r *UserRepo) IsMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM team_members WHERE team_id=? AND user_id=? LIMIT 1",
		teamID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HadInfernalTx reads the user's one-time gate flag inside the caller's
// transaction.  The flag is only ever read and flipped in the same
// transaction that inserts the gated completion, so the check and the
// flip commit or roll back together.
func (r *UserRepo) HadInfernalTx(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
	var had bool
	err := tx.QueryRowContext(ctx,
		"SELECT had_infernal FROM users WHERE id=? LIMIT 1",
		userID).Scan(&had)
	return had, err
}

// ClaimInfernalGateTx flips the gate flag and reports whether this call
// won it.  The status predicate makes the flip conditional: of several
// transactions racing to claim the gate — including ones completing
// different gated squares — the row lock serializes them and only the
// first sees an unset flag, so at most one gated completion ever records
// per user.  Forward-only; nothing unsets the flag.
func (r *UserRepo) ClaimInfernalGateTx(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET had_infernal=1 WHERE id=? AND had_infernal=0", userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
