package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
)

// TeamRepo provides access to the teams table.
type TeamRepo struct{ DB *sql.DB }

func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{DB: db} }

// Create inserts a team with an already-hashed join code and returns its ID.
// The plaintext code never reaches this layer.
func (r *TeamRepo) Create(ctx context.Context, name, joinCodeHash string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO teams (name, join_code_hash, created_at) VALUES (?,?,?)",
		name, joinCodeHash, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a team by id.
func (r *TeamRepo) GetByID(ctx context.Context, id uint64) (model.Team, error) {
	var t model.Team
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,join_code_hash,created_at FROM teams WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.Name, &t.JoinCodeHash, &t.CreatedAt)
	return t, err
}

// ListAll returns every team.  Join requests carry only the plaintext
// code, so resolving a code means bcrypt-comparing it against each stored
// hash; team cardinality is tiny, so a full scan is fine and keeps the
// code one-way-hashed.
func (r *TeamRepo) ListAll(ctx context.Context) ([]model.Team, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,join_code_hash,created_at FROM teams ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.JoinCodeHash, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
