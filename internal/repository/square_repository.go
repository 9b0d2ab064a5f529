package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/osrs-team-bingo/internal/model"
	"github.com/iliyamo/osrs-team-bingo/internal/rules"
)

// SquareRepo provides access to squares and the aggregated board view.
type SquareRepo struct{ DB *sql.DB }

func NewSquareRepo(db *sql.DB) *SquareRepo { return &SquareRepo{DB: db} }

// ListByTeam returns all squares of a team with their stored rule JSON.
func (r *SquareRepo) ListByTeam(ctx context.Context, teamID uint64) ([]model.Square, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,team_id,code,title,rule_json,created_at FROM squares WHERE team_id=? ORDER BY id",
		teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var squares []model.Square
	for rows.Next() {
		var s model.Square
		if err := rows.Scan(&s.ID, &s.TeamID, &s.Code, &s.Title, &s.RuleJSON, &s.CreatedAt); err != nil {
			return nil, err
		}
		squares = append(squares, s)
	}
	return squares, rows.Err()
}

// GetByCode fetches one square by its team-scoped code.
func (r *SquareRepo) GetByCode(ctx context.Context, teamID uint64, code string) (model.Square, error) {
	var s model.Square
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,team_id,code,title,rule_json,created_at FROM squares WHERE team_id=? AND code=? LIMIT 1",
		teamID, code).Scan(&s.ID, &s.TeamID, &s.Code, &s.Title, &s.RuleJSON, &s.CreatedAt)
	return s, err
}

// defaultSquare pairs the seed board's static content with its typed rule.
type defaultSquare struct {
	Code  string
	Title string
	Rule  rules.Rule
}

// The default board.  Item and NPC identifiers are the game's own ids;
// the codes are what claims and completions report back to players.
var defaultBoard = []defaultSquare{
	{"BCP_GRAARDOR", "Bandos chestplate from General Graardor", rules.LootItemFromNPC{NPCID: 2215, ItemID: 11832}},
	{"HILT_KRIL", "Zamorakian hilt from K'ril Tsutsaroth", rules.LootItemFromNPC{NPCID: 3129, ItemID: 11816}},
	{"VISAGE_VORKATH", "Draconic visage from Vorkath", rules.LootItemFromNPC{NPCID: 8061, ItemID: 11286}},
	{"COX_TRIO", "Chambers of Xeric in a trio or larger", rules.RaidComplete{Raid: "COX", MinPartySize: 3}},
	{"TOB_ANY", "Theatre of Blood completion", rules.RaidComplete{Raid: "TOB", MinPartySize: 1}},
	{"FIRST_CAPE", "First infernal cape on the team", rules.FirstItem{ItemID: 21295}},
	{"DKS_RINGS", "All three Dagannoth Kings rings", rules.CollogAll{ItemIDs: []int64{6737, 6739, 6735}}},
	{"ANY_ZENYTE", "Any zenyte shard in the collection log", rules.CollogItem{ItemIDs: []int64{19529, 19547, 19550, 19553}}},
}

// SeedDefaults inserts the default board for a team.  Idempotent: squares
// that already exist (team_id, code unique key) are skipped.  Returns how
// many squares were newly inserted.
func (r *SquareRepo) SeedDefaults(ctx context.Context, teamID uint64) (int, error) {
	seeded := 0
	now := time.Now().UTC()
	for _, d := range defaultBoard {
		ruleJSON, err := rules.Encode(d.Rule)
		if err != nil {
			return seeded, err
		}
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO squares (team_id, code, title, rule_json, created_at) VALUES (?,?,?,?,?)",
			teamID, d.Code, d.Title, string(ruleJSON), now)
		if err != nil {
			if isDuplicate(err) {
				continue
			}
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

// BoardSquare is one square in the board view along with everyone's
// claims and completions on it.
type BoardSquare struct {
	ID          uint64            `json:"id"`
	Code        string            `json:"code"`
	Title       string            `json:"title"`
	Claims      []BoardClaim      `json:"claims"`
	Completions []BoardCompletion `json:"completions"`
}

type BoardClaim struct {
	ClaimID uint64 `json:"claimId"`
	Status  string `json:"status"`
	RSN     string `json:"rsn"`
	UserID  uint64 `json:"userId"`
}

type BoardCompletion struct {
	RSN         string    `json:"rsn"`
	CompletedAt time.Time `json:"completedAt"`
}

// Board returns the team's squares with claims and completions attached.
// Three queries assembled in memory; the board is small and this avoids a
// fan-out join.
func (r *SquareRepo) Board(ctx context.Context, teamID uint64) ([]BoardSquare, error) {
	squares, err := r.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	board := make([]BoardSquare, 0, len(squares))
	idx := make(map[uint64]int, len(squares))
	for i, s := range squares {
		board = append(board, BoardSquare{
			ID:          s.ID,
			Code:        s.Code,
			Title:       s.Title,
			Claims:      []BoardClaim{},
			Completions: []BoardCompletion{},
		})
		idx[s.ID] = i
	}

	const claimQ = `SELECT c.square_id, c.id, c.status, c.user_id, u.rsn
	                FROM claims c
	                JOIN users u ON u.id = c.user_id
	                WHERE c.team_id = ?
	                ORDER BY c.id`
	crows, err := r.DB.QueryContext(ctx, claimQ, teamID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var squareID uint64
		var bc BoardClaim
		if err := crows.Scan(&squareID, &bc.ClaimID, &bc.Status, &bc.UserID, &bc.RSN); err != nil {
			return nil, err
		}
		if i, ok := idx[squareID]; ok {
			board[i].Claims = append(board[i].Claims, bc)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	const compQ = `SELECT co.square_id, u.rsn, co.completed_at
	               FROM completions co
	               JOIN users u ON u.id = co.user_id
	               WHERE co.team_id = ?
	               ORDER BY co.id`
	rows, err := r.DB.QueryContext(ctx, compQ, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var squareID uint64
		var bc BoardCompletion
		if err := rows.Scan(&squareID, &bc.RSN, &bc.CompletedAt); err != nil {
			return nil, err
		}
		if i, ok := idx[squareID]; ok {
			board[i].Completions = append(board[i].Completions, bc)
		}
	}
	return board, rows.Err()
}
