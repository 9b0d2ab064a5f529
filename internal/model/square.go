package model

import "time"

// Square represents a bingo square in the `squares` table.  The rule
// definition is stored as JSON with a `kind` tag and decoded by the rules
// package; squares are seeded at board setup and their rules are treated
// as immutable afterwards.
//
// Fields:
//  ID        – primary key identifier.
//  TeamID    – owning team.
//  Code      – team-scoped unique short code (e.g. "DKS_RINGS").
//  Title     – human readable description shown on the board.
//  RuleJSON  – tagged rule definition as stored.
//  CreatedAt – timestamp of creation.
type Square struct {
    ID        uint64    // squares.id
    TeamID    uint64    // squares.team_id
    Code      string    // squares.code
    Title     string    // squares.title
    RuleJSON  string    // squares.rule_json
    CreatedAt time.Time // squares.created_at
}
