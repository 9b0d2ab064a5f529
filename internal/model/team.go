package model

import "time"

// Team represents a row in the `teams` table.  A team is the root of
// ownership: users join it, squares belong to it and every completion is
// scoped to it.  The join code is stored only as a bcrypt hash; the
// plaintext code is distributed out of band by whoever created the team.
//
// Fields:
//  ID           – primary key identifier of the team.
//  Name         – display name shown on the board.
//  JoinCodeHash – bcrypt hash of the shared join code.
//  CreatedAt    – timestamp of creation.
type Team struct {
    ID           uint64    // teams.id
    Name         string    // teams.name
    JoinCodeHash string    // teams.join_code_hash
    CreatedAt    time.Time // teams.created_at
}

// Membership roles.  The first player to join a team becomes its leader
// and reviews evidence-backed claims; everyone after is a member.
const (
    RoleLeader = "leader"
    RoleMember = "member"
)

// TeamMembership models a row in the `team_members` table.  The
// (TeamID, UserID) pair is the primary key, which is what makes joining
// idempotent: a second join of the same team is a duplicate-key no-op.
type TeamMembership struct {
    TeamID   uint64    // team_members.team_id
    UserID   uint64    // team_members.user_id
    Role     string    // team_members.role
    JoinedAt time.Time // team_members.joined_at
}
