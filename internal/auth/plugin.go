package auth

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/osrs-team-bingo/internal/repository"
    "github.com/iliyamo/osrs-team-bingo/internal/utils"
)

// PluginResolver verifies the machine credential pair accompanying every
// event report: the claimed team plus a plugin key, with the reported rsn
// naming the user.  Resolution requires that the rsn maps to a known
// user, that the user is a member of the claimed team, and that the key
// verifies against the single active hash for the (team, user) pair.
type PluginResolver struct {
    Users *repository.UserRepo
    Keys  *repository.PluginKeyRepo
}

func NewPluginResolver(users *repository.UserRepo, keys *repository.PluginKeyRepo) *PluginResolver {
    return &PluginResolver{Users: users, Keys: keys}
}

// Resolve checks the (team, rsn, key) triple.  An rsn that has never
// joined returns ErrUnknownRSN so the client can tell the player to join
// first; every other failure collapses to ErrForbidden so nothing leaks
// about which keys or memberships exist.
func (r *PluginResolver) Resolve(ctx context.Context, cred Credential) (Identity, error) {
    if cred.TeamID == 0 || cred.RSN == "" || cred.PluginKey == "" {
        return Identity{}, ErrUnauthenticated
    }
    u, err := r.Users.GetByRSN(ctx, cred.RSN)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return Identity{}, ErrUnknownRSN
        }
        return Identity{}, err
    }
    member, err := r.Users.IsMember(ctx, cred.TeamID, u.ID)
    if err != nil {
        return Identity{}, err
    }
    if !member {
        return Identity{}, ErrForbidden
    }
    hash, err := r.Keys.ActiveHash(ctx, cred.TeamID, u.ID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            // no active key reads the same as a wrong key
            return Identity{}, ErrForbidden
        }
        return Identity{}, err
    }
    if !utils.VerifySecret(hash, cred.PluginKey) {
        return Identity{}, ErrForbidden
    }
    return Identity{TeamID: cred.TeamID, UserID: u.ID, RSN: u.RSN}, nil
}
