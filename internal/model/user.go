package model

import "time"

// User represents a player record in the `users` table.  Players are
// identified by their in-game display name (rsn); accounts are created on
// first join and never deleted.  HadInfernal is the one-time gate flag used
// by gated first-item rules: it flips to true atomically with the completion
// it gates and never flips back.
//
// Fields:
//  ID          – primary key identifier of the user.
//  RSN         – unique in-game display name.
//  HadInfernal – one-time achievement gate flag.
//  CreatedAt   – timestamp of creation.
type User struct {
    ID          uint64    // users.id
    RSN         string    // users.rsn
    HadInfernal bool      // users.had_infernal
    CreatedAt   time.Time // users.created_at
}

// PluginKey models an entry in the `plugin_keys` table.  Each key is a
// machine credential for one (team, user) pair; the plaintext is returned
// to the client exactly once at rotation and only its bcrypt hash is
// stored.  Rotation revokes the previous key and inserts the new one in a
// single transaction, so at most one non-revoked row exists per pair.
//
// Fields:
//  ID        – primary key identifier.
//  TeamID    – team the key reports events for.
//  UserID    – user the key reports events as.
//  KeyHash   – bcrypt hash of the key value.
//  CreatedAt – timestamp of creation.
//  RevokedAt – when the key was revoked (null if still active).
type PluginKey struct {
    ID        uint64     // plugin_keys.id
    TeamID    uint64     // plugin_keys.team_id
    UserID    uint64     // plugin_keys.user_id
    KeyHash   string     // plugin_keys.key_hash
    CreatedAt time.Time  // plugin_keys.created_at
    RevokedAt *time.Time // plugin_keys.revoked_at (nullable)
}
