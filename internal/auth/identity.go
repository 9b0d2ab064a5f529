// Package auth resolves request credentials to a team-scoped identity.
// Two independent credential types exist and are never interchangeable:
// signed session tokens for humans in a browser, and rotate-able hashed
// plugin keys for unattended game clients.  Downstream code (rule
// evaluation, completion recording) only ever sees the resolved Identity
// and never needs to know which path authenticated the caller.
package auth

import (
    "context"
    "errors"
)

// Identity is the resolved (team, user) pair a request acts as.
type Identity struct {
    TeamID uint64
    UserID uint64
    RSN    string
}

// Credential carries whichever credential a request presented.  The
// session path fills SessionToken; the machine path fills TeamID, RSN and
// PluginKey.
type Credential struct {
    SessionToken string

    TeamID    uint64
    RSN       string
    PluginKey string
}

// Resolver validates a credential and resolves it to an identity.
type Resolver interface {
    Resolve(ctx context.Context, cred Credential) (Identity, error)
}

var (
    // ErrUnauthenticated means the credential is missing, malformed,
    // expired or fails verification.  Wrong-key and no-key cases are
    // deliberately indistinguishable so callers cannot tell which
    // accounts exist.
    ErrUnauthenticated = errors.New("unauthenticated")

    // ErrForbidden means the credential verified but does not grant
    // access to the claimed team.
    ErrForbidden = errors.New("forbidden")

    // ErrUnknownRSN means the reported display name has never joined.
    // Unlike the other failures this one is guidance-bearing, not
    // security-sensitive: the fix is to join through the website first.
    ErrUnknownRSN = errors.New("unknown rsn")
)
