package auth

import (
    "context"

    "github.com/golang-jwt/jwt/v5"
)

// SessionResolver verifies signed HS256 session tokens issued at join
// time.  Verification is signature + expiry only; the token itself
// asserts the (team, user, rsn) identity, so no database access happens
// here.
type SessionResolver struct {
    Secret string
}

func NewSessionResolver(secret string) *SessionResolver {
    return &SessionResolver{Secret: secret}
}

// Resolve parses and verifies the session token from cred.SessionToken.
// Any parse, signature or expiry failure yields ErrUnauthenticated.
func (r *SessionResolver) Resolve(_ context.Context, cred Credential) (Identity, error) {
    if cred.SessionToken == "" {
        return Identity{}, ErrUnauthenticated
    }
    tok, err := jwt.Parse(cred.SessionToken, func(t *jwt.Token) (interface{}, error) {
        // Only HMAC tokens are ever issued; reject other methods.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrUnauthenticated
        }
        return []byte(r.Secret), nil
    })
    if err != nil || !tok.Valid {
        return Identity{}, ErrUnauthenticated
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Identity{}, ErrUnauthenticated
    }
    ident := Identity{}
    // JWT numeric values decode as float64.
    if sub, ok := claims["sub"].(float64); ok {
        ident.UserID = uint64(sub)
    }
    if team, ok := claims["team_id"].(float64); ok {
        ident.TeamID = uint64(team)
    }
    if rsn, ok := claims["rsn"].(string); ok {
        ident.RSN = rsn
    }
    if ident.UserID == 0 || ident.TeamID == 0 {
        return Identity{}, ErrUnauthenticated
    }
    return ident, nil
}
