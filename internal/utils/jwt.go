package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"  // secure random number generation
    "encoding/hex" // hex encoding for generated keys
    "time"         // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed JWT session token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Session tokens are issued at join time and
// sent in the Authorization header on every browser call; trust is
// entirely in the signature, there is no per-request database lookup.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT asserting a (team, user,
// rsn) identity.  It takes the signing secret, the identifiers to embed
// and a TTL in minutes.  The JWT includes the subject (sub = user ID),
// team_id, rsn, expiration (exp) and issued at (iat) claims.
func NewSessionToken(secret string, teamID, userID uint64, rsn string, ttlMin int) (SessionToken, error) {
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    // Construct the JWT claims.  Using MapClaims allows arbitrary key/value
    // pairs.  sub carries the user ID, team_id the team the session was
    // issued for, rsn the display identifier shown on the board.
    claims := jwt.MapClaims{
        "sub":     userID,
        "team_id": teamID,
        "rsn":     rsn,
        "exp":     exp.Unix(),
        "iat":     time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// NewPluginKey returns a cryptographically secure random machine credential
// for the game client plugin.  The plaintext is handed to the client
// exactly once; only its bcrypt hash is persisted, so a lost key can only
// be replaced by rotating, never recovered.
func NewPluginKey() (string, error) {
    return randomHex(32) // 32 bytes -> 64 hex chars
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  If the random number generator
// fails, an error is returned.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
