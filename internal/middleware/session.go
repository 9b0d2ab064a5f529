package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/osrs-team-bingo/internal/auth"
)

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and injects the resolved identity into the request context.  This
// middleware wraps all human-facing team routes so that handlers can read
// the caller via `c.Get("identity")` (an auth.Identity).  Machine clients
// never pass through here; the plugin endpoint authenticates with its own
// credential pair.
func SessionAuth(resolver *auth.SessionResolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            ident, err := resolver.Resolve(c.Request().Context(), auth.Credential{SessionToken: raw})
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Store the resolved identity for handlers and downstream
            // middleware (the team-scope guard reads it).
            c.Set("identity", ident)
            return next(c)
        }
    }
}

// IdentityFrom extracts the identity stored by SessionAuth.  The boolean
// is false when the middleware did not run or resolution failed.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
    ident, ok := c.Get("identity").(auth.Identity)
    return ident, ok
}
