package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes
    "strconv"  // strconv parses the team id path parameter

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireTeamParam returns a middleware that enforces that the
// authenticated session belongs to the team named in the :id path
// parameter.  A well-formed token for a different team is a valid
// credential aimed at the wrong resource, so the mismatch is 403, not
// 401.  It assumes SessionAuth already stored the identity in the
// context.
func RequireTeamParam() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            teamID, err := strconv.ParseUint(c.Param("id"), 10, 64)
            if err != nil || teamID == 0 {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid team id"})
            }
            ident, ok := IdentityFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            if ident.TeamID != teamID {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
