package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/osrs-team-bingo/internal/auth"
	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/handler"
	"github.com/iliyamo/osrs-team-bingo/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the join endpoint under /v1/auth.  Joining is the
// only unauthenticated write: it exchanges a team code for a session token
// and a plugin key.
func RegisterAuth(e *echo.Echo, j *handler.JoinHandler) {
	g := e.Group("/v1/auth")
	g.POST("/join", j.Join)
}

// RegisterTeams registers the session-protected team routes.  Every route
// in the group runs SessionAuth (bearer token) and the team-scope guard,
// so handlers can trust that :id is the caller's own team.  The board read
// additionally goes through the Redis response cache.
func RegisterTeams(e *echo.Echo, b *handler.BoardHandler, cl *handler.ClaimHandler, rv *handler.ReviewHandler, resolver *auth.SessionResolver, cacheCfg config.BoardCacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/teams/:id")
	g.Use(middleware.SessionAuth(resolver))
	g.Use(middleware.RequireTeamParam())
	g.GET("/board", b.GetBoard, middleware.BoardCache(cacheCfg, rdb))
	g.POST("/seed_squares", b.SeedSquares)
	g.POST("/claims", cl.CreateClaim)
	g.DELETE("/claims/:claimId", cl.AbandonClaim)
	g.GET("/claims/pending", rv.ListPending)
	g.POST("/claims/review", rv.Review)
}

// RegisterPlugin registers the machine-facing event endpoint.  It carries
// its own credential scheme (x-team-id / x-plugin-key headers), so no
// session middleware applies; the token bucket throttles chatty clients
// before any database work happens.
func RegisterPlugin(e *echo.Echo, p *handler.PluginHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/plugin")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))
	g.POST("/event", p.ReportEvent)
}

// RegisterAdmin registers the admin endpoints.  Authentication is the
// shared x-admin-key header checked inside the handler.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	e.POST("/v1/admin/teams", a.CreateTeam)
}
