package handler

import (
    "context"      // provides context with cancellation for DB calls
    "database/sql" // SQL database interactions
    "net/http"     // HTTP status codes and primitives
    "strings"      // string manipulation utilities
    "time"         // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/osrs-team-bingo/internal/config"     // app configuration
    "github.com/iliyamo/osrs-team-bingo/internal/model"      // table-mirroring structs
    "github.com/iliyamo/osrs-team-bingo/internal/repository" // DB repositories
    "github.com/iliyamo/osrs-team-bingo/internal/utils"      // helper functions (hashing, token issuing)
)

// JoinHandler bundles dependencies for the join endpoint.
type JoinHandler struct {
	Cfg   config.Config
	DB    *sql.DB
	Teams *repository.TeamRepo
	Users *repository.UserRepo
	Keys  *repository.PluginKeyRepo
}

func NewJoinHandler(cfg config.Config, db *sql.DB, t *repository.TeamRepo, u *repository.UserRepo, k *repository.PluginKeyRepo) *JoinHandler {
	return &JoinHandler{Cfg: cfg, DB: db, Teams: t, Users: u, Keys: k}
}

// ----- DTOs -----

type joinReq struct {
	RSN      string `json:"rsn"`
	TeamCode string `json:"teamCode"`
}

type joinResp struct {
	TeamID       uint64 `json:"teamId"`
	TeamName     string `json:"teamName"`
	RSN          string `json:"rsn"`
	SessionToken string `json:"sessionToken"`
	PluginKey    string `json:"pluginKey"`
}

// validRSN checks the shape of an in-game display name: 1-12 characters,
// letters, digits, spaces, hyphens and underscores.
func validRSN(rsn string) bool {
	if len(rsn) == 0 || len(rsn) > 12 {
		return false
	}
	for _, r := range rsn {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Join: resolve the team code, create the user and membership on first
// contact, rotate the plugin key and return a session token.  Joining is
// idempotent except for the key rotation, which deliberately invalidates
// any previously issued plugin key — the plaintext is only ever shown
// once, so re-joining is also how a player recovers from a lost key.
func (h *JoinHandler) Join(c echo.Context) error {
	var req joinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RSN = strings.TrimSpace(req.RSN)
	req.TeamCode = strings.TrimSpace(req.TeamCode)
	if !validRSN(req.RSN) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rsn"})
	}
	if req.TeamCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "teamCode required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Resolve the code against each team's stored hash; codes are one-way
	// hashed so there is nothing to look up by.
	teams, err := h.Teams.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	var team *model.Team
	for i := range teams {
		if utils.VerifySecret(teams[i].JoinCodeHash, req.TeamCode) {
			team = &teams[i]
			break
		}
	}
	if team == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid team code"})
	}

	// Get or create the user.  A concurrent first join can race the
	// insert; the duplicate error just means the other request won.
	user, err := h.Users.GetByRSN(ctx, req.RSN)
	if err == sql.ErrNoRows {
		uid, cerr := h.Users.Create(ctx, req.RSN)
		if cerr == repository.ErrRSNExists {
			user, err = h.Users.GetByRSN(ctx, req.RSN)
		} else if cerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		} else {
			user = model.User{ID: uid, RSN: req.RSN}
			err = nil
		}
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Users.EnsureMember(ctx, team.ID, user.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "join failed"})
	}

	// Rotate the plugin key: revoke-then-insert in one transaction so at
	// most one active key exists per (team, user) at any commit point.
	plainKey, err := utils.NewPluginKey()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue key failed"})
	}
	keyHash, err := utils.HashSecret(plainKey, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue key failed"})
	}
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Keys.RevokeActiveTx(ctx, tx, team.ID, user.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate key failed"})
	}
	if err := h.Keys.InsertTx(ctx, tx, team.ID, user.ID, keyHash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate key failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	session, err := utils.NewSessionToken(h.Cfg.JWTSecret, team.ID, user.ID, user.RSN, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	return c.JSON(http.StatusOK, joinResp{
		TeamID:       team.ID,
		TeamName:     team.Name,
		RSN:          user.RSN,
		SessionToken: session.Token,
		PluginKey:    plainKey, // plaintext back to the client, exactly once
	})
}
