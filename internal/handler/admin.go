package handler

import (
	"context"
	"crypto/hmac"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/utils"
)

// AdminHandler holds the administrative endpoints.  They are guarded by a
// shared x-admin-key header rather than a session: team creation happens
// before any session can exist.  With ADMIN_KEY unset the endpoints are
// disabled entirely.
type AdminHandler struct {
	Cfg   config.Config
	Teams *repository.TeamRepo
}

func NewAdminHandler(cfg config.Config, teams *repository.TeamRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Teams: teams}
}

type createTeamReq struct {
	Name     string `json:"name"`
	JoinCode string `json:"joinCode"`
}

// CreateTeam handles POST /v1/admin/teams.  It stores the team with a
// bcrypt hash of the join code; the plaintext is never persisted or
// logged, so the admin must distribute it to players themselves.
func (h *AdminHandler) CreateTeam(c echo.Context) error {
	if h.Cfg.AdminKey == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	provided := c.Request().Header.Get("x-admin-key")
	if !hmac.Equal([]byte(provided), []byte(h.Cfg.AdminKey)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid admin key"})
	}

	var req createTeamReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.JoinCode = strings.TrimSpace(req.JoinCode)
	if req.Name == "" || len(req.JoinCode) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and joinCode (min 6 chars) required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashSecret(req.JoinCode, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	id, err := h.Teams.Create(ctx, req.Name, hash)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create team failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"teamId": id})
}
