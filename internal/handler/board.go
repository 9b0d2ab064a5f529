package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/middleware"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
)

// BoardHandler serves the aggregated board view and board seeding.  All
// methods assume SessionAuth and the team-scope guard already ran, so the
// :id parameter names the caller's own team.
type BoardHandler struct {
	Squares  *repository.SquareRepo
	RDB      *redis.Client
	CacheCfg config.BoardCacheConfig
}

func NewBoardHandler(squares *repository.SquareRepo, rdb *redis.Client, cacheCfg config.BoardCacheConfig) *BoardHandler {
	if squares == nil {
		panic("nil repository passed to NewBoardHandler")
	}
	return &BoardHandler{Squares: squares, RDB: rdb, CacheCfg: cacheCfg}
}

// GetBoard handles GET /v1/teams/:id/board.  It returns the team's
// squares with claims and completions.
func (h *BoardHandler) GetBoard(c echo.Context) error {
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	board, err := h.Squares.Board(ctx, teamID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load board"})
	}
	return c.JSON(http.StatusOK, echo.Map{"squares": board})
}

// SeedSquares handles POST /v1/teams/:id/seed_squares.  It seeds the
// default board for the team; already-seeded squares are skipped so the
// call is idempotent.
func (h *BoardHandler) SeedSquares(c echo.Context) error {
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seeded, err := h.Squares.SeedDefaults(ctx, teamID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "seed failed"})
	}
	middleware.InvalidateBoard(ctx, h.RDB, h.CacheCfg, teamID)
	return c.JSON(http.StatusCreated, echo.Map{"seeded": seeded})
}
