package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/middleware"
	"github.com/iliyamo/osrs-team-bingo/internal/model"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
)

// ClaimHandler creates claims on squares for the authenticated user.
type ClaimHandler struct {
	Squares  *repository.SquareRepo
	Claims   *repository.ClaimRepo
	RDB      *redis.Client
	CacheCfg config.BoardCacheConfig
}

func NewClaimHandler(squares *repository.SquareRepo, claims *repository.ClaimRepo, rdb *redis.Client, cacheCfg config.BoardCacheConfig) *ClaimHandler {
	if squares == nil || claims == nil {
		panic("nil repository passed to NewClaimHandler")
	}
	return &ClaimHandler{Squares: squares, Claims: claims, RDB: rdb, CacheCfg: cacheCfg}
}

type claimReq struct {
	SquareCode   string `json:"squareCode"`
	EvidencePath string `json:"evidencePath"`
}

// CreateClaim handles POST /v1/teams/:id/claims.  Without evidence the
// claim records declared intent (CLAIMED); with an evidencePath pointing
// at an uploaded proof screenshot it enters the leader's review queue as
// PENDING instead.  404 for an unknown square code, 409 when the caller
// already holds an active claim on that square.
func (h *ClaimHandler) CreateClaim(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var req claimReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.SquareCode = strings.TrimSpace(req.SquareCode)
	req.EvidencePath = strings.TrimSpace(req.EvidencePath)
	if req.SquareCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "squareCode required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sq, err := h.Squares.GetByCode(ctx, teamID, req.SquareCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "square not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var claimID uint64
	status := model.ClaimClaimed
	if req.EvidencePath != "" {
		status = model.ClaimPending
		claimID, err = h.Claims.CreatePending(ctx, teamID, sq.ID, ident.UserID, req.EvidencePath)
	} else {
		claimID, err = h.Claims.Create(ctx, teamID, sq.ID, ident.UserID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "square already claimed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create claim failed"})
	}
	middleware.InvalidateBoard(ctx, h.RDB, h.CacheCfg, teamID)
	return c.JSON(http.StatusCreated, echo.Map{"claimId": claimID, "status": status})
}

// AbandonClaim handles DELETE /v1/teams/:id/claims/:claimId.  Only the
// claimant can abandon, and only while the claim is still active.
func (h *ClaimHandler) AbandonClaim(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	claimID, err := strconv.ParseUint(c.Param("claimId"), 10, 64)
	if err != nil || claimID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid claim id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Claims.Abandon(ctx, teamID, claimID, ident.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active claim"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "abandon failed"})
	}
	middleware.InvalidateBoard(ctx, h.RDB, h.CacheCfg, teamID)
	return c.JSON(http.StatusOK, echo.Map{"status": model.ClaimAbandoned})
}
