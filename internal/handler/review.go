package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/middleware"
	"github.com/iliyamo/osrs-team-bingo/internal/model"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
)

// Approving a pending claim records a completion; the synthetic evidence
// event keeps the ledger's audit trail intact for manual decisions.
const eventManualReview = "MANUAL_REVIEW"

// ReviewHandler serves the team leader's claim-review queue: listing
// evidence-backed pending claims and approving or rejecting them.
// Approval writes through the same completion ledger as the automatic
// pipeline, so a claim the pipeline already completed cannot be
// double-counted by a late review.
type ReviewHandler struct {
	DB          *sql.DB
	Users       *repository.UserRepo
	Claims      *repository.ClaimRepo
	Events      *repository.EventRepo
	Completions *repository.CompletionRepo
	RDB         *redis.Client
	CacheCfg    config.BoardCacheConfig
}

func NewReviewHandler(db *sql.DB, users *repository.UserRepo, claims *repository.ClaimRepo, events *repository.EventRepo, completions *repository.CompletionRepo, rdb *redis.Client, cacheCfg config.BoardCacheConfig) *ReviewHandler {
	return &ReviewHandler{
		DB:          db,
		Users:       users,
		Claims:      claims,
		Events:      events,
		Completions: completions,
		RDB:         rdb,
		CacheCfg:    cacheCfg,
	}
}

// requireLeader resolves the caller's role; only the team leader reviews
// claims.  Returns the caller's user ID on success, or writes the error
// response and returns ok=false.
func (h *ReviewHandler) requireLeader(c echo.Context, ctx context.Context, teamID uint64) (uint64, bool) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	role, err := h.Users.RoleOf(ctx, teamID, ident.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			return 0, false
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		return 0, false
	}
	if role != model.RoleLeader {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "leader only"})
		return 0, false
	}
	return ident.UserID, true
}

// ListPending handles GET /v1/teams/:id/claims/pending.
func (h *ReviewHandler) ListPending(c echo.Context) error {
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, ok := h.requireLeader(c, ctx, teamID); !ok {
		return nil
	}
	pending, err := h.Claims.ListPending(ctx, teamID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": pending})
}

type reviewReq struct {
	ClaimID uint64 `json:"claimId"`
	Approve bool   `json:"approve"`
}

// Review handles POST /v1/teams/:id/claims/review.  Approval moves the
// claim to COMPLETED and records a completion backed by a synthetic
// review event, all in one transaction; rejection just resolves the
// claim.  404 for a claim the team does not have, 409 when it is no
// longer pending.
func (h *ReviewHandler) Review(c echo.Context) error {
	teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ClaimID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "claimId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reviewerID, ok := h.requireLeader(c, ctx, teamID)
	if !ok {
		return nil
	}

	status := model.ClaimRejected
	if req.Approve {
		status = model.ClaimCompleted
	}
	now := time.Now().UTC()

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

	claim, err := h.Claims.ReviewTx(ctx, tx, teamID, req.ClaimID, status, reviewerID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "claim not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "claim is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "review failed"})
	}

	if req.Approve {
		payload, _ := json.Marshal(map[string]uint64{"claimId": claim.ID, "reviewerId": reviewerID})
		record := model.EvidenceEvent{
			TeamID:    teamID,
			UserID:    claim.UserID,
			EventType: eventManualReview,
			Payload:   string(payload),
		}
		if err := h.Events.InsertTx(ctx, tx, &record); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "persist event failed"})
		}
		if _, err := h.Completions.InsertTx(ctx, tx, teamID, claim.SquareID, claim.UserID, record.ID, now); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record completion failed"})
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE claims SET completed_at=? WHERE id=?", now, claim.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update claim failed"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	middleware.InvalidateBoard(ctx, h.RDB, h.CacheCfg, teamID)
	return c.JSON(http.StatusOK, echo.Map{"claimId": claim.ID, "status": status})
}
