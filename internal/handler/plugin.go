package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/osrs-team-bingo/internal/auth"
	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/middleware"
	"github.com/iliyamo/osrs-team-bingo/internal/model"
	"github.com/iliyamo/osrs-team-bingo/internal/queue"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/rules"
	"github.com/iliyamo/osrs-team-bingo/internal/service"
)

// PluginHandler receives machine-reported gameplay events and runs the
// full pipeline: authenticate the (team, rsn, key) triple, persist the
// event, evaluate it against the team's rules and record any completions,
// all in one transaction.  Newly recorded completions fan out to the
// message broker after commit.
type PluginHandler struct {
	DB          *sql.DB
	Resolver    *auth.PluginResolver
	Teams       *repository.TeamRepo
	Users       *repository.UserRepo
	Squares     *repository.SquareRepo
	Claims      *repository.ClaimRepo
	Events      *repository.EventRepo
	Completions *repository.CompletionRepo
	RDB         *redis.Client
	CacheCfg    config.BoardCacheConfig
}

func NewPluginHandler(db *sql.DB, resolver *auth.PluginResolver, teams *repository.TeamRepo, users *repository.UserRepo, squares *repository.SquareRepo, claims *repository.ClaimRepo, events *repository.EventRepo, completions *repository.CompletionRepo, rdb *redis.Client, cacheCfg config.BoardCacheConfig) *PluginHandler {
	return &PluginHandler{
		DB:          db,
		Resolver:    resolver,
		Teams:       teams,
		Users:       users,
		Squares:     squares,
		Claims:      claims,
		Events:      events,
		Completions: completions,
		RDB:         rdb,
		CacheCfg:    cacheCfg,
	}
}

type pluginEventReq struct {
	RSN     string          `json:"rsn"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	TS      *time.Time      `json:"ts"`
}

// ReportEvent handles POST /v1/plugin/event.  The machine credential is
// carried in headers (x-team-id, x-plugin-key) while the body names the
// reporting player and the event itself.  Replays are safe: the event row
// is appended again but the completion ledger's uniqueness constraint
// turns repeat completions into no-ops, so the response only ever lists
// squares newly completed by this report.
func (h *PluginHandler) ReportEvent(c echo.Context) error {
	teamIDRaw := c.Request().Header.Get("x-team-id")
	pluginKey := c.Request().Header.Get("x-plugin-key")
	if teamIDRaw == "" || pluginKey == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing plugin credentials"})
	}
	teamID, err := strconv.ParseUint(teamIDRaw, 10, 64)
	if err != nil || teamID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid x-team-id"})
	}

	var req pluginEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RSN = strings.TrimSpace(req.RSN)
	req.Type = strings.TrimSpace(req.Type)
	if req.RSN == "" || req.Type == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rsn and type required"})
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ident, err := h.Resolver.Resolve(ctx, auth.Credential{
		TeamID:    teamID,
		RSN:       req.RSN,
		PluginKey: pluginKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnknownRSN):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "unknown rsn; join via the website first"})
		case errors.Is(err, auth.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, auth.ErrUnauthenticated):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auth failed"})
		}
	}

	// Rule decoding happens outside the transaction; the set is read-only
	// per request and squares never change mid-event.
	squares, err := h.Squares.ListByTeam(ctx, teamID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	set := make([]rules.SquareRule, 0, len(squares))
	for _, s := range squares {
		r, derr := rules.Decode([]byte(s.RuleJSON))
		if derr != nil {
			// an unparseable stored rule must not poison the whole board
			continue
		}
		set = append(set, rules.SquareRule{SquareID: s.ID, Code: s.Code, Rule: r})
	}

	ev := rules.Event{Type: req.Type, Payload: req.Payload}

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

	record := model.EvidenceEvent{
		TeamID:     teamID,
		UserID:     ident.UserID,
		EventType:  req.Type,
		Payload:    string(req.Payload),
		OccurredAt: req.TS,
	}
	if err := h.Events.InsertTx(ctx, tx, &record); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "persist event failed"})
	}

	// The gate flag is read in the same transaction that may flip it, so
	// the check-and-flip commits atomically with the gated completion.
	hadInfernal, err := h.Users.HadInfernalTx(ctx, tx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	matches := rules.Evaluate(ev, set, rules.Gate{HadInfernal: hadInfernal})

	now := time.Now().UTC()
	completedCodes := make([]string, 0, len(matches))
	published := make([]queue.SquareCompletedEvent, 0, len(matches))
	for _, m := range matches {
		// Gated squares must win the one-shot flag before anything is
		// recorded.  The conditional flip holds the user row lock until
		// commit, so concurrent reports racing on different gated squares
		// serialize here and only one of them records a completion.
		if m.FirstItem {
			won, gerr := h.Users.ClaimInfernalGateTx(ctx, tx, ident.UserID)
			if gerr != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
			}
			if !won {
				continue
			}
		}
		fresh, ierr := h.Completions.InsertTx(ctx, tx, teamID, m.SquareID, ident.UserID, record.ID, now)
		if ierr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record completion failed"})
		}
		if !fresh {
			continue
		}
		if err := h.Claims.CompleteForSquareTx(ctx, tx, teamID, m.SquareID, ident.UserID, now); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update claim failed"})
		}
		completedCodes = append(completedCodes, m.Code)
		published = append(published, queue.SquareCompletedEvent{
			TeamID:          teamID,
			SquareID:        m.SquareID,
			SquareCode:      m.Code,
			UserID:          ident.UserID,
			RSN:             ident.RSN,
			EvidenceEventID: record.ID,
			EventType:       req.Type,
			CompletedAt:     now.Format(time.RFC3339),
		})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if len(completedCodes) > 0 {
		middleware.InvalidateBoard(ctx, h.RDB, h.CacheCfg, teamID)

		// Fan-out is best-effort: the completions are committed, a broker
		// outage only loses the notification.
		teamName := ""
		if team, terr := h.Teams.GetByID(ctx, teamID); terr == nil {
			teamName = team.Name
		}
		for i := range published {
			published[i].TeamName = teamName
			_ = service.PublishSquareCompleted(context.Background(), published[i])
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"completed": completedCodes})
}
