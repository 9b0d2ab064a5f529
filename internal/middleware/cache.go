package middleware

import (
    "bytes"
    "context"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/osrs-team-bingo/internal/config"
)

// boardCaptureWriter captures the response body while forwarding it to the
// client, so a successful board render can be stored verbatim.
type boardCaptureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (cw *boardCaptureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *boardCaptureWriter) Write(b []byte) (int, error) {
    cw.buf.Write(b)
    return cw.ResponseWriter.Write(b)
}

func boardKey(prefix string, teamID string) string {
    return fmt.Sprintf("%s:team:%s", prefix, teamID)
}

// BoardCache caches the rendered board JSON per team for a short TTL.
// Board reads dominate traffic (every teammate polling the page) while the
// underlying rows change only on claims, seeds and completions, which all
// call InvalidateBoard.  With Redis unavailable the middleware is a
// pass-through.
func BoardCache(cfg config.BoardCacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := boardKey(cfg.Prefix, c.Param("id"))

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil && len(body) > 0 {
                c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
                c.Response().Header().Set("X-Cache", "HIT")
                c.Response().WriteHeader(http.StatusOK)
                _, werr := c.Response().Write(body)
                return werr
            }

            cw := &boardCaptureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status == http.StatusOK && cw.buf.Len() > 0 {
                _ = rdb.SetEx(context.Background(), key, cw.buf.Bytes(), ttl).Err()
            }
            return nil
        }
    }
}

// InvalidateBoard drops the cached board for a team.  Called after any
// write that changes what the board shows; errors are ignored since the
// TTL bounds staleness anyway.
func InvalidateBoard(ctx context.Context, rdb *redis.Client, cfg config.BoardCacheConfig, teamID uint64) {
    if rdb == nil || !cfg.Enabled {
        return
    }
    _ = rdb.Del(ctx, boardKey(cfg.Prefix, fmt.Sprint(teamID))).Err()
}
