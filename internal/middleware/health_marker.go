package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis keys of the request counters read by the health endpoints.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"

	errorLogSize = 50
)

type requestEntry struct {
	Time    time.Time `json:"time"`
	IP      string    `json:"ip,omitempty"`
	Path    string    `json:"path"`
	Method  string    `json:"method"`
	Status  int       `json:"status,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// HealthMarker counts requests, latency and 5xx responses in Redis. The
// dashboard and health routes themselves are not counted.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipHealthMarker(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		ctx := context.Background()
		last, _ := json.Marshal(requestEntry{Time: start, IP: c.IP(), Path: c.OriginalURL(), Method: c.Method()})
		if _, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, KeyLastReq, last, 0)
			p.Incr(ctx, KeyReqTotal)
			return nil
		}); err != nil {
			log.Debug().Err(err).Msg("health marker: request count failed")
		}

		err := c.Next()

		status := c.Response().StatusCode()
		_, perr := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, KeyResCount)
			p.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
			if status >= fiber.StatusInternalServerError {
				entry, _ := json.Marshal(requestEntry{
					Time: time.Now(), Path: c.OriginalURL(), Method: c.Method(),
					Status: status, TraceID: GetTraceID(c),
				})
				p.Incr(ctx, KeyReqErrors)
				p.LPush(ctx, KeyErrorLog, entry)
				p.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
			}
			return nil
		})
		if perr != nil {
			log.Debug().Err(perr).Msg("health marker: response count failed")
		}
		return err
	}
}

func skipHealthMarker(path string) bool {
	return path == "/" || path == "/reset" ||
		strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}
