package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed cookie session.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
	// CookieDomain is set on the cookie in production when non-empty.
	CookieDomain string
}

const (
	SessionCookieName  = "dealsplit.sid"
	SessionRedisPrefix = "session:"
	sessionMaxAge      = 24 * time.Hour

	sessionIDLocal   = "session_id"
	sessionDataLocal = "session_data"
)

// SessionUser is the shape stored in session under "user".
type SessionUser struct {
	UserID   string  `json:"user_id"`
	Fullname string  `json:"fullname"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	OrgID    *string `json:"org_id"`
}

// Session returns a middleware that loads the session named by the
// dealsplit.sid cookie from Redis and writes it back after the handler.
// Non-empty sessions get a rolling 24h TTL.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)

	return func(c *fiber.Ctx) error {
		sessionID := sessionIDFromCookie(c.Cookies(SessionCookieName))
		data := loadSession(c.UserContext(), rdb, sessionID)

		c.Locals(sessionDataLocal, data)
		c.Locals(userLocal, data["user"])
		c.Locals(sessionIDLocal, sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		sid := GetSessionID(c)
		updated, _ := c.Locals(sessionDataLocal).(map[string]interface{})
		if sid != "" && len(updated) > 0 {
			saveSession(c.UserContext(), rdb, sid, updated)
		}
		return nil
	}, rdb, nil
}

// sessionIDFromCookie accepts "s:<id>", "s:<id>.<signature>" or a bare id.
func sessionIDFromCookie(raw string) string {
	if !strings.HasPrefix(raw, "s:") {
		return raw
	}
	id, _, _ := strings.Cut(raw[2:], ".")
	return id
}

func loadSession(ctx context.Context, rdb *redis.Client, sessionID string) map[string]interface{} {
	data := make(map[string]interface{})
	if sessionID == "" {
		return data
	}
	b, err := rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("session load failed")
		}
		return data
	}
	if err := json.Unmarshal(b, &data); err != nil {
		log.Warn().Err(err).Msg("session decode failed")
		return make(map[string]interface{})
	}
	return data
}

func saveSession(ctx context.Context, rdb *redis.Client, sessionID string, data map[string]interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("session encode failed")
		return
	}
	if err := rdb.Set(ctx, SessionRedisPrefix+sessionID, b, sessionMaxAge).Err(); err != nil {
		log.Warn().Err(err).Msg("session save failed")
	}
}

// GetSessionID returns the current session id ("" when none).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// SetSessionUser stores user in the session; it is persisted after the
// handler returns. Call RegenerateSessionID first on login.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals(sessionDataLocal).(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["user"] = map[string]interface{}{
		"user_id":  user.UserID,
		"fullname": user.Fullname,
		"email":    user.Email,
		"role":     user.Role,
		"org_id":   user.OrgID,
	}
	c.Locals(sessionDataLocal, data)
	c.Locals(userLocal, data["user"])
}

// RegenerateSessionID issues a fresh session id. The cookie value is "s:"+id.
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession empties the request's session so nothing is written back.
// The caller deletes the Redis key and clears the cookie.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, make(map[string]interface{}))
	c.Locals(sessionIDLocal, "")
	c.Locals(userLocal, nil)
}

// SessionCookieConfig returns the session cookie options. Cross-site dev
// needs SameSite=None; the domain is only pinned for same-site production.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	cookie := fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if cfg.AllowCrossSiteDev {
		cookie.SameSite = fiber.CookieSameSiteNoneMode
		cookie.Secure = cfg.IsProduction
	} else if cfg.IsProduction {
		cookie.Domain = cfg.CookieDomain
	}
	return cookie
}
