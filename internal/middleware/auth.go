package middleware

import (
	"dealsplit-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		// Attach auth context for handlers (same key)
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Actor is the session user with parsed ids.
type Actor struct {
	UserID uuid.UUID
	Role   string
	OrgID  uuid.UUID
}

// CurrentActor parses the session user. ok is false when there is no user
// or the user does not belong to an org.
func CurrentActor(c *fiber.Ctx) (Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return Actor{}, false
	}
	userID, err := uuid.Parse(str(m["user_id"]))
	if err != nil {
		return Actor{}, false
	}
	var orgStr string
	switch o := m["org_id"].(type) {
	case string:
		orgStr = o
	case *string:
		if o != nil {
			orgStr = *o
		}
	}
	orgID, err := uuid.Parse(orgStr)
	if err != nil {
		return Actor{}, false
	}
	return Actor{UserID: userID, Role: str(m["role"]), OrgID: orgID}, true
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
