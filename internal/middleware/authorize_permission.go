package middleware

import (
	"dealsplit-backend/internal/constants"
	"dealsplit-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission lets the request through when the session role holds
// permission. Missing user: 401. Unknown permission or empty role: 500.
// Role without the permission: 403.
func AuthorizePermission(permission string) fiber.Handler {
	if _, ok := constants.PermissionRoles[permission]; !ok {
		log.Error().Str("permission", permission).Msg("route guarded by unknown permission")
	}
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		role := getRoleFromUser(user)
		if role == "" {
			return response.Error(c, "Authorization error", fiber.StatusInternalServerError, nil)
		}
		if roles := constants.PermissionRoles[permission]; len(roles) == 0 {
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, role) {
			log.Info().Str("trace_id", GetTraceID(c)).Str("role", role).Str("permission", permission).
				Msg("permission denied")
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		return c.Next()
	}
}

func getRoleFromUser(user interface{}) string {
	m, ok := user.(map[string]interface{})
	if !ok {
		return ""
	}
	r, _ := m["role"].(string)
	return r
}
