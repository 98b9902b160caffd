package activities

import (
	activitysvc "dealsplit-backend/internal/application/activities"
	"dealsplit-backend/internal/middleware"
	"dealsplit-backend/internal/pkg/response"
	"dealsplit-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *activitysvc.Service
}

// List GET /api/v1/activities?deal_id=&payee_id=&is_split=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}
	f := activitysvc.Filter{OrgID: actor.OrgID}
	var err error
	if f.DealID, err = validation.OptionalUUID(c.Query("deal_id"), "deal_id"); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if f.PayeeID, err = validation.OptionalUUID(c.Query("payee_id"), "payee_id"); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if f.IsSplit, err = validation.OptionalBool(c.Query("is_split"), "is_split"); err != nil {
		return response.BadRequest(c, err.Error())
	}

	list, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		return response.Error(c, "Failed to fetch activities", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Activities fetched successfully", list, nil)
}
