package deals

import (
	"errors"

	dealsvc "dealsplit-backend/internal/application/deals"
	"dealsplit-backend/internal/middleware"
	"dealsplit-backend/internal/pkg/response"
	"dealsplit-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *dealsvc.Service
}

// List GET /api/v1/deals
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}
	deals, err := h.Service.ListDeals(c.UserContext(), actor.OrgID)
	if err != nil {
		return response.Error(c, "Failed to fetch deals", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Deals fetched successfully", deals, nil)
}

// Get GET /api/v1/deals/:deal_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	dealID, err := validation.UUID(c.Params("deal_id"), "deal_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}
	deal, err := h.Service.GetDeal(c.UserContext(), actor.OrgID, dealID)
	if errors.Is(err, dealsvc.ErrDealNotFound) {
		return response.NotFound(c, err.Error())
	}
	if err != nil {
		return response.Error(c, "Failed to fetch deal", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Deal fetched successfully", deal, nil)
}

// Create POST /api/v1/deals. owner_id defaults to the caller.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		Company string           `json:"company"`
		Name    string           `json:"name"`
		Value   *decimal.Decimal `json:"value"`
		OwnerID string           `json:"owner_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.Value == nil {
		return response.BadRequest(c, "Missing required fields")
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}
	ownerID := actor.UserID
	if body.OwnerID != "" {
		id, err := validation.UUID(body.OwnerID, "owner_id")
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		ownerID = id
	}

	deal, err := h.Service.CreateDeal(c.UserContext(), dealsvc.CreateDealInput{
		OrgID: actor.OrgID, OwnerID: ownerID,
		Company: body.Company, Name: body.Name, Value: *body.Value,
	})
	switch {
	case errors.Is(err, dealsvc.ErrDealNameRequired), errors.Is(err, dealsvc.ErrNegativeValue),
		errors.Is(err, dealsvc.ErrOwnerNotInOrg):
		return response.BadRequest(c, err.Error())
	case err != nil:
		return response.Error(c, "Failed to create deal", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Deal created successfully", deal, nil)
}
