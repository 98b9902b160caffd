package splits

import (
	"errors"

	dealsvc "dealsplit-backend/internal/application/deals"
	policies "dealsplit-backend/internal/application/policies/splits"
	splitsvc "dealsplit-backend/internal/application/splits"
	"dealsplit-backend/internal/middleware"
	"dealsplit-backend/internal/pkg/response"
	"dealsplit-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handlers struct {
	Service *splitsvc.Service
	Deals   *dealsvc.Service
	DB      *gorm.DB
}

// List GET /api/v1/splits?deal_id=&payee_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}
	dealID, err := validation.OptionalUUID(c.Query("deal_id"), "deal_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	payeeID, err := validation.OptionalUUID(c.Query("payee_id"), "payee_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	list, err := h.Service.ListSplits(c.UserContext(), splitsvc.ListFilter{
		OrgID: actor.OrgID, DealID: dealID, PayeeID: payeeID,
	})
	if err != nil {
		return response.Error(c, "Failed to fetch splits", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Splits fetched successfully", list, nil)
}

// Create POST /api/v1/splits
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		DealID     string           `json:"deal_id"`
		PayeeID    string           `json:"payee_id"`
		Percentage *decimal.Decimal `json:"percentage"`
		Notes      *string          `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Missing required fields")
	}
	if body.DealID == "" || body.PayeeID == "" || body.Percentage == nil {
		return response.BadRequest(c, "Missing required fields")
	}
	dealID, err := validation.UUID(body.DealID, "deal_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	payeeID, err := validation.UUID(body.PayeeID, "payee_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.NoOrg(c)
	}

	if _, err := policies.ValidateSplitAccess(h.DB.WithContext(c.UserContext()), policies.ValidateSplitAccessParams{
		ActorUserID: actor.UserID, ActorRole: actor.Role, OrgID: actor.OrgID,
		DealID: dealID, PayeeID: &payeeID,
	}); err != nil {
		return errorResponse(c, err, "Failed to create split")
	}

	res, err := h.Service.CreateSplit(c.UserContext(), splitsvc.CreateSplitInput{
		DealID: dealID, PayeeID: payeeID, Percentage: *body.Percentage, Notes: body.Notes,
	})
	if err != nil {
		return errorResponse(c, err, "Failed to create split")
	}
	return response.SuccessCreated(c, "Split created successfully", res, nil)
}

// Update PATCH /api/v1/splits/:split_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body struct {
		Percentage *decimal.Decimal `json:"percentage"`
		Notes      *string          `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.Percentage == nil && body.Notes == nil {
		return response.BadRequest(c, "Nothing to update")
	}
	splitID, err := h.authorizeSplit(c)
	if err != nil {
		return errorResponse(c, err, "Failed to update split")
	}

	res, err := h.Service.UpdateSplit(c.UserContext(), splitID, splitsvc.UpdateSplitInput{
		Percentage: body.Percentage, Notes: body.Notes,
	})
	if err != nil {
		return errorResponse(c, err, "Failed to update split")
	}
	return response.Success(c, "Split updated successfully", res, nil)
}

// Delete DELETE /api/v1/splits/:split_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	splitID, err := h.authorizeSplit(c)
	if err != nil {
		return errorResponse(c, err, "Failed to delete split")
	}
	res, err := h.Service.DeleteSplit(c.UserContext(), splitID)
	if err != nil {
		return errorResponse(c, err, "Failed to delete split")
	}
	return response.Success(c, "Split deleted successfully", res, nil)
}

// Totals GET /api/v1/deals/:deal_id/split-totals
func (h *Handlers) Totals(c *fiber.Ctx) error {
	dealID, err := h.dealInOrg(c)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch split totals")
	}
	totals, err := h.Service.CalculateSplitTotals(c.UserContext(), dealID)
	if err != nil {
		return response.Error(c, "Failed to fetch split totals", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Split totals fetched successfully", fiber.Map{
		"total_percentage":     totals.TotalPercentage,
		"total_amount":         totals.TotalAmount,
		"remaining_percentage": totals.RemainingPercentage,
		"split_count":          totals.SplitCount,
		"can_split":            totals.CanSplit(),
	}, nil)
}

// ResyncLedger POST /api/v1/deals/:deal_id/resync-ledger
func (h *Handlers) ResyncLedger(c *fiber.Ctx) error {
	dealID, err := h.dealInOrg(c)
	if err != nil {
		return errorResponse(c, err, "Failed to resync ledger")
	}
	if err := h.Service.ResyncLedger(c.UserContext(), dealID); err != nil {
		return errorResponse(c, err, "Failed to resync ledger")
	}
	return response.Success(c, "Ledger resynced successfully", fiber.Map{"deal_id": dealID}, nil)
}

// authorizeSplit resolves :split_id and checks the actor may change it.
func (h *Handlers) authorizeSplit(c *fiber.Ctx) (uuid.UUID, error) {
	splitID, err := validation.UUID(c.Params("split_id"), "split_id")
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "User is not associated with an organization")
	}
	split, err := h.Service.GetSplit(c.UserContext(), splitID)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := policies.ValidateSplitAccess(h.DB.WithContext(c.UserContext()), policies.ValidateSplitAccessParams{
		ActorUserID: actor.UserID, ActorRole: actor.Role, OrgID: actor.OrgID, DealID: split.DealID,
	}); err != nil {
		if errors.Is(err, policies.ErrCannotAccessDealsOutsideYourOrg) {
			return uuid.Nil, splitsvc.ErrSplitNotFound
		}
		return uuid.Nil, err
	}
	return splitID, nil
}

// dealInOrg resolves :deal_id within the actor's org.
func (h *Handlers) dealInOrg(c *fiber.Ctx) (uuid.UUID, error) {
	dealID, err := validation.UUID(c.Params("deal_id"), "deal_id")
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "User is not associated with an organization")
	}
	if _, err := h.Deals.GetDeal(c.UserContext(), actor.OrgID, dealID); err != nil {
		return uuid.Nil, err
	}
	return dealID, nil
}

// errorResponse maps service and policy errors to the standard error body.
// fallback is the message of any unexpected failure.
func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return response.Error(c, fe.Message, fe.Code, nil)
	case errors.Is(err, splitsvc.ErrValidation),
		errors.Is(err, policies.ErrPayeeIsDealOwner):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, splitsvc.ErrNotFound),
		errors.Is(err, policies.ErrDealNotFound),
		errors.Is(err, policies.ErrPayeeNotFound),
		errors.Is(err, dealsvc.ErrDealNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, policies.ErrOnlyOwnerOrManagerCanSplit),
		errors.Is(err, policies.ErrCannotAccessDealsOutsideYourOrg):
		return response.Forbidden(c, err.Error())
	default:
		return response.Error(c, fallback, fiber.StatusInternalServerError, nil)
	}
}
