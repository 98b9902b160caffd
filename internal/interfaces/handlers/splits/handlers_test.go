package splits

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	dealsvc "dealsplit-backend/internal/application/deals"
	splitsvc "dealsplit-backend/internal/application/splits"
	"dealsplit-backend/internal/constants"
	"dealsplit-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type splitFixture struct {
	h      *Handlers
	db     *gorm.DB
	org    domain.Org
	owner  domain.User
	payee  domain.User
	member domain.User
	deal   domain.Deal
}

func setupSplitHandlers(t *testing.T) *splitFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Org{}, &domain.User{}, &domain.Deal{},
		&domain.DealSplit{}, &domain.Activity{},
	))

	f := &splitFixture{db: db}
	f.org = domain.Org{OrgName: "Acme Sales", OrgCode: "ACME"}
	require.NoError(t, db.Create(&f.org).Error)
	mk := func(name, email string) domain.User {
		u := domain.User{Fullname: name, Email: email, PasswordHash: "x", OrgID: &f.org.OrgID, Role: constants.Member}
		require.NoError(t, db.Create(&u).Error)
		return u
	}
	f.owner = mk("Alice Owner", "alice@example.com")
	f.payee = mk("Bob Payee", "bob@example.com")
	f.member = mk("Carol Member", "carol@example.com")
	f.deal = domain.Deal{OrgID: f.org.OrgID, OwnerID: f.owner.UserID, Company: "Globex", Name: "Renewal", Value: decimal.RequireFromString("10000")}
	require.NoError(t, db.Create(&f.deal).Error)

	f.h = &Handlers{
		Service: &splitsvc.Service{DB: db, Ledger: &splitsvc.LedgerSync{SaleType: domain.ActivityTypeSale}},
		Deals:   &dealsvc.Service{DB: db},
		DB:      db,
	}
	return f
}

func (f *splitFixture) app(user *domain.User, role string) *fiber.App {
	app := fiber.New()
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", map[string]interface{}{
				"user_id": user.UserID.String(),
				"org_id":  f.org.OrgID.String(),
				"role":    role,
			})
			return c.Next()
		})
	}
	app.Get("/splits", f.h.List)
	app.Post("/splits", f.h.Create)
	app.Patch("/splits/:split_id", f.h.Update)
	app.Delete("/splits/:split_id", f.h.Delete)
	app.Get("/deals/:deal_id/split-totals", f.h.Totals)
	app.Post("/deals/:deal_id/resync-ledger", f.h.ResyncLedger)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errMessage(out map[string]interface{}) string {
	e, _ := out["error"].(map[string]interface{})
	s, _ := e["message"].(string)
	return s
}

func (f *splitFixture) createSplit(t *testing.T, pct string) string {
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": pct,
	})
	require.Equal(t, fiber.StatusCreated, code, "body: %v", out)
	data := out["data"].(map[string]interface{})
	return data["split"].(map[string]interface{})["split_id"].(string)
}

func TestCreate_MissingFields(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(),
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Missing required fields", errMessage(out))
}

func TestCreate_InvalidUUID(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": "nope", "payee_id": f.payee.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Invalid UUID format for deal_id", errMessage(out))
}

func TestCreate_NoOrg(t *testing.T) {
	f := setupSplitHandlers(t)
	code, _ := doJSON(t, f.app(nil, ""), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 403, code)
}

func TestCreate_Success(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": 25,
	})
	require.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "success", out["status"])
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["ledger_sync"])
	split := data["split"].(map[string]interface{})
	assert.Equal(t, "2500", split["amount"])
	assert.Equal(t, "25", split["percentage"])
}

func TestCreate_OverAllocation(t *testing.T) {
	f := setupSplitHandlers(t)
	f.createSplit(t, "70")

	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.member.UserID.String(), "percentage": 40,
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Cannot add 40%. Would exceed 100% (current total: 70%)", errMessage(out))
}

func TestCreate_OutOfRange(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": 0,
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Percentage must be greater than 0 and at most 100", errMessage(out))
}

func TestCreate_PayeeIsOwner(t *testing.T) {
	f := setupSplitHandlers(t)
	code, _ := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.owner.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 400, code)
}

func TestCreate_NotOwnerForbidden(t *testing.T) {
	f := setupSplitHandlers(t)
	code, _ := doJSON(t, f.app(&f.member, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 403, code)

	// managers may split deals they do not own
	code, _ = doJSON(t, f.app(&f.member, constants.Manager), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 201, code)
}

func TestCreate_UnknownDeal(t *testing.T) {
	f := setupSplitHandlers(t)
	code, _ := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": uuid.New().String(), "payee_id": f.payee.UserID.String(), "percentage": 10,
	})
	assert.Equal(t, 404, code)
}

func TestUpdate_ChangesPercentage(t *testing.T) {
	f := setupSplitHandlers(t)
	id := f.createSplit(t, "25")

	code, out := doJSON(t, f.app(&f.owner, constants.Member), "PATCH", "/splits/"+id, map[string]interface{}{"percentage": "40"})
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["ledger_sync"])
	assert.Equal(t, "4000", data["split"].(map[string]interface{})["amount"])
}

func TestUpdate_NotesOnlySkipsLedger(t *testing.T) {
	f := setupSplitHandlers(t)
	id := f.createSplit(t, "25")

	code, out := doJSON(t, f.app(&f.owner, constants.Member), "PATCH", "/splits/"+id, map[string]interface{}{"notes": "co-sold"})
	require.Equal(t, 200, code)
	assert.Equal(t, "skipped", out["data"].(map[string]interface{})["ledger_sync"])
}

func TestUpdate_EmptyBody(t *testing.T) {
	f := setupSplitHandlers(t)
	id := f.createSplit(t, "25")
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "PATCH", "/splits/"+id, map[string]interface{}{})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Nothing to update", errMessage(out))
}

func TestUpdate_UnknownSplit(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "PATCH", "/splits/"+uuid.New().String(), map[string]interface{}{"percentage": 10})
	assert.Equal(t, 404, code)
	assert.Equal(t, "Split not found", errMessage(out))
}

func TestUpdate_OtherOrgLooksMissing(t *testing.T) {
	f := setupSplitHandlers(t)
	id := f.createSplit(t, "25")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"org_id":  uuid.New().String(),
			"role":    constants.Admin,
		})
		return c.Next()
	})
	app.Patch("/splits/:split_id", f.h.Update)
	code, _ := doJSON(t, app, "PATCH", "/splits/"+id, map[string]interface{}{"percentage": 10})
	assert.Equal(t, 404, code)
}

func TestDelete_RestoresOwner(t *testing.T) {
	f := setupSplitHandlers(t)
	id := f.createSplit(t, "25")

	code, out := doJSON(t, f.app(&f.owner, constants.Member), "DELETE", "/splits/"+id, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "ok", out["data"].(map[string]interface{})["ledger_sync"])

	var n int64
	require.NoError(t, f.db.Model(&domain.DealSplit{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
	var owner domain.Activity
	require.NoError(t, f.db.Where("deal_id = ? AND is_split = ?", f.deal.DealID, false).First(&owner).Error)
	assert.Nil(t, owner.SplitPercentage)
	assert.Equal(t, "10000", owner.Amount.String())
}

func TestList_FiltersByDeal(t *testing.T) {
	f := setupSplitHandlers(t)
	f.createSplit(t, "25")

	code, out := doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/splits?deal_id="+f.deal.DealID.String(), nil)
	require.Equal(t, 200, code)
	assert.Len(t, out["data"].([]interface{}), 1)

	code, out = doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/splits?deal_id="+uuid.New().String(), nil)
	require.Equal(t, 200, code)
	assert.Len(t, out["data"].([]interface{}), 0)

	code, _ = doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/splits?payee_id=bad", nil)
	assert.Equal(t, 400, code)
}

func TestTotals(t *testing.T) {
	f := setupSplitHandlers(t)
	f.createSplit(t, "100")

	code, out := doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/deals/"+f.deal.DealID.String()+"/split-totals", nil)
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "100", data["total_percentage"])
	assert.Equal(t, "0", data["remaining_percentage"])
	assert.Equal(t, float64(1), data["split_count"])
	assert.Equal(t, false, data["can_split"])

	code, _ = doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/deals/"+uuid.New().String()+"/split-totals", nil)
	assert.Equal(t, 404, code)
}

func TestTotals_PartiallyAllocated(t *testing.T) {
	f := setupSplitHandlers(t)
	f.createSplit(t, "40")

	code, out := doJSON(t, f.app(&f.member, constants.Viewer), "GET", "/deals/"+f.deal.DealID.String()+"/split-totals", nil)
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "60", data["remaining_percentage"])
	assert.Equal(t, true, data["can_split"])
}

func TestCreate_TooManyDecimalPlaces(t *testing.T) {
	f := setupSplitHandlers(t)
	code, out := doJSON(t, f.app(&f.owner, constants.Member), "POST", "/splits", map[string]interface{}{
		"deal_id": f.deal.DealID.String(), "payee_id": f.payee.UserID.String(), "percentage": "33.33335",
	})
	assert.Equal(t, 400, code)
	assert.Equal(t, "Percentage cannot have more than 4 decimal places", errMessage(out))
}

func TestResyncLedger_RepairsOwner(t *testing.T) {
	f := setupSplitHandlers(t)
	f.createSplit(t, "25")
	require.NoError(t, f.db.Model(&domain.Activity{}).
		Where("deal_id = ? AND is_split = ?", f.deal.DealID, false).
		Update("amount", decimal.RequireFromString("1")).Error)

	code, _ := doJSON(t, f.app(&f.owner, constants.Admin), "POST", "/deals/"+f.deal.DealID.String()+"/resync-ledger", nil)
	require.Equal(t, 200, code)

	var owner domain.Activity
	require.NoError(t, f.db.Where("deal_id = ? AND is_split = ?", f.deal.DealID, false).First(&owner).Error)
	assert.Equal(t, "7500", owner.Amount.String())
}
