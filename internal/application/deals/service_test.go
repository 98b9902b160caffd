package deals

import (
	"context"
	"testing"

	"dealsplit-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDealsTest(t *testing.T) (*Service, uuid.UUID, domain.User) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Deal{}))
	orgID := uuid.New()
	owner := domain.User{Fullname: "Owner", Email: "owner@x.com", PasswordHash: "x", OrgID: &orgID, Role: "member"}
	require.NoError(t, db.Create(&owner).Error)
	return &Service{DB: db}, orgID, owner
}

func TestCreateDeal_AndGet(t *testing.T) {
	svc, orgID, owner := setupDealsTest(t)
	ctx := context.Background()

	deal, err := svc.CreateDeal(ctx, CreateDealInput{
		OrgID: orgID, OwnerID: owner.UserID, Company: " Globex ", Name: "Renewal", Value: decimal.RequireFromString("10000.005"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", deal.Company)
	assert.Equal(t, "10000.01", deal.Value.String())

	got, err := svc.GetDeal(ctx, orgID, deal.DealID)
	require.NoError(t, err)
	assert.Equal(t, "Globex - Renewal", got.DisplayName())

	_, err = svc.GetDeal(ctx, uuid.New(), deal.DealID)
	assert.Equal(t, ErrDealNotFound, err)
}

func TestCreateDeal_Validation(t *testing.T) {
	svc, orgID, owner := setupDealsTest(t)
	ctx := context.Background()

	_, err := svc.CreateDeal(ctx, CreateDealInput{OrgID: orgID, OwnerID: owner.UserID})
	assert.Equal(t, ErrDealNameRequired, err)

	_, err = svc.CreateDeal(ctx, CreateDealInput{OrgID: orgID, OwnerID: owner.UserID, Name: "X", Value: decimal.NewFromInt(-1)})
	assert.Equal(t, ErrNegativeValue, err)

	_, err = svc.CreateDeal(ctx, CreateDealInput{OrgID: uuid.New(), OwnerID: owner.UserID, Name: "X"})
	assert.Equal(t, ErrOwnerNotInOrg, err)
}

func TestListDeals_ScopedToOrg(t *testing.T) {
	svc, orgID, owner := setupDealsTest(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B"} {
		_, err := svc.CreateDeal(ctx, CreateDealInput{OrgID: orgID, OwnerID: owner.UserID, Name: name, Value: decimal.NewFromInt(100)})
		require.NoError(t, err)
	}

	list, err := svc.ListDeals(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.ListDeals(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, list)
}
