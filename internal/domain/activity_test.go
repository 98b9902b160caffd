package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDetails(t *testing.T) {
	pct := decimal.NewFromInt(75)
	assert.Equal(t, "Deal closed (75% retained after split)", RenderDetails("Deal closed", false, &pct))
	assert.Equal(t, "Deal closed (75% split)", RenderDetails("Deal closed", true, &pct))
	assert.Equal(t, "Deal closed", RenderDetails("Deal closed", false, nil))
	assert.Equal(t, "(75% split)", RenderDetails("", true, &pct))

	frac := decimal.RequireFromString("12.5000")
	assert.Equal(t, "X (12.5% split)", RenderDetails("X", true, &frac))
}

func TestRenderDetails_Idempotent(t *testing.T) {
	pct := decimal.NewFromInt(45)
	once := RenderDetails("Closed won", false, &pct)
	twice := RenderDetails(once, false, &pct)
	assert.Equal(t, once, twice)

	// a legacy suffix of the other variant is also replaced
	assert.Equal(t, "Closed won (45% split)", RenderDetails(once, true, &pct))
}

func TestBaseDetails_StripsStackedSuffixes(t *testing.T) {
	assert.Equal(t, "Closed won", BaseDetails("Closed won (80% retained after split) (25.5% split)  "))
	assert.Equal(t, "Plain (note)", BaseDetails("Plain (note)"))
}

func TestActivity_MarshalJSON(t *testing.T) {
	pct := decimal.NewFromInt(30)
	a := Activity{Type: ActivityTypeSale, Details: "Deal closed", IsSplit: true, SplitPercentage: &pct}
	b, err := json.Marshal(a)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "Deal closed (30% split)", m["details"])
	assert.Equal(t, "Deal closed", m["base_details"])
	assert.Equal(t, true, m["is_split"])
}

func TestDeal_DisplayName(t *testing.T) {
	assert.Equal(t, "Acme - Renewal", Deal{Company: "Acme", Name: "Renewal"}.DisplayName())
	assert.Equal(t, "Acme", Deal{Company: "Acme"}.DisplayName())
	assert.Equal(t, "Renewal", Deal{Name: "Renewal"}.DisplayName())
}
