package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("a b@c.d"))
}

func TestUUID(t *testing.T) {
	id := uuid.New()
	got, err := UUID(" "+id.String()+" ", "deal_id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = UUID("nope", "deal_id")
	assert.EqualError(t, err, "Invalid UUID format for deal_id")
}

func TestOptionalUUID(t *testing.T) {
	got, err := OptionalUUID("", "payee_id")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = OptionalUUID("x", "payee_id")
	assert.EqualError(t, err, "Invalid UUID format for payee_id")
}

func TestOptionalBool(t *testing.T) {
	got, err := OptionalBool("true", "is_split")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, *got)

	got, err = OptionalBool("", "is_split")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = OptionalBool("maybe", "is_split")
	assert.EqualError(t, err, "Invalid boolean for is_split")
}
