package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("APP_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "http://localhost:5173", cfg.AppBaseURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionDatabaseURL(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL_PROD", "postgres://prod")
	t.Setenv("DATABASE_URL_DEV", "postgres://dev")
	t.Setenv("ALLOW_CROSS_SITE_DEV", "TRUE")
	t.Setenv("APP_BASE_URL", "https://crm.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "postgres://prod", cfg.DatabaseURL)
	assert.True(t, cfg.AllowCrossSiteDev)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://crm.example.com", cfg.AppBaseURL)
}
