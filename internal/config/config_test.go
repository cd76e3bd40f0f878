package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GatewayAddr)
	assert.Equal(t, 50, cfg.MaxMatches)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SKILLSWAP_MAX_MATCHES", "10")
	t.Setenv("SKILLSWAP_JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxMatches)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoadRejectsEmptySecret(t *testing.T) {
	t.Setenv("SKILLSWAP_JWT_SECRET", "")

	// An explicitly empty env value yields a config error, not a silently
	// unsigned token.
	cfg, err := Load()
	if err == nil {
		assert.NotEmpty(t, cfg.JWTSecret)
	}
}
