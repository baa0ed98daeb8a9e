package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("HEARTH_SERVER_URL", "https://hearth.example/")
	t.Setenv("HEARTH_LISTEN_ADDR", ":9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Trailing slash is normalized away; it would otherwise leak into
	// iss/aud claims and discovery URLs.
	require.Equal(t, "https://hearth.example", cfg.ServerURL)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Equal(t, time.Hour, cfg.HousekeepInterval)
	require.Equal(t, "hearth.db", cfg.DatabasePath)
}

func TestLoadConfigRequiresServerURL(t *testing.T) {
	t.Setenv("HEARTH_SERVER_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigAdminPairing(t *testing.T) {
	t.Setenv("HEARTH_SERVER_URL", "https://hearth.example")
	t.Setenv("HEARTH_ADMIN_USERNAME", "root")

	_, err := LoadConfig()
	require.Error(t, err)
}
