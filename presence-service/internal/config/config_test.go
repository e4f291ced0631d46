package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "presence")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Presence.TTL)
	assert.Equal(t, 30*time.Second, cfg.Presence.HeartbeatInterval)
	assert.Equal(t, 200, cfg.Presence.MaxBatchSize)
	assert.NotEmpty(t, cfg.Server.InstanceID)
}

func TestLoadPresenceWindowInSeconds(t *testing.T) {
	dir := t.TempDir()
	yaml := "presence:\n  ttl: 45\n  heartbeat_interval: 15\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presence.yaml"), []byte(yaml), 0o600))
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadFrom(dir, "presence")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Presence.TTL)
	assert.Equal(t, 15*time.Second, cfg.Presence.HeartbeatInterval)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	for _, ttl := range []string{"0", "-5"} {
		dir := t.TempDir()
		yaml := "presence:\n  ttl: " + ttl + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "presence.yaml"), []byte(yaml), 0o600))

		_, err := LoadFrom(dir, "presence")
		assert.ErrorContains(t, err, "presence.ttl", ttl)
	}
}
