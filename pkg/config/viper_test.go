package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "rate_limit:\n  window: 45\n  max_events: 10\nhistory:\n  retention: 72h\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.yaml"), []byte(yaml), 0o600))

	t.Setenv("RATE_LIMIT_MAX_EVENTS", "12")

	v, err := Load(dir, "chat")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, Seconds(v, "rate_limit.window", time.Second))
	assert.Equal(t, 12, v.GetInt("rate_limit.max_events"))
	assert.Equal(t, 72*time.Hour, Duration(v, "history.retention", time.Hour))
}

func TestLoadWithoutFileFallsBackToDefaults(t *testing.T) {
	v, err := Load(t.TempDir(), "missing")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, Seconds(v, "presence.ttl", 30*time.Second))
	assert.Equal(t, 5*time.Second, Duration(v, "presence.write_wait", 5*time.Second))

	v.SetDefault("rate_limit.window", 0)
	assert.Equal(t, time.Duration(0), Seconds(v, "rate_limit.window", time.Minute))
}
