package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
timezone: America/New_York
jobs:
  - name: post-close
    schedule: "30 16 * * 1-5"
    phase: post_close
    enabled: true
  - name: intraday
    schedule: "*/20 10-15 * * 1-5"
    phase: intraday
    enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	require.Len(t, cfg.Jobs, 2)
	assert.Equal(t, "post_close", cfg.Jobs[0].Phase)
	assert.True(t, cfg.Jobs[0].Enabled)
	assert.False(t, cfg.Jobs[1].Enabled)
}

func TestLoadConfigRejectsUnknownPhase(t *testing.T) {
	path := writeConfig(t, `
jobs:
  - name: bogus
    schedule: "0 0 * * *"
    phase: midnight_snack
    enabled: true
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown phase")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Timezone: "Mars/Olympus_Mons"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
