package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coparentcal/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty.
// This prevents accidental deletion of keys required at runtime.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"Version", config.Version},
		{"ICalProdid", config.ICalProdid},
		{"DefaultListen", config.DefaultListen},
		{"DefaultFeedCron", config.DefaultFeedCron},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "critical constant %s should not be empty", tt.name)
		})
	}
}

func TestDefaults_Sanity(t *testing.T) {
	assert.Greater(t, config.DefaultWindowMinutes, 0)
	assert.Greater(t, config.DefaultHorizonDays, 0)
	assert.Greater(t, config.MaxDayEvents, 0)
	assert.Equal(t, 14, config.UpcomingLookaheadDays)
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoad_ParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
listen: "0.0.0.0:9090"
locale: fr
window_minutes: -10
basic_auth:
  username: alex
  password: hunter2
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
	assert.Equal(t, "fr", cfg.Locale)
	assert.Equal(t, 0, cfg.WindowMinutes, "negative windows clamp to zero")
	assert.Equal(t, config.DefaultDBPath, cfg.DBPath, "unset fields take defaults")
	assert.Equal(t, config.DefaultFeedCron, cfg.FeedCron)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "alex", cfg.BasicAuth.Username)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
