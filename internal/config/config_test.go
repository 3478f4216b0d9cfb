package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CASEDESK_BACKEND_URL", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CASEDESK_BACKEND_URL", "")

	cfgDir := filepath.Join(dir, "casedesk")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.json"),
		[]byte(`{"backend_url":"https://helpdesk.internal","breaker_threshold":5}`), 0o600))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://helpdesk.internal", c.BackendURL)
	assert.Equal(t, 5, c.BreakerThreshold)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5*time.Minute, c.BreakerCooldown.Std())
	assert.Equal(t, time.Second, c.StabilityWindow.Std())
}

func TestLoadEnvOverridesBackendURL(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CASEDESK_BACKEND_URL", "https://staging.casedesk.io")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.casedesk.io", c.BackendURL)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CASEDESK_BACKEND_URL", "")

	c := Default()
	c.BackendURL = "https://helpdesk.example.com"
	c.LoopThreshold = 8
	c.BreakerCooldown = Duration(10 * time.Minute)
	require.NoError(t, Save(c))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDurationJSONUsesHumanStrings(t *testing.T) {
	b, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"250ms"`)))
	assert.Equal(t, 250*time.Millisecond, d.Std())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`42`)))
}
