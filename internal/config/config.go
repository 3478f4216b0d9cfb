// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets go to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"casedesk/cli/internal/xdg"
)

// Config holds non-sensitive client settings. The session-lifecycle tunables
// are deliberately configuration, not constants: deployments disagree on how
// aggressive the breaker and loop detector should be.
type Config struct {
	BackendURL string `json:"backend_url"`
	LogLevel   string `json:"log_level"`

	// Circuit breaker: consecutive sign-in failures within FailureWindow
	// open the breaker for Cooldown.
	BreakerThreshold int      `json:"breaker_threshold"`
	BreakerWindow    Duration `json:"breaker_window"`
	BreakerCooldown  Duration `json:"breaker_cooldown"`

	// Loop detector: LoopThreshold redirects within LoopWindow flag a loop;
	// LoopQuiet with no redirects resets the counter.
	LoopThreshold int      `json:"loop_threshold"`
	LoopWindow    Duration `json:"loop_window"`
	LoopQuiet     Duration `json:"loop_quiet"`

	// Session store stability window for downgrade transitions and the
	// navigation guard's redirect debounce.
	StabilityWindow  Duration `json:"stability_window"`
	RedirectDebounce Duration `json:"redirect_debounce"`

	// Tokens issued longer ago than TokenMaxAge are flagged stale.
	TokenMaxAge Duration `json:"token_max_age"`
}

// Duration wraps time.Duration with JSON encoding as a string ("5m", "30s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL: "https://api.casedesk.io",
		LogLevel:   "info",

		BreakerThreshold: 3,
		BreakerWindow:    Duration(30 * time.Second),
		BreakerCooldown:  Duration(5 * time.Minute),

		LoopThreshold: 5,
		LoopWindow:    Duration(5 * time.Second),
		LoopQuiet:     Duration(25 * time.Second),

		StabilityWindow:  Duration(time.Second),
		RedirectDebounce: Duration(250 * time.Millisecond),

		TokenMaxAge: Duration(12 * time.Hour),
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file returns defaults. Values absent
// from the file keep their defaults, so old config files stay valid.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if url := os.Getenv("CASEDESK_BACKEND_URL"); url != "" {
		c.BackendURL = url
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
