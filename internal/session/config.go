package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the signing secrets and lifetimes of both credentials.
type Config struct {
	AccessSecret  string        `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
	AccessTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshSecret string        `envconfig:"REFRESH_TOKEN_SECRET" required:"true"`
	RefreshTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"240h"`

	// StrictRotation makes rotation a compare-and-swap on the stored refresh
	// credential, so only one of two concurrent rotations can win.
	StrictRotation bool `envconfig:"STRICT_ROTATION"`
	CookieSecure   bool `envconfig:"COOKIE_SECURE" default:"true"`
}

// ConfigFromEnv reads SESSION_* env vars.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("SESSION", &cfg); err != nil {
		return Config{}, fmt.Errorf("session config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.AccessSecret == "" || c.RefreshSecret == "":
		return errors.New("session config: both token secrets are required")
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("session config: access and refresh secrets must differ")
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("session config: token lifetimes must be positive")
	}
	return nil
}
