package session

import (
	"fmt"
	"log/slog"
	"net/url"
)

// Config is the engine's input. The engine treats it as trusted; hosts that
// accept these values from their own configuration surface should call
// Validate first.
type Config struct {
	// BaseURL is the gateway origin, e.g. "https://gateway.gateai.net".
	BaseURL string

	// BundleID is the host application's bundle identifier.
	BundleID string

	// TeamID is the developer team identifier, exactly 10 alphanumerics.
	TeamID string

	// DevelopmentToken, when non-empty, enables the simulator token path.
	// It is ignored outside the simulator.
	DevelopmentToken string

	// Logger receives engine diagnostics. Defaults to slog.Default().
	// Secret material is never logged regardless of level.
	Logger *slog.Logger
}

// Validate checks the constraints the gateway enforces on enrollment
// identity.
func (c Config) Validate() error {
	if c.BundleID == "" {
		return &ConfigError{Message: "bundle identifier must not be empty"}
	}
	if len(c.TeamID) != 10 {
		return &ConfigError{Message: "team identifier must be exactly 10 characters"}
	}
	for _, r := range c.TeamID {
		alnum := (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
		if !alnum {
			return &ConfigError{Message: "team identifier must be alphanumeric"}
		}
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigError{Message: fmt.Sprintf("base URL %q must be absolute", c.BaseURL)}
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
