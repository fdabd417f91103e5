package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/GateAI-net/gate-ios/pkg/attest"
	"github.com/GateAI-net/gate-ios/pkg/clierror"
	"github.com/GateAI-net/gate-ios/pkg/devicekey"
	"github.com/GateAI-net/gate-ios/pkg/session"
)

// GateConfig is stored in ~/.gateai/config.yaml.
type GateConfig struct {
	ServerURL        string `yaml:"server_url"`
	BundleID         string `yaml:"bundle_id"`
	TeamID           string `yaml:"team_id"`
	DevelopmentToken string `yaml:"development_token,omitempty"`
	LogLevel         string `yaml:"log_level,omitempty"`
}

func defaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gateai", "config.yaml")
}

// loadConfig reads the YAML config, applying flag and environment
// overrides. Precedence: --server flag, GATE_SERVER_URL, config file.
func loadConfig() (*GateConfig, error) {
	path := configPath
	if path == "" {
		path = defaultConfigPath()
	}

	var config GateConfig
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, clierror.ConfigInvalid(fmt.Sprintf("parse %s: %v", path, err))
		}
	} else if !os.IsNotExist(err) {
		return nil, clierror.ConfigInvalid(fmt.Sprintf("read %s: %v", path, err))
	}

	if env := os.Getenv("GATE_SERVER_URL"); env != "" {
		config.ServerURL = env
	}
	if serverURL != "" {
		config.ServerURL = serverURL
	}
	if env := os.Getenv("GATE_BUNDLE_ID"); env != "" {
		config.BundleID = env
	}
	if env := os.Getenv("GATE_TEAM_ID"); env != "" {
		config.TeamID = env
	}
	if env := os.Getenv("GATE_DEV_TOKEN"); env != "" {
		config.DevelopmentToken = env
	}

	if config.ServerURL == "" {
		return nil, clierror.ConfigInvalid("server_url is not set")
	}
	return &config, nil
}

func (c *GateConfig) logger() *slog.Logger {
	level := slog.LevelWarn
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// sessionConfig converts the file config into the engine config and
// validates it.
func (c *GateConfig) sessionConfig() (session.Config, error) {
	cfg := session.Config{
		BaseURL:          c.ServerURL,
		BundleID:         c.BundleID,
		TeamID:           c.TeamID,
		DevelopmentToken: c.DevelopmentToken,
		Logger:           c.logger(),
	}
	if err := cfg.Validate(); err != nil {
		return session.Config{}, clierror.ConfigInvalid(err.Error())
	}
	return cfg, nil
}

// keyStore returns the device key store for this bundle identity.
func (c *GateConfig) keyStore() *devicekey.FileStore {
	return devicekey.NewFileStore(devicekey.DefaultKeyPath(c.BundleID))
}

// recordStore returns the attestation record store for this bundle identity.
func (c *GateConfig) recordStore() *attest.FileRecordStore {
	return attest.NewFileRecordStore(attest.DefaultRecordPath(c.BundleID))
}

// provider returns the attestation provider: emulated when requested,
// otherwise the unsupported variant (platform attestation lives in the
// mobile host, not in this CLI).
func (c *GateConfig) provider() attest.Provider {
	if useEmulated {
		return attest.NewEmulated(c.TeamID+"."+c.BundleID, c.recordStore())
	}
	return attest.NewUnsupported()
}

// buildSession assembles the engine from the loaded config.
func buildSession() (*session.Session, *GateConfig, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.sessionConfig()
	if err != nil {
		return nil, nil, err
	}
	return session.New(cfg, config.keyStore(), config.provider()), config, nil
}

// engineErr maps an engine error for CLI output.
func engineErr(config *GateConfig, err error) error {
	if err == nil {
		return nil
	}
	return clierror.FromEngineError(err, config.ServerURL)
}
