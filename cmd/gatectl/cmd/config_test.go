package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	configPath = writeConfig(t, `
server_url: https://gateway.example.com
bundle_id: com.example.app
team_id: TEAMID1234
log_level: debug
`)
	defer func() { configPath = "" }()

	config, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.ServerURL != "https://gateway.example.com" {
		t.Errorf("server = %q", config.ServerURL)
	}
	if config.BundleID != "com.example.app" || config.TeamID != "TEAMID1234" {
		t.Errorf("identity = %q/%q", config.BundleID, config.TeamID)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	configPath = writeConfig(t, `
server_url: https://file.example.com
bundle_id: com.example.app
team_id: TEAMID1234
`)
	defer func() { configPath = "" }()

	t.Setenv("GATE_SERVER_URL", "https://env.example.com")
	config, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.ServerURL != "https://env.example.com" {
		t.Errorf("env override lost: %q", config.ServerURL)
	}

	serverURL = "https://flag.example.com"
	defer func() { serverURL = "" }()
	config, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.ServerURL != "https://flag.example.com" {
		t.Errorf("flag override lost: %q", config.ServerURL)
	}
}

func TestLoadConfig_MissingServer(t *testing.T) {
	configPath = writeConfig(t, `bundle_id: com.example.app`)
	defer func() { configPath = "" }()

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for missing server_url")
	}
}

func TestSessionConfig_Validation(t *testing.T) {
	config := &GateConfig{
		ServerURL: "https://gateway.example.com",
		BundleID:  "com.example.app",
		TeamID:    "bad team id",
	}
	if _, err := config.sessionConfig(); err == nil {
		t.Fatal("expected validation error for malformed team id")
	}
}
