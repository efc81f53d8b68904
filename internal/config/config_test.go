package config

import (
	"os"
	"testing"
	"time"
)

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.PollInterval != 0 {
		t.Errorf("PollInterval = %s, want disabled", cfg.Server.PollInterval)
	}
	if cfg.Mail.FetchWindow != 20 {
		t.Errorf("FetchWindow = %d, want 20", cfg.Mail.FetchWindow)
	}
	if cfg.Mail.Mailbox != "INBOX" {
		t.Errorf("Mailbox = %q", cfg.Mail.Mailbox)
	}
	if cfg.Storage.SettingsFile != ".env.local" {
		t.Errorf("SettingsFile = %q", cfg.Storage.SettingsFile)
	}
	if cfg.Storage.SecretsBackend != SecretsFile {
		t.Errorf("SecretsBackend = %q", cfg.Storage.SecretsBackend)
	}
	if cfg.AI.MaxDraftTokens != 1024 {
		t.Errorf("MaxDraftTokens = %d", cfg.AI.MaxDraftTokens)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAILASSISTANT_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("MAILASSISTANT_POLL_INTERVAL", "30s")
	t.Setenv("MAILASSISTANT_FETCH_WINDOW", "5")
	t.Setenv("MAILASSISTANT_SECRETS_BACKEND", "keyring")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %s", cfg.Server.PollInterval)
	}
	if cfg.Mail.FetchWindow != 5 {
		t.Errorf("FetchWindow = %d", cfg.Mail.FetchWindow)
	}
	if cfg.Storage.SecretsBackend != SecretsKeyring {
		t.Errorf("SecretsBackend = %q", cfg.Storage.SecretsBackend)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown backend", "MAILASSISTANT_SECRETS_BACKEND", "vault"},
		{"zero window", "MAILASSISTANT_FETCH_WINDOW", "0"},
		{"negative interval", "MAILASSISTANT_POLL_INTERVAL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%s succeeded", tt.key, tt.value)
			}
		})
	}
}
