package app

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/config"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		AI:     config.AIConfig{MaxDraftTokens: 1024},
		Mail:   config.MailConfig{FetchWindow: 20, Mailbox: "INBOX", MarkAnswered: true},
		Log:    config.LogConfig{Level: "info", Format: "text"},
		Storage: config.StorageConfig{
			SettingsFile:   filepath.Join(dir, ".env.local"),
			SecretsBackend: config.SecretsFile,
			ActivityDB:     filepath.Join(dir, "activity.db"),
		},
	}
}

func TestNew_WiresRoutes(t *testing.T) {
	a, err := New(testConfig(t), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Activity)

	resp, err := a.HTTP.Test(httptest.NewRequest("GET", "/config", nil))
	require.NoError(t, err)

	var body struct {
		Configured bool `json:"configured"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Configured)

	resp, err = a.HTTP.Test(httptest.NewRequest("GET", "/monitor/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNew_WithoutActivityLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.ActivityDB = ""

	a, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Activity)

	resp, err := a.HTTP.Test(httptest.NewRequest("GET", "/activity", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestOpenSettings_ReadsSavedFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, model.SaveSettings(cfg.Storage.SettingsFile, model.Settings{
		EmailHost: "imap.example.com",
		EmailUser: "me@example.com",
	}, nil))

	settings, err := OpenSettings(cfg)
	require.NoError(t, err)

	assert.True(t, settings.Configured())
	assert.Equal(t, "imap.example.com", settings.Current().EmailHost)
	assert.Equal(t, model.DefaultIMAPPort, settings.Current().EmailPort)
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"

	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.PollInterval = time.Hour
	cfg.Storage.ActivityDB = ""

	a, err := New(cfg, logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
