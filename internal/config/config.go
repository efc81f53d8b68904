package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secret storage backends.
const (
	SecretsFile    = "file"
	SecretsKeyring = "keyring"
)

// Config is the process-level configuration, read once at startup.
// Mailbox credentials are not here; they live in the settings file.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Mail    MailConfig
	Log     LogConfig
	Storage StorageConfig
}

// ServerConfig controls the HTTP listener and the optional poll loop.
type ServerConfig struct {
	HTTPAddr string `envconfig:"MAILASSISTANT_HTTP_ADDR" default:":3000"`

	// PollInterval runs poll-once on the server at this interval.
	// Zero leaves polling to the browser.
	PollInterval time.Duration `envconfig:"MAILASSISTANT_POLL_INTERVAL" default:"0s"`
}

// AIConfig selects the language model used for drafts.
type AIConfig struct {
	Model          string `envconfig:"MAILASSISTANT_MODEL" default:"claude-sonnet-4-5-20250929"`
	MaxDraftTokens int    `envconfig:"MAILASSISTANT_MAX_DRAFT_TOKENS" default:"1024"`
	BaseURL        string `envconfig:"MAILASSISTANT_ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
}

// MailConfig tunes the mailbox reader.
type MailConfig struct {
	FetchWindow   int    `envconfig:"MAILASSISTANT_FETCH_WINDOW" default:"20"`
	Mailbox       string `envconfig:"MAILASSISTANT_MAILBOX" default:"INBOX"`
	MarkAnswered  bool   `envconfig:"MAILASSISTANT_MARK_ANSWERED" default:"true"`
	SkipTLSVerify bool   `envconfig:"MAILASSISTANT_SKIP_TLS_VERIFY" default:"false"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `envconfig:"MAILASSISTANT_LOG_LEVEL" default:"info"`
	Format string `envconfig:"MAILASSISTANT_LOG_FORMAT" default:"text"`
}

// StorageConfig locates persisted state.
type StorageConfig struct {
	SettingsFile   string `envconfig:"MAILASSISTANT_SETTINGS_FILE" default:".env.local"`
	SecretsBackend string `envconfig:"MAILASSISTANT_SECRETS_BACKEND" default:"file"`
	KeyringDir     string `envconfig:"MAILASSISTANT_KEYRING_DIR" default:""`

	// ActivityDB is the sqlite path for the activity log. Empty disables it.
	ActivityDB string `envconfig:"MAILASSISTANT_ACTIVITY_DB" default:"mailassistant.db"`
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.SecretsBackend {
	case SecretsFile, SecretsKeyring:
	default:
		return fmt.Errorf("unknown secrets backend %q", c.Storage.SecretsBackend)
	}
	if c.Mail.FetchWindow < 1 {
		return fmt.Errorf("fetch window must be positive, got %d", c.Mail.FetchWindow)
	}
	if c.Server.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %s", c.Server.PollInterval)
	}
	return nil
}
