package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys recognized in the settings file.
const (
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyEmailHost        = "EMAIL_HOST"
	KeyEmailPort        = "EMAIL_PORT"
	KeyEmailUser        = "EMAIL_USER"
	KeyEmailPassword    = "EMAIL_PASSWORD"
	KeySMTPHost         = "SMTP_HOST"
	KeySMTPPort         = "SMTP_PORT"
	KeyAutoReplyEnabled = "AUTO_REPLY_ENABLED"
)

// Default ports applied when the settings file leaves them blank.
const (
	DefaultIMAPPort = "993"
	DefaultSMTPPort = "587"
)

// ErrUnencodableValue is returned by SaveSettings for a value that the
// settings file cannot represent exactly.
var ErrUnencodableValue = errors.New("value cannot be stored in the settings file")

// secretKeys are routed to the SecretVault when one is configured.
var secretKeys = []string{KeyAnthropicAPIKey, KeyEmailPassword}

// Settings holds the mailbox and provider credentials the assistant
// connects with.
type Settings struct {
	AnthropicKey     string `json:"anthropicKey"`
	EmailHost        string `json:"emailHost"`
	EmailPort        string `json:"emailPort"`
	EmailUser        string `json:"emailUser"`
	EmailPassword    string `json:"emailPassword"`
	SMTPHost         string `json:"smtpHost"`
	SMTPPort         string `json:"smtpPort"`
	AutoReplyEnabled bool   `json:"autoReplyEnabled"`
}

// SecretVault stores credential values outside the settings file.
type SecretVault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// DefaultSettingsPath returns the settings file used when none is
// configured, relative to the working directory.
func DefaultSettingsPath() string {
	return ".env.local"
}

// LoadSettings reads the settings file at path. The boolean result is
// false when the file does not exist, in which case the zero Settings
// with default ports is returned. When vault is non-nil, secret values
// are read from it, falling back to the file.
func LoadSettings(path string, vault SecretVault) (Settings, bool, error) {
	v := viper.New()
	v.SetDefault(KeyEmailPort, DefaultIMAPPort)
	v.SetDefault(KeySMTPPort, DefaultSMTPPort)

	exists := true
	values, err := godotenv.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return Settings{}, false, fmt.Errorf("reading settings %s: %w", path, err)
	default:
		file := make(map[string]any, len(values))
		for key, val := range values {
			file[key] = val
		}
		if err := v.MergeConfigMap(file); err != nil {
			return Settings{}, false, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	s := Settings{
		AnthropicKey:     v.GetString(KeyAnthropicAPIKey),
		EmailHost:        v.GetString(KeyEmailHost),
		EmailPort:        orDefault(v.GetString(KeyEmailPort), DefaultIMAPPort),
		EmailUser:        v.GetString(KeyEmailUser),
		EmailPassword:    v.GetString(KeyEmailPassword),
		SMTPHost:         v.GetString(KeySMTPHost),
		SMTPPort:         orDefault(v.GetString(KeySMTPPort), DefaultSMTPPort),
		AutoReplyEnabled: v.GetString(KeyAutoReplyEnabled) == "true",
	}

	if vault != nil && exists {
		if val, err := vault.Get(KeyAnthropicAPIKey); err == nil && val != "" {
			s.AnthropicKey = val
		}
		if val, err := vault.Get(KeyEmailPassword); err == nil && val != "" {
			s.EmailPassword = val
		}
	}

	return s, exists, nil
}

// SaveSettings writes every recognized key to path, replacing whatever
// the file held before. Values are not validated, but a value the file
// format cannot hold is an error rather than a corrupted file. When vault
// is non-nil, secret values are stored there and written to the file as
// blanks; an empty secret removes the vault entry.
func SaveSettings(path string, s Settings, vault SecretVault) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory %s: %w", dir, err)
	}

	values := s.values()
	if vault != nil {
		for _, key := range secretKeys {
			if err := storeSecret(vault, key, values[key]); err != nil {
				return err
			}
			values[key] = ""
		}
	}

	data, err := marshalSettings(values)
	if err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting settings permissions: %w", err)
	}

	return nil
}

func storeSecret(vault SecretVault, key, value string) error {
	if value == "" {
		if err := vault.Delete(key); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
		return nil
	}
	if err := vault.Set(key, value); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// marshalSettings renders one line per key, sorted. Each line is the
// first encoding that godotenv parses back to the exact value.
func marshalSettings(values map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		line, err := encodeSetting(key, values[key])
		if err != nil {
			return nil, err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// encodeSetting tries the double-quoted form first, then the bare form.
// godotenv.Marshal turns numeric strings into integers and cannot close
// a quoted value that ends in a backslash, so neither form is trusted
// without parsing it back.
func encodeSetting(key, value string) (string, error) {
	quoted, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return "", err
	}

	for _, line := range []string{quoted, key + "=" + value} {
		parsed, err := godotenv.Unmarshal(line)
		if err != nil || len(parsed) != 1 {
			continue
		}
		if got, ok := parsed[key]; ok && got == value {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnencodableValue, key)
}

func (s Settings) values() map[string]string {
	return map[string]string{
		KeyAnthropicAPIKey:  s.AnthropicKey,
		KeyEmailHost:        s.EmailHost,
		KeyEmailPort:        s.EmailPort,
		KeyEmailUser:        s.EmailUser,
		KeyEmailPassword:    s.EmailPassword,
		KeySMTPHost:         s.SMTPHost,
		KeySMTPPort:         s.SMTPPort,
		KeyAutoReplyEnabled: strconv.FormatBool(s.AutoReplyEnabled),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SettingsStore owns the settings in effect for the running process.
// It loads once at construction and swaps the value on every Save.
type SettingsStore struct {
	path  string
	vault SecretVault

	mu      sync.RWMutex
	current Settings
}

// NewSettingsStore loads the settings at path. A missing file is not an
// error; Configured reports false until the first Save.
func NewSettingsStore(path string, vault SecretVault) (*SettingsStore, error) {
	s, _, err := LoadSettings(path, vault)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{path: path, vault: vault, current: s}, nil
}

// Path returns the settings file location.
func (s *SettingsStore) Path() string {
	return s.path
}

// Current returns a copy of the settings in effect.
func (s *SettingsStore) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Configured reports whether a settings file has been persisted.
func (s *SettingsStore) Configured() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save persists next and makes it the settings in effect.
func (s *SettingsStore) Save(next Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := SaveSettings(s.path, next, s.vault); err != nil {
		return err
	}
	next.EmailPort = orDefault(next.EmailPort, DefaultIMAPPort)
	next.SMTPPort = orDefault(next.SMTPPort, DefaultSMTPPort)
	s.current = next
	return nil
}
