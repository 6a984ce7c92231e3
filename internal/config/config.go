// Package config handles Settings AI Agent configuration loading.
//
// Secrets come from the process environment first. Any value not present
// in the environment may be supplied by a local override file
// (settingsagent.yaml), which supports ${VAR} expansion. Validation is
// fail-fast: Validate reports every missing required value at once so a
// misconfigured deployment surfaces the full list in a single run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names for the required secrets.
const (
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvYandexAPIKey   = "YANDEX_API_KEY"
	EnvYandexFolderID = "YANDEX_FOLDER_ID"
	EnvLogLevel       = "SETTINGS_AGENT_LOG_LEVEL"
)

// DefaultSearchPaths returns the override file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./settingsagent.yaml, ~/.config/settingsagent/settingsagent.yaml,
// /etc/settingsagent/settingsagent.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"settingsagent.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "settingsagent", "settingsagent.yaml"))
	}

	paths = append(paths, "/etc/settingsagent/settingsagent.yaml")
	return paths
}

// FindConfig locates an override file. If explicit is non-empty, it must
// exist. Otherwise, searches DefaultSearchPaths and returns the first that
// exists. An empty return with nil error means no override file — that is
// fine when the environment supplies everything.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// Config holds all agent configuration. It is constructed once at process
// start and never mutated afterwards; components receive it (or the fields
// they need) through their constructors.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Yandex   YandexConfig   `yaml:"yandex"`
	LogLevel string         `yaml:"log_level"`
}

// TelegramConfig defines Bot API settings.
type TelegramConfig struct {
	Token string `yaml:"token"`
	// AllowedChatIDs restricts the bot to specific chats. Empty means
	// every chat is served.
	AllowedChatIDs []int64 `yaml:"allowed_chat_ids"`
	// BaseURL overrides the Bot API endpoint (tests only).
	BaseURL string `yaml:"base_url"`
}

// YandexConfig defines YandexGPT completion API settings.
type YandexConfig struct {
	APIKey   string `yaml:"api_key"`
	FolderID string `yaml:"folder_id"`
	// CompletionURL overrides the completion endpoint (tests only).
	CompletionURL string `yaml:"completion_url"`
}

// Load builds the configuration from the environment, filling gaps from
// an optional override file. path may be empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand environment variables referenced in the file.
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Environment wins over the file for every secret.
	if v := os.Getenv(EnvTelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(EnvYandexAPIKey); v != "" {
		cfg.Yandex.APIKey = v
	}
	if v := os.Getenv(EnvYandexFolderID); v != "" {
		cfg.Yandex.FolderID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Validate checks that every required value is present and well-formed.
// The returned error names all missing values, not just the first.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if c.Yandex.APIKey == "" {
		missing = append(missing, EnvYandexAPIKey)
	}
	if c.Yandex.FolderID == "" {
		missing = append(missing, EnvYandexFolderID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}
