// Package config loads and validates the relay configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for maxgram.
type Config struct {
	General  GeneralConfig  `json:"general" yaml:"general"`
	Max      MaxConfig      `json:"max" yaml:"max"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type GeneralConfig struct {
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFile   string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	StatePath string `json:"statePath" yaml:"statePath"`
}

// MaxConfig describes the source platform connection.
type MaxConfig struct {
	Token      string  `json:"token" yaml:"token"`
	GatewayURL string  `json:"gatewayUrl,omitempty" yaml:"gatewayUrl,omitempty"`
	ChatIDs    []int64 `json:"chatIds" yaml:"chatIds"`
}

// TelegramConfig describes the destination bot and chat.
type TelegramConfig struct {
	BotToken      string `json:"botToken" yaml:"botToken"`
	ChatID        int64  `json:"chatId" yaml:"chatId"`
	ThreadID      int64  `json:"threadId,omitempty" yaml:"threadId,omitempty"`       // supergroup topic, 0 = none
	AdminID       int64  `json:"adminId,omitempty" yaml:"adminId,omitempty"`         // restrict admin commands, 0 = anyone
	MonitorChatID int64  `json:"monitorChatId,omitempty" yaml:"monitorChatId,omitempty"` // startup/crash notices, 0 = off
}

// DefaultConfigDir returns the default config directory (~/.maxgram).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".maxgram"
	}
	return filepath.Join(home, ".maxgram")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Defaults returns a config with sensible defaults filled in.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			StatePath: filepath.Join(DefaultConfigDir(), "state.db"),
		},
	}
}

// Load reads, env-expands, parses, and validates a config file. JSON by
// default; .yaml/.yml files are parsed as YAML.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.StatePath = ExpandPath(cfg.General.StatePath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes the config as pretty-printed JSON.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the values the relay cannot run without. Missing
// credentials abort startup; there is no degraded mode.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Max.Token == "" {
		errs = append(errs, "max.token is required")
	}
	if len(cfg.Max.ChatIDs) == 0 {
		errs = append(errs, "max.chatIds must list at least one chat")
	}
	if cfg.Telegram.BotToken == "" {
		errs = append(errs, "telegram.botToken is required")
	}
	if cfg.Telegram.ChatID == 0 {
		errs = append(errs, "telegram.chatId is required")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
