package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envConfigPath = "RELAY_CONFIG"
	envBotToken   = "TELEGRAM_BOT_TOKEN"
	envStateFile  = "RELAY_STATE_FILE"
	envDebounceMS = "RELAY_DEBOUNCE_MS"
	envAdmins     = "RELAY_ADMINS"
)

const (
	defaultStateFile  = "db.json"
	defaultDebounceMS = 1500
)

// Config is the root runtime configuration loaded from config.json plus
// environment overrides.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// TelegramConfig configures the bot account used for listening and sending.
type TelegramConfig struct {
	Token string `json:"token"`
}

// RelayConfig holds the engine knobs and the persisted-state location.
type RelayConfig struct {
	StateFile  string  `json:"state_file"`
	DebounceMS int     `json:"debounce_ms"`
	Admins     []int64 `json:"admins,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// Window returns the debounce quiet period.
func (r RelayConfig) Window() time.Duration {
	return time.Duration(r.DebounceMS) * time.Millisecond
}

// Load resolves config.json when present, applies defaults and environment
// overrides. A missing file is fine unless RELAY_CONFIG names one explicitly;
// the bot can run from environment alone.
func Load() (*Config, error) {
	cfg := &Config{
		Relay: RelayConfig{
			StateFile:  defaultStateFile,
			DebounceMS: defaultDebounceMS,
		},
	}

	path, required := configPath()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			if required || !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.Relay.StateFile == "" {
		cfg.Relay.StateFile = defaultStateFile
	}
	if cfg.Relay.DebounceMS <= 0 {
		cfg.Relay.DebounceMS = defaultDebounceMS
	}

	return cfg, nil
}

func configPath() (string, bool) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		return value, true
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	candidate := filepath.Join(cwd, "config.json")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, false
	}

	return "", false
}

func applyEnvOverrides(cfg *Config) error {
	if token := strings.TrimSpace(os.Getenv(envBotToken)); token != "" {
		cfg.Telegram.Token = token
	}
	if path := trimEnv(envStateFile); path != "" {
		cfg.Relay.StateFile = path
	}

	if raw := trimEnv(envDebounceMS); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid %s value %q", envDebounceMS, raw)
		}
		cfg.Relay.DebounceMS = ms
	}

	if raw := trimEnv(envAdmins); raw != "" {
		admins, err := parseAdmins(raw)
		if err != nil {
			return err
		}
		cfg.Relay.Admins = admins
	}

	return nil
}

func trimEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseAdmins(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	admins := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q", envAdmins, trimmed)
		}
		admins = append(admins, id)
	}

	return admins, nil
}
