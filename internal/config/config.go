package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// X11 display to connect to; empty uses $DISPLAY
	Display      string        `json:"display" yaml:"display" mapstructure:"display"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`
	EventBuffer  int           `json:"event_buffer" yaml:"event_buffer" mapstructure:"event_buffer"`
	LogLevel     string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty    bool          `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
	ServerPort   int           `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	DBusEnabled  bool          `json:"dbus_enabled" yaml:"dbus_enabled" mapstructure:"dbus_enabled"`
}

// Keys lists every configuration key
var Keys = []string{
	"display",
	"poll_interval",
	"event_buffer",
	"log_level",
	"log_pretty",
	"server_port",
	"dbus_enabled",
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "warning", "error"}

// ErrUnknownKey is returned for keys not in Keys
var ErrUnknownKey = errors.New("unknown configuration key")

// Defaults returns the default configuration
func Defaults() Config {
	return Config{
		Display:      "",
		PollInterval: 250 * time.Millisecond,
		EventBuffer:  64,
		LogLevel:     "info",
		LogPretty:    true,
		ServerPort:   8080,
		DBusEnabled:  false,
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port must be between 1 and 65535, got %d", c.ServerPort)
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/pidfocus/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "pidfocus", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty. A missing
// file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	v := viper.New()
	defaults := Defaults()
	v.SetDefault("display", defaults.Display)
	v.SetDefault("poll_interval", defaults.PollInterval.String())
	v.SetDefault("event_buffer", defaults.EventBuffer)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_pretty", defaults.LogPretty)
	v.SetDefault("server_port", defaults.ServerPort)
	v.SetDefault("dbus_enabled", defaults.DBusEnabled)
	v.SetEnvPrefix("PIDFOCUS")
	v.AutomaticEnv()
	v.SetConfigFile(actualConfigPath)
	v.SetConfigType("yaml")

	m := &Manager{
		configPath: actualConfigPath,
		v:          v,
	}

	if _, err := os.Stat(actualConfigPath); os.IsNotExist(err) {
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = &defaults
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := m.reload(); err != nil {
		return nil, err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Dur("poll_interval", m.config.PollInterval).
		Msg("Config loaded")

	return m, nil
}

// reload decodes viper's merged view (file, env, overrides) into m.config
func (m *Manager) reload() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		d := Defaults()
		return &d
	}
	cfg := *m.config
	return &cfg
}

// Set overrides a key in memory. Call Save to persist it.
// An invalid value is rejected and the previous one kept.
func (m *Manager) Set(key string, value any) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	previous := m.v.Get(key)
	m.v.Set(key, value)
	if err := m.reload(); err != nil {
		m.v.Set(key, previous)
		return err
	}
	return nil
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	return m.Set("server_port", port)
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	return m.Set("log_level", level)
}

// SetDisplay sets the X11 display name
func (m *Manager) SetDisplay(display string) error {
	return m.Set("display", display)
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	// Ensure the directory exists
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// GetViper exposes the underlying viper instance for `config get`
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
