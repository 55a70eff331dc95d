// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Seat      SeatConfig      `mapstructure:"seat"`
	Pointer   PointerConfig   `mapstructure:"pointer"`
	Keyboard  KeyboardConfig  `mapstructure:"keyboard"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Inspector InspectorConfig `mapstructure:"inspector"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SeatConfig describes the seat advertised to clients
type SeatConfig struct {
	Name         string   `mapstructure:"name"`
	Capabilities []string `mapstructure:"capabilities"` // pointer, keyboard, touch
	Version      uint32   `mapstructure:"version"`      // Highest wl_seat version offered
}

// PointerConfig contains pointer policy
type PointerConfig struct {
	EdgeEpsilon          float64 `mapstructure:"edge_epsilon"`
	ValidateCursorSerial bool    `mapstructure:"validate_cursor_serial"` // Ignore set_cursor with a stale serial
}

// KeyboardConfig contains key repeat settings
type KeyboardConfig struct {
	RepeatRate  int32 `mapstructure:"repeat_rate"`  // Characters per second
	RepeatDelay int32 `mapstructure:"repeat_delay"` // Milliseconds
}

// TraceConfig controls event recording and wire dumps
type TraceConfig struct {
	MaxEvents    int `mapstructure:"max_events"`     // 0 keeps everything
	FlushDelayMs int `mapstructure:"flush_delay_ms"` // Wire dump flush delay
	BufferSize   int `mapstructure:"buffer_size"`    // Wire dump buffer size in bytes
}

// InspectorConfig contains settings for the SSH trace inspector
type InspectorConfig struct {
	SSHPort       int      `mapstructure:"ssh_port"`
	BindAddress   string   `mapstructure:"bind_address"`
	HostKeyPath   string   `mapstructure:"host_key_path"`
	Whitelist     []string `mapstructure:"whitelist"`      // Allowed SSH key fingerprints
	WhitelistOnly bool     `mapstructure:"whitelist_only"` // Only allow whitelisted keys
	MaxClients    int      `mapstructure:"max_clients"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Seat: SeatConfig{
			Name:         "seat0",
			Capabilities: []string{"pointer", "keyboard", "touch"},
			Version:      4,
		},
		Pointer: PointerConfig{
			EdgeEpsilon:          0.5,
			ValidateCursorSerial: false,
		},
		Keyboard: KeyboardConfig{
			RepeatRate:  25,
			RepeatDelay: 600,
		},
		Trace: TraceConfig{
			MaxEvents:    10000,
			FlushDelayMs: 0,
			BufferSize:   64 * 1024,
		},
		Inspector: InspectorConfig{
			SSHPort:       52600,
			BindAddress:   "127.0.0.1",
			HostKeyPath:   "/etc/wayseat/host_key",
			Whitelist:     []string{},
			WhitelistOnly: true,
			MaxClients:    4,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayseat")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/wayseat")

		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/wayseat", sudoUser))
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "wayseat"))
		}

		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		// An explicit path that does not exist yet also means defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = loaded

	return nil
}

// Individual keys so a partial file merges with the defaults
func setDefaults() {
	eachKey(&DefaultConfig, viper.SetDefault)
}

// eachKey visits every config key with its value in c
func eachKey(c *Config, visit func(key string, value any)) {
	visit("seat.name", c.Seat.Name)
	visit("seat.capabilities", c.Seat.Capabilities)
	visit("seat.version", c.Seat.Version)

	visit("pointer.edge_epsilon", c.Pointer.EdgeEpsilon)
	visit("pointer.validate_cursor_serial", c.Pointer.ValidateCursorSerial)

	visit("keyboard.repeat_rate", c.Keyboard.RepeatRate)
	visit("keyboard.repeat_delay", c.Keyboard.RepeatDelay)

	visit("trace.max_events", c.Trace.MaxEvents)
	visit("trace.flush_delay_ms", c.Trace.FlushDelayMs)
	visit("trace.buffer_size", c.Trace.BufferSize)

	visit("inspector.ssh_port", c.Inspector.SSHPort)
	visit("inspector.bind_address", c.Inspector.BindAddress)
	visit("inspector.host_key_path", c.Inspector.HostKeyPath)
	visit("inspector.whitelist", c.Inspector.Whitelist)
	visit("inspector.whitelist_only", c.Inspector.WhitelistOnly)
	visit("inspector.max_clients", c.Inspector.MaxClients)

	visit("logging.log_level", c.Logging.LogLevel)
}

var knownCapabilities = []string{"pointer", "keyboard", "touch"}

// Validate rejects values the seat cannot run with
func (c *Config) Validate() error {
	for _, capability := range c.Seat.Capabilities {
		if !slices.Contains(knownCapabilities, strings.ToLower(capability)) {
			return fmt.Errorf("seat.capabilities: unknown capability %q", capability)
		}
	}
	if c.Seat.Version < 1 || c.Seat.Version > 4 {
		return fmt.Errorf("seat.version must be between 1 and 4, got %d", c.Seat.Version)
	}
	if c.Pointer.EdgeEpsilon < 0 || c.Pointer.EdgeEpsilon >= 1 {
		return fmt.Errorf("pointer.edge_epsilon must be in [0, 1), got %g", c.Pointer.EdgeEpsilon)
	}
	if c.Keyboard.RepeatRate < 0 || c.Keyboard.RepeatDelay < 0 {
		return fmt.Errorf("keyboard repeat settings must not be negative")
	}
	return nil
}

// HasCapability reports whether the seat advertises capability
func (c *SeatConfig) HasCapability(capability string) bool {
	return slices.ContainsFunc(c.Capabilities, func(s string) bool {
		return strings.EqualFold(s, capability)
	})
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/wayseat/wayseat.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/wayseat/wayseat.toml"
	}

	return filepath.Join(home, ".config", "wayseat", "wayseat.toml")
}

// Update replaces the whole configuration and writes it out
func Update(c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	eachKey(c, viper.Set)
	cfg = c
	return Save()
}

// AddInspectorKey adds an SSH key fingerprint to the inspector whitelist
func AddInspectorKey(fingerprint string) error {
	cfg := Get()

	if slices.Contains(cfg.Inspector.Whitelist, fingerprint) {
		return fmt.Errorf("key already whitelisted")
	}

	cfg.Inspector.Whitelist = append(cfg.Inspector.Whitelist, fingerprint)
	viper.Set("inspector.whitelist", cfg.Inspector.Whitelist)
	return Save()
}

// RemoveInspectorKey removes an SSH key fingerprint from the whitelist
func RemoveInspectorKey(fingerprint string) error {
	cfg := Get()

	i := slices.Index(cfg.Inspector.Whitelist, fingerprint)
	if i < 0 {
		return fmt.Errorf("key not found in whitelist")
	}
	cfg.Inspector.Whitelist = slices.Delete(cfg.Inspector.Whitelist, i, i+1)
	viper.Set("inspector.whitelist", cfg.Inspector.Whitelist)
	return Save()
}

// IsInspectorKeyWhitelisted checks if an SSH key fingerprint is whitelisted
func IsInspectorKeyWhitelisted(fingerprint string) bool {
	return slices.Contains(Get().Inspector.Whitelist, fingerprint)
}
