// Package config provides configuration management for the kaish kernel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the kernel host's configuration.
type Config struct {
	Kernel  KernelConfig  `toml:"kernel"`
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
}

// KernelConfig contains kernel-level settings (spec §4.13).
type KernelConfig struct {
	DataDir               string `toml:"data_dir"`
	ExternalCommands      bool   `toml:"external_commands"`
	ValidateBeforeExecute bool   `toml:"validate_before_execute"`
	ExitOnError           bool   `toml:"exit_on_error"`
}

// OutputConfig mirrors outputlimit.Config (spec §4.9: output limiting).
type OutputConfig struct {
	MaxBytes  int `toml:"max_bytes"`
	HeadBytes int `toml:"head_bytes"`
	TailBytes int `toml:"tail_bytes"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
}

// StringSlice is a custom type that can unmarshal from either a string or []string.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// DefaultConfig returns the default configuration with all values set.
// KAISH_DATA_DIR overrides the default data directory.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()
	if envDir := os.Getenv("KAISH_DATA_DIR"); envDir != "" {
		dataDir = envDir
	}

	return &Config{
		Kernel: KernelConfig{
			DataDir:               dataDir,
			ExternalCommands:      true,
			ValidateBeforeExecute: true,
			ExitOnError:           false,
		},
		Output: OutputConfig{
			MaxBytes:  1024 * 1024,
			HeadBytes: 8 * 1024,
			TailBytes: 8 * 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"file"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// DefaultDataDir returns the default data directory based on OS.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "kaish")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "kaish")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "kaish")
	default: // linux and others
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData != "" {
			return filepath.Join(xdgData, "kaish")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".kaish")
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// Load loads configuration from a file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()

	return cfg, nil
}

// LoadFromString loads configuration from a TOML string, merging with defaults.
func LoadFromString(tomlStr string) (*Config, error) {
	cfg := DefaultConfig()

	expanded := os.ExpandEnv(tomlStr)

	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// expandPaths expands tilde in path fields.
func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()

	expandTilde := func(path string) string {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:])
		}
		return path
	}

	c.Kernel.DataDir = expandTilde(c.Kernel.DataDir)
}

// Save saves the configuration to a file in TOML format.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

// WriteExampleConfig writes an example config file with comments.
func WriteExampleConfig(path string) error {
	example := `# kaish configuration file
# All values shown are defaults - uncomment and modify as needed

[kernel]
# Directory for kernel state (SQLite state store, output spill files)
# data_dir = "~/.kaish"
# Allow dispatch to host executables not registered as tools or builtins
external_commands = true
# Run the validator over a program before executing any of it
validate_before_execute = true
# Stop executing remaining top-level statements after the first failure
exit_on_error = false

[output]
# Maximum bytes retained per captured stream before spilling to disk
max_bytes = 1048576
# Bytes kept from the start of a truncated stream
head_bytes = 8192
# Bytes kept from the end of a truncated stream
tail_bytes = 8192

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log format: json, text
format = "text"
# Output destinations: "file", "stdout", or both
output = ["file"]
# Time format for log timestamps (Go time format)
time_format = "15:04:05.000"
`

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return os.WriteFile(path, []byte(example), 0644)
}

// StateDBPath returns the path to the kernel's SQLite state store (spec §4.12).
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Kernel.DataDir, "state.db")
}

// SpillDir returns the directory output limiting spills oversized streams to
// (spec §4.9).
func (c *Config) SpillDir() string {
	return filepath.Join(c.Kernel.DataDir, "spill")
}

// LogPath returns the path to the kernel's log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Kernel.DataDir, "logs", "kaish.log")
}

// EnsureDirectories creates all necessary directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Kernel.DataDir,
		c.SpillDir(),
		filepath.Dir(c.LogPath()),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Output.MaxBytes < 1 {
		return fmt.Errorf("output.max_bytes must be at least 1")
	}

	if c.Output.HeadBytes < 0 || c.Output.TailBytes < 0 {
		return fmt.Errorf("output.head_bytes and output.tail_bytes cannot be negative")
	}

	if c.Output.HeadBytes+c.Output.TailBytes > c.Output.MaxBytes {
		return fmt.Errorf("output.head_bytes + output.tail_bytes cannot exceed output.max_bytes")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.Logging.Output = make(StringSlice, len(c.Logging.Output))
	copy(clone.Logging.Output, c.Logging.Output)

	return &clone
}
