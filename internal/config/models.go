package config

import (
	"strings"
	"time"
)

// Defaults for every setting. These match the flag defaults of the CLI.
const (
	DefaultBaud      = 921600
	DefaultDataDir   = "data"
	DefaultImageFile = "data.spiffs"
	DefaultTableFile = "partition_table.bin"
	DefaultEsptool   = "esptool.py"
	DefaultMkspiffs  = "mkspiffs"
)

// Settings is the configuration of one spiffsctl invocation. It is built once
// at startup from flags and the optional config file, then passed by value to
// every component.
type Settings struct {
	Port      string        // Serial port of the device; required for device operations
	Baud      int           // Baud rate passed to esptool
	DataDir   string        // Directory packed into / unpacked from the image
	ImageFile string        // SPIFFS image file on disk
	TableFile string        // Local copy of the partition table
	Esptool   string        // esptool executable name or path
	Mkspiffs  string        // mkspiffs executable name or path
	ToolDir   string        // Directory searched for tools before PATH
	Timeout   time.Duration // Per-tool timeout, 0 for none
}

// DefaultSettings returns Settings with all defaults applied and no port.
func DefaultSettings() Settings {
	return Settings{
		Baud:      DefaultBaud,
		DataDir:   DefaultDataDir,
		ImageFile: DefaultImageFile,
		TableFile: DefaultTableFile,
		Esptool:   DefaultEsptool,
		Mkspiffs:  DefaultMkspiffs,
	}
}

// Validate checks settings that every operation depends on. The port is not
// checked here; see RequirePort.
func (s Settings) Validate() error {
	if s.Baud <= 0 {
		return &ConfigError{Field: "speed", Reason: "baud rate must be greater than 0"}
	}
	if strings.TrimSpace(s.DataDir) == "" {
		return &ConfigError{Field: "data", Reason: "data directory must not be empty"}
	}
	if strings.TrimSpace(s.ImageFile) == "" {
		return &ConfigError{Field: "file", Reason: "image file must not be empty"}
	}
	if strings.TrimSpace(s.TableFile) == "" {
		return &ConfigError{Field: "table", Reason: "partition table file must not be empty"}
	}
	if strings.TrimSpace(s.Esptool) == "" {
		return &ConfigError{Field: "esptool", Reason: "esptool path must not be empty"}
	}
	if strings.TrimSpace(s.Mkspiffs) == "" {
		return &ConfigError{Field: "mkspiffs", Reason: "mkspiffs path must not be empty"}
	}
	if s.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "timeout must not be negative"}
	}
	return nil
}

// RequirePort returns an error wrapping ErrPortRequired when no port is set.
func (s Settings) RequirePort() error {
	if strings.TrimSpace(s.Port) == "" {
		return &ConfigError{
			Field:  "port",
			Reason: "--port parameter is required for this operation",
			Err:    ErrPortRequired,
		}
	}
	return nil
}

// FileConfig is the on-disk form of Settings. Durations are strings and all
// fields are optional so an empty value means "not set in the file".
type FileConfig struct {
	Version  int    `yaml:"version" toml:"version"`
	Port     string `yaml:"port,omitempty" toml:"port,omitempty"`
	Speed    int    `yaml:"speed,omitempty" toml:"speed,omitempty"`
	Data     string `yaml:"data,omitempty" toml:"data,omitempty"`
	File     string `yaml:"file,omitempty" toml:"file,omitempty"`
	Table    string `yaml:"table,omitempty" toml:"table,omitempty"`
	Esptool  string `yaml:"esptool,omitempty" toml:"esptool,omitempty"`
	Mkspiffs string `yaml:"mkspiffs,omitempty" toml:"mkspiffs,omitempty"`
	ToolDir  string `yaml:"tool_dir,omitempty" toml:"tool_dir,omitempty"`
	Timeout  string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// NewFileConfig creates a FileConfig mirroring the given settings.
func NewFileConfig(s Settings) *FileConfig {
	fc := &FileConfig{
		Version:  1,
		Port:     s.Port,
		Speed:    s.Baud,
		Data:     s.DataDir,
		File:     s.ImageFile,
		Table:    s.TableFile,
		Esptool:  s.Esptool,
		Mkspiffs: s.Mkspiffs,
		ToolDir:  s.ToolDir,
	}
	if s.Timeout > 0 {
		fc.Timeout = s.Timeout.String()
	}
	return fc
}
