package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	appName = "spiffsctl"

	// ConfigFileName is the name of the config file in the OS config directory.
	ConfigFileName = "config.yaml"

	// LocalConfigFileName is a per-project config file looked up in the
	// current directory before the OS config directory.
	LocalConfigFileName = "spiffsctl.yaml"

	// LocalTOMLConfigFileName is the TOML form of LocalConfigFileName. The
	// YAML file wins when both exist.
	LocalTOMLConfigFileName = "spiffsctl.toml"
)

// isTOML reports whether path names a TOML config file. Anything else is
// read as YAML.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/spiffsctl or $HOME/.config/spiffsctl
//   - macOS: $HOME/.config/spiffsctl (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\spiffsctl
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the user configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// FindConfigFile picks the config file to load.
//
// An explicit path must exist. Without one, ./spiffsctl.yaml or
// ./spiffsctl.toml is used if present, then the user config file. An empty path with a nil error means
// there is no config file, which is fine.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &ConfigError{Field: "config", Reason: fmt.Sprintf("config file %s: %v", explicit, err), Err: err}
		}
		return explicit, nil
	}

	for _, name := range []string{LocalConfigFileName, LocalTOMLConfigFileName} {
		if fileExists(name) {
			return name, nil
		}
	}

	userPath, err := GetConfigPath()
	if err != nil {
		// No home directory is not an error, just no user config
		return "", nil
	}
	if fileExists(userPath) {
		return userPath, nil
	}

	return "", nil
}

// LoadFile reads and parses a config file. Files ending in .toml are decoded
// as TOML, everything else as YAML.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("failed to read config file %s: %v", path, err), Err: err}
	}

	var fc FileConfig
	unmarshal := yaml.Unmarshal
	if isTOML(path) {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, &fc); err != nil {
		return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("failed to parse %s: %v", path, err), Err: err}
	}

	// Version 0 means the key was omitted
	if fc.Version != 0 && fc.Version != 1 {
		return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("unsupported config version: %d (expected 1)", fc.Version)}
	}

	return &fc, nil
}

// Save writes the config file atomically, creating its directory if needed.
// The format follows the file extension as in LoadFile.
func Save(path string, fc *FileConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	marshal := yaml.Marshal
	if isTOML(path) {
		marshal = toml.Marshal
	}
	data, err := marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# spiffsctl configuration
# Command-line flags override every value in this file.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// ApplyFile copies values from the config file into settings, skipping any
// setting whose flag was given explicitly on the command line.
func ApplyFile(s *Settings, fc *FileConfig, changed map[string]bool) error {
	if fc == nil {
		return nil
	}

	setString := func(flag, value string, dst *string) {
		if changed[flag] || value == "" {
			return
		}
		*dst = value
	}

	setString("port", fc.Port, &s.Port)
	setString("data", fc.Data, &s.DataDir)
	setString("file", fc.File, &s.ImageFile)
	setString("table", fc.Table, &s.TableFile)
	setString("esptool", fc.Esptool, &s.Esptool)
	setString("mkspiffs", fc.Mkspiffs, &s.Mkspiffs)
	setString("tool-dir", fc.ToolDir, &s.ToolDir)

	if !changed["speed"] && fc.Speed != 0 {
		s.Baud = fc.Speed
	}

	if !changed["timeout"] && fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return &ConfigError{Field: "timeout", Reason: fmt.Sprintf("invalid timeout %q in config file", fc.Timeout), Err: err}
		}
		s.Timeout = d
	}

	return nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
