// Package config holds the settings of a spiffsctl invocation.
//
// Settings are assembled once at startup and passed by value into each
// component; nothing reads configuration from package-level state.
//
// # Sources
//
// In order of precedence:
//
//  1. Command-line flags that were set explicitly
//  2. A YAML or TOML config file
//  3. Built-in defaults (DefaultSettings)
//
// The config file is the first of: the --config path, ./spiffsctl.yaml,
// ./spiffsctl.toml, or the user config file:
//   - Linux: $XDG_CONFIG_HOME/spiffsctl/config.yaml or $HOME/.config/spiffsctl/config.yaml
//   - macOS: $HOME/.config/spiffsctl/config.yaml
//   - Windows: %LOCALAPPDATA%\spiffsctl\config.yaml
//
// # File Format
//
//	version: 1
//	port: /dev/ttyUSB0
//	speed: 460800
//	data: data
//	file: data.spiffs
//	esptool: /opt/esp/esptool.py
//	timeout: 5m
//
// A path ending in .toml is read as TOML with the same keys:
//
//	version = 1
//	port = "COM3"
//	tool_dir = 'C:\esp\bin'
//
// # Usage Example
//
//	settings := config.DefaultSettings()
//	path, err := config.FindConfigFile(explicitPath)
//	if err != nil {
//	    return err
//	}
//	if path != "" {
//	    fc, err := config.LoadFile(path)
//	    if err != nil {
//	        return err
//	    }
//	    if err := config.ApplyFile(&settings, fc, changedFlags); err != nil {
//	        return err
//	    }
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
package config
