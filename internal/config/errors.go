package config

import (
	"errors"
	"fmt"
)

// ErrPortRequired is returned when a device operation runs without --port.
var ErrPortRequired = errors.New("serial port not configured")

// ConfigError represents an invalid or missing setting.
type ConfigError struct {
	// Field is the flag / config key at fault
	Field string
	// Reason is a user-facing explanation
	Reason string
	// Underlying error if any
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
