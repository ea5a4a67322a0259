package main

import (
	"errors"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/partition"
	"github.com/muurk/spiffsctl/internal/runner"
	"github.com/muurk/spiffsctl/internal/spiffs"
)

// Process exit codes, one per error kind.
const (
	exitOK          = 0
	exitConfig      = 1 // missing port, bad flag or config file, cancelled
	exitToolFailed  = 2 // tool exited non-zero or timed out
	exitToolMissing = 3 // tool could not be started
	exitBadTable    = 4 // no usable SPIFFS record in the partition table
	exitImageSize   = 5 // image larger than the SPIFFS partition
	exitOther       = 1
)

// errCancelled is returned when the user declines a confirmation prompt.
var errCancelled = errors.New("operation cancelled")

func exitCode(err error) int {
	var (
		cfgErr     *config.ConfigError
		execErr    *runner.ExecutionError
		timeoutErr *runner.TimeoutError
		spawnErr   *runner.SpawnError
		prereqErr  *runner.PrerequisiteError
		tableErr   *partition.TableError
		sizeErr    *spiffs.ImageTooLargeError
	)

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr), errors.Is(err, config.ErrPortRequired), errors.Is(err, errCancelled):
		return exitConfig
	case errors.As(err, &spawnErr), errors.As(err, &prereqErr):
		return exitToolMissing
	case errors.As(err, &execErr), errors.As(err, &timeoutErr):
		return exitToolFailed
	case errors.As(err, &tableErr),
		errors.Is(err, partition.ErrNotFound),
		errors.Is(err, partition.ErrTruncated),
		errors.Is(err, partition.ErrBadMagic):
		return exitBadTable
	case errors.As(err, &sizeErr):
		return exitImageSize
	default:
		return exitOther
	}
}
