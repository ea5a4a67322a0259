package main

import (
	"errors"
	"fmt"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/partition"
	"github.com/muurk/spiffsctl/internal/runner"
	"github.com/muurk/spiffsctl/internal/spiffs"
	"github.com/muurk/spiffsctl/internal/urls"
)

// requiredTools lists the external programs verify-setup checks.
func requiredTools(s config.Settings) []runner.Tool {
	return []runner.Tool{
		{
			Name:        "esptool",
			Command:     s.Esptool,
			VersionArgs: []string{"version"},
			InstallHint: "Install with 'pip install esptool' or see " + urls.EsptoolInstall,
		},
		{
			Name:    "mkspiffs",
			Command: s.Mkspiffs,
			// mkspiffs has no version subcommand; --version prints it and exits 0
			VersionArgs: []string{"--version"},
			InstallHint: "Download a release for your platform from " + urls.MkspiffsReleases,
		},
	}
}

// troubleshooting returns tips for the failure box, by error kind.
func troubleshooting(err error) []string {
	var (
		execErr    *runner.ExecutionError
		timeoutErr *runner.TimeoutError
		spawnErr   *runner.SpawnError
		sizeErr    *spiffs.ImageTooLargeError
	)

	switch {
	case errors.As(err, &spawnErr):
		return []string{
			fmt.Sprintf("%s was not found next to spiffsctl or in PATH", spawnErr.Tool),
			"Pass the full path with --esptool or --mkspiffs, or use --tool-dir",
			"Try: spiffsctl verify-setup",
		}
	case errors.As(err, &timeoutErr):
		return []string{
			"The tool did not finish within --timeout",
			"Check the USB cable and that nothing else holds the serial port",
			"Raise the limit: --timeout 10m, or disable it with --timeout 0",
		}
	case errors.As(err, &execErr):
		return []string{
			"Check that the port is correct and not open in a serial monitor",
			"Hold BOOT while the tool connects if the board does not enter download mode",
			"Try a lower baud rate: --speed 115200",
			"Run with --verbose to see the tool's error output",
			"See " + urls.EsptoolTroubleshooting,
		}
	case errors.Is(err, partition.ErrNotFound):
		return []string{
			"The partition table has no data/spiffs entry",
			"Flash firmware whose partition scheme includes SPIFFS",
			"Table format: " + urls.PartitionTables,
		}
	case errors.Is(err, partition.ErrTruncated), errors.Is(err, partition.ErrBadMagic):
		return []string{
			"The partition table file looks damaged",
			"Download it again: spiffsctl part --port <port>",
		}
	case errors.As(err, &sizeErr):
		return []string{
			"Remove files from the data directory",
			"Or flash firmware with a larger SPIFFS partition",
		}
	case errors.Is(err, config.ErrPortRequired):
		return []string{"Pass the device port with --port"}
	default:
		return nil
	}
}
