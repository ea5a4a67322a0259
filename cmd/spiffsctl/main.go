// Spiffsctl reads and writes the SPIFFS partition of an ESP32.
//
// It downloads the partition table with esptool, locates the SPIFFS
// partition in it, and hands the actual work to two external tools:
//
//   - esptool reads and writes raw flash over the serial port
//   - mkspiffs packs a directory into an image and unpacks it again
//
// See 'spiffsctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/spiffsctl/internal/logging"
	"github.com/muurk/spiffsctl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "spiffsctl",
	Short: "Read and write the SPIFFS partition of an ESP32",
	Long: `Read and write the SPIFFS filesystem partition of an ESP32.

spiffsctl reads the partition table from the device to find where the SPIFFS
partition lives, then uses:
  - esptool to read and write raw flash
  - mkspiffs to pack and unpack filesystem images

Both tools are looked up next to the spiffsctl executable first, then in PATH.
Use 'spiffsctl verify-setup' to check they can be found.`,
	Version: version.Full(),
	Example: `  # Show where the SPIFFS partition is
  spiffsctl part --port /dev/ttyUSB0

  # Download the filesystem into ./data
  spiffsctl read --port /dev/ttyUSB0

  # Upload ./www to the device at a lower baud rate
  spiffsctl write --port COM3 --speed 460800 --data www

  # Build an image from the local partition_table.bin, no device needed
  spiffsctl make`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "spiffsctl %s (commit: %s, %s, %s)\n",
			info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}
