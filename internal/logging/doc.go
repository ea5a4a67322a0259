// Package logging provides structured logging for spiffsctl.
//
// This package wraps the zap logger with a process-wide instance and an
// Address field helper for flash offsets.
//
// # Silent by Default
//
// spiffsctl renders its own styled output, so zap logging is off unless the
// SPIFFSCTL_LOG_LEVEL environment variable is set (or --verbose is passed):
//
//	SPIFFSCTL_LOG_LEVEL=debug spiffsctl read --port /dev/ttyUSB0
//
// Log lines go to stderr so they never mix with tool output on stdout.
//
// # Usage
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
//	logging.Info("Partition located",
//	    logging.Address("start", entry.StartAddress),
//	    zap.Uint32("size", entry.Size),
//	)
//
// Components receive a *zap.Logger in their constructors; use Named to scope
// it:
//
//	flasher := esptool.NewFlasher(r, opts, logging.Named("esptool"))
package logging
