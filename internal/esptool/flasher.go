package esptool

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/partition"
	"github.com/muurk/spiffsctl/internal/runner"
)

// Options configures a Flasher.
type Options struct {
	// Tool is the esptool executable name or path.
	// Default: "esptool.py"
	Tool string

	// Port is the serial port of the device. Required for every operation.
	Port string

	// Baud is the serial speed.
	// Default: 921600
	Baud int
}

// Flasher reads and writes raw flash regions through esptool.
type Flasher struct {
	exec   runner.Executor
	tool   string
	port   string
	baud   int
	logger *zap.Logger
}

// NewFlasher creates a Flasher that runs esptool through exec.
func NewFlasher(exec runner.Executor, opts Options, logger *zap.Logger) *Flasher {
	if opts.Tool == "" {
		opts.Tool = config.DefaultEsptool
	}
	if opts.Baud <= 0 {
		opts.Baud = config.DefaultBaud
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flasher{
		exec:   exec,
		tool:   opts.Tool,
		port:   opts.Port,
		baud:   opts.Baud,
		logger: logger,
	}
}

// Hex formats an address or length the way esptool expects it.
func Hex(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

func (f *Flasher) baseArgs() []string {
	return []string{"--port", f.port, "--baud", strconv.Itoa(f.baud)}
}

// ReadTableArgs returns the arguments that dump the partition table to out.
func (f *Flasher) ReadTableArgs(out string) []string {
	return append(f.baseArgs(), "read_flash", Hex(partition.TableOffset), Hex(partition.TableSize), out)
}

// ReadRegionArgs returns the arguments that dump entry's region to out.
func (f *Flasher) ReadRegionArgs(entry partition.Entry, out string) []string {
	return append(f.baseArgs(), "read_flash", Hex(entry.StartAddress), Hex(entry.Size), out)
}

// WriteRegionArgs returns the arguments that flash in at entry's start address.
// The length comes from the file itself.
func (f *Flasher) WriteRegionArgs(entry partition.Entry, in string) []string {
	return append(f.baseArgs(), "write_flash", Hex(entry.StartAddress), in)
}

// ReadPartitionTable reads the 0x1000 bytes at 0x8000 into out.
func (f *Flasher) ReadPartitionTable(ctx context.Context, out string) error {
	if err := f.requirePort(); err != nil {
		return err
	}

	f.logger.Info("reading partition table",
		zap.String("port", f.port),
		zap.Int("baud", f.baud),
		zap.String("output", out),
	)

	return f.run(ctx, "read_flash", f.ReadTableArgs(out))
}

// ReadRegion reads entry.Size bytes starting at entry.StartAddress into out.
func (f *Flasher) ReadRegion(ctx context.Context, entry partition.Entry, out string) error {
	if err := f.requirePort(); err != nil {
		return err
	}

	f.logger.Info("reading flash region",
		zap.String("start", Hex(entry.StartAddress)),
		zap.String("size", Hex(entry.Size)),
		zap.String("output", out),
	)

	return f.run(ctx, "read_flash", f.ReadRegionArgs(entry, out))
}

// WriteRegion writes the contents of in starting at entry.StartAddress.
func (f *Flasher) WriteRegion(ctx context.Context, entry partition.Entry, in string) error {
	if err := f.requirePort(); err != nil {
		return err
	}

	f.logger.Info("writing flash region",
		zap.String("start", Hex(entry.StartAddress)),
		zap.String("size", Hex(entry.Size)),
		zap.String("input", in),
	)

	return f.run(ctx, "write_flash", f.WriteRegionArgs(entry, in))
}

func (f *Flasher) requirePort() error {
	return config.Settings{Port: f.port}.RequirePort()
}

func (f *Flasher) run(ctx context.Context, op string, args []string) error {
	if _, err := f.exec.Run(ctx, runner.Command{Name: f.tool, Args: args}); err != nil {
		return fmt.Errorf("esptool %s failed: %w", op, err)
	}
	return nil
}
