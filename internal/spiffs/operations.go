package spiffs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/logging"
	"github.com/muurk/spiffsctl/internal/partition"
)

// Flasher moves raw bytes between device flash and local files.
type Flasher interface {
	ReadPartitionTable(ctx context.Context, out string) error
	ReadRegion(ctx context.Context, entry partition.Entry, out string) error
	WriteRegion(ctx context.Context, entry partition.Entry, in string) error
}

// Packer converts between a directory and a SPIFFS image.
type Packer interface {
	Make(ctx context.Context, dataDir, image string, size uint32) error
	Unpack(ctx context.Context, image, dataDir string) error
	List(ctx context.Context, image string) error
}

// Options holds the collaborators of an Operations value.
type Options struct {
	// Settings is the configuration of this invocation.
	Settings config.Settings

	// Flasher performs device I/O. Required by Read, Write and Part.
	Flasher Flasher

	// Packer builds and extracts images. Required by Read, Write, Make,
	// Unpack and List.
	Packer Packer

	// Logger receives structured logs. Default: no-op.
	Logger *zap.Logger

	// OnProgress is called when a step starts and when it ends.
	OnProgress ProgressFunc
}

// Operations runs the user-facing SPIFFS operations. Each one is a fixed
// chain of steps and stops at the first failing step. Nothing already written
// to disk or flash is rolled back.
type Operations struct {
	settings config.Settings
	flasher  Flasher
	packer   Packer
	logger   *zap.Logger
	progress ProgressFunc
}

// New creates Operations from opts.
func New(opts Options) *Operations {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := opts.OnProgress
	if progress == nil {
		progress = func(Step) {}
	}
	return &Operations{
		settings: opts.Settings,
		flasher:  opts.Flasher,
		packer:   opts.Packer,
		logger:   logger,
		progress: progress,
	}
}

// Result summarises a finished Read, Write or Make.
type Result struct {
	Partition partition.Entry
	ImageFile string
	ImageSize int64
	DataDir   string
	Duration  time.Duration
}

// PartitionInfo is what Part found on the device.
type PartitionInfo struct {
	// SPIFFS is the located partition, or the zero Entry when Found is false.
	SPIFFS partition.Entry

	// Found reports whether the SPIFFS marker was present.
	Found bool

	// Table holds every decoded record. It is nil when the table could not be
	// decoded as a whole; SPIFFS is still located by marker scan.
	Table []partition.Entry

	// TableErr is why Table is nil, if it is.
	TableErr error
}

// Step names, in execution order per operation.
const (
	StepReadTable   = "Reading partition table"
	StepLoadTable   = "Loading local partition table"
	StepLocate      = "Locating SPIFFS partition"
	StepParseTable  = "Decoding partition table"
	StepReadRegion  = "Reading SPIFFS region"
	StepUnpack      = "Unpacking image"
	StepMake        = "Building SPIFFS image"
	StepCheckSize   = "Checking image size"
	StepWriteRegion = "Writing SPIFFS region"
	StepList        = "Listing image"
)

// ReadSteps lists the steps of Read.
var ReadSteps = []string{StepReadTable, StepLocate, StepReadRegion, StepUnpack}

// WriteSteps lists the steps of Write.
var WriteSteps = []string{StepReadTable, StepLocate, StepMake, StepCheckSize, StepWriteRegion}

// PartSteps lists the steps of Part.
var PartSteps = []string{StepReadTable, StepParseTable}

// MakeSteps lists the steps of Make.
var MakeSteps = []string{StepLoadTable, StepMake}

// UnpackSteps lists the steps of Unpack.
var UnpackSteps = []string{StepUnpack}

// Read downloads the SPIFFS region into the image file and unpacks it into
// the data directory.
func (o *Operations) Read(ctx context.Context) (*Result, error) {
	if err := o.settings.RequirePort(); err != nil {
		return nil, err
	}

	start := time.Now()
	s := o.newSequence(ReadSteps)

	entry, err := o.readAndLocate(ctx, s)
	if err != nil {
		return nil, err
	}

	if err := s.run(StepReadRegion, func() (string, error) {
		if err := o.flasher.ReadRegion(ctx, entry, o.settings.ImageFile); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes", entry.Size), nil
	}); err != nil {
		return nil, err
	}

	if err := s.run(StepUnpack, func() (string, error) {
		return o.settings.DataDir, o.packer.Unpack(ctx, o.settings.ImageFile, o.settings.DataDir)
	}); err != nil {
		return nil, err
	}

	return &Result{
		Partition: entry,
		ImageFile: o.settings.ImageFile,
		ImageSize: int64(entry.Size),
		DataDir:   o.settings.DataDir,
		Duration:  time.Since(start),
	}, nil
}

// Write packs the data directory into an image sized to the SPIFFS partition
// and flashes it. An image larger than the partition is never flashed.
func (o *Operations) Write(ctx context.Context) (*Result, error) {
	if err := o.settings.RequirePort(); err != nil {
		return nil, err
	}

	start := time.Now()
	s := o.newSequence(WriteSteps)

	entry, err := o.readAndLocate(ctx, s)
	if err != nil {
		return nil, err
	}

	if err := s.run(StepMake, func() (string, error) {
		return "", o.packer.Make(ctx, o.settings.DataDir, o.settings.ImageFile, entry.Size)
	}); err != nil {
		return nil, err
	}

	var imageSize int64
	if err := s.run(StepCheckSize, func() (string, error) {
		n, err := CheckImageFits(o.settings.ImageFile, entry)
		imageSize = n
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d of %d bytes", n, entry.Size), nil
	}); err != nil {
		return nil, err
	}

	if err := s.run(StepWriteRegion, func() (string, error) {
		return "", o.flasher.WriteRegion(ctx, entry, o.settings.ImageFile)
	}); err != nil {
		return nil, err
	}

	return &Result{
		Partition: entry,
		ImageFile: o.settings.ImageFile,
		ImageSize: imageSize,
		DataDir:   o.settings.DataDir,
		Duration:  time.Since(start),
	}, nil
}

// Part downloads the partition table and reports the SPIFFS partition.
//
// A table without a SPIFFS record is not an error here: the result has
// Found set to false and a zero SPIFFS entry.
func (o *Operations) Part(ctx context.Context) (*PartitionInfo, error) {
	if err := o.settings.RequirePort(); err != nil {
		return nil, err
	}

	s := o.newSequence(PartSteps)

	if err := s.run(StepReadTable, func() (string, error) {
		return o.settings.TableFile, o.flasher.ReadPartitionTable(ctx, o.settings.TableFile)
	}); err != nil {
		return nil, err
	}

	info := &PartitionInfo{}
	if err := s.run(StepParseTable, func() (string, error) {
		data, err := os.ReadFile(o.settings.TableFile)
		if err != nil {
			return "", fmt.Errorf("failed to read partition table %s: %w", o.settings.TableFile, err)
		}

		info.Table, info.TableErr = partition.ParseTable(data)
		if info.TableErr != nil {
			o.logger.Warn("partition table not fully decodable", zap.Error(info.TableErr))
			info.Table = nil
		}

		entry, err := partition.FindSPIFFS(data)
		switch {
		case errors.Is(err, partition.ErrNotFound):
			o.logger.Warn("no SPIFFS partition in table", zap.String("table", o.settings.TableFile))
			return "no SPIFFS partition", nil
		case err != nil:
			return "", err
		}

		info.SPIFFS = entry
		info.Found = true
		return entry.String(), nil
	}); err != nil {
		return nil, err
	}

	return info, nil
}

// Make packs the data directory into an image sized from the local partition
// table file, which must already exist.
func (o *Operations) Make(ctx context.Context) (*Result, error) {
	start := time.Now()
	s := o.newSequence(MakeSteps)

	var entry partition.Entry
	if err := s.run(StepLoadTable, func() (string, error) {
		var err error
		entry, err = partition.ReadFile(o.settings.TableFile)
		if err != nil {
			return "", err
		}
		o.logLocated(entry)
		return entry.String(), nil
	}); err != nil {
		return nil, err
	}

	if err := s.run(StepMake, func() (string, error) {
		return fmt.Sprintf("%d bytes", entry.Size), o.packer.Make(ctx, o.settings.DataDir, o.settings.ImageFile, entry.Size)
	}); err != nil {
		return nil, err
	}

	return &Result{
		Partition: entry,
		ImageFile: o.settings.ImageFile,
		ImageSize: int64(entry.Size),
		DataDir:   o.settings.DataDir,
		Duration:  time.Since(start),
	}, nil
}

// Unpack extracts the image file into the data directory.
func (o *Operations) Unpack(ctx context.Context) error {
	s := o.newSequence(UnpackSteps)
	return s.run(StepUnpack, func() (string, error) {
		return o.settings.DataDir, o.packer.Unpack(ctx, o.settings.ImageFile, o.settings.DataDir)
	})
}

// List prints the contents of the image file. The listing itself is the
// packer's output, so no steps are reported.
func (o *Operations) List(ctx context.Context) error {
	return o.packer.List(ctx, o.settings.ImageFile)
}

// CheckImageFits returns the size of the image at path and an
// *ImageTooLargeError when it does not fit in entry.
func CheckImageFits(path string, entry partition.Entry) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat image %s: %w", path, err)
	}
	if fi.Size() > int64(entry.Size) {
		return fi.Size(), &ImageTooLargeError{
			Image:         path,
			ImageSize:     fi.Size(),
			PartitionSize: entry.Size,
		}
	}
	return fi.Size(), nil
}

func (o *Operations) readAndLocate(ctx context.Context, s *sequence) (partition.Entry, error) {
	if err := s.run(StepReadTable, func() (string, error) {
		return o.settings.TableFile, o.flasher.ReadPartitionTable(ctx, o.settings.TableFile)
	}); err != nil {
		return partition.Entry{}, err
	}

	var entry partition.Entry
	err := s.run(StepLocate, func() (string, error) {
		var err error
		entry, err = partition.ReadFile(o.settings.TableFile)
		if err != nil {
			return "", err
		}
		o.logLocated(entry)
		return entry.String(), nil
	})
	return entry, err
}

func (o *Operations) logLocated(entry partition.Entry) {
	o.logger.Info("located SPIFFS partition",
		logging.Address("start", entry.StartAddress),
		logging.Address("size", entry.Size),
	)
}
