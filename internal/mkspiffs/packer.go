package mkspiffs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/spiffsctl/internal/config"
	"github.com/muurk/spiffsctl/internal/runner"
)

// Image geometry passed to mkspiffs when building an image.
const (
	PageSize  = 256
	BlockSize = 4096
)

// Options configures a Packer.
type Options struct {
	// Tool is the mkspiffs executable name or path.
	// Default: "mkspiffs"
	Tool string

	// WorkDir is the directory relative paths are resolved against.
	// Default: the current working directory
	WorkDir string
}

// Packer converts between a directory and a SPIFFS image through mkspiffs.
type Packer struct {
	exec    runner.Executor
	tool    string
	workDir string
	logger  *zap.Logger
}

// NewPacker creates a Packer that runs mkspiffs through exec.
func NewPacker(exec runner.Executor, opts Options, logger *zap.Logger) *Packer {
	if opts.Tool == "" {
		opts.Tool = config.DefaultMkspiffs
	}
	if opts.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkDir = wd
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packer{
		exec:    exec,
		tool:    opts.Tool,
		workDir: opts.WorkDir,
		logger:  logger,
	}
}

// Path resolves path against the packer's working directory.
func (p *Packer) Path(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if p.workDir == "" {
		return filepath.Abs(path)
	}
	return filepath.Join(p.workDir, path), nil
}

// MakeArgs returns the arguments that pack dataDir into an image of size bytes.
func (p *Packer) MakeArgs(dataDir, image string, size uint32) ([]string, error) {
	data, img, err := p.paths(dataDir, image)
	if err != nil {
		return nil, err
	}
	return []string{
		"-c", data, img,
		"-p", strconv.Itoa(PageSize),
		"-b", strconv.Itoa(BlockSize),
		"-s", strconv.FormatUint(uint64(size), 10),
	}, nil
}

// UnpackArgs returns the arguments that extract image into dataDir.
func (p *Packer) UnpackArgs(image, dataDir string) ([]string, error) {
	data, img, err := p.paths(dataDir, image)
	if err != nil {
		return nil, err
	}
	return []string{"-u", data, img}, nil
}

// ListArgs returns the arguments that print the contents of image.
func (p *Packer) ListArgs(image string) ([]string, error) {
	img, err := p.Path(image)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image path: %w", err)
	}
	return []string{"-l", img}, nil
}

// Make packs dataDir into image, sized to size bytes.
func (p *Packer) Make(ctx context.Context, dataDir, image string, size uint32) error {
	args, err := p.MakeArgs(dataDir, image, size)
	if err != nil {
		return err
	}

	p.logger.Info("building SPIFFS image",
		zap.String("data", dataDir),
		zap.String("image", image),
		zap.Uint32("size", size),
	)

	return p.run(ctx, "pack", args)
}

// Unpack extracts image into dataDir.
func (p *Packer) Unpack(ctx context.Context, image, dataDir string) error {
	args, err := p.UnpackArgs(image, dataDir)
	if err != nil {
		return err
	}

	p.logger.Info("unpacking SPIFFS image",
		zap.String("image", image),
		zap.String("data", dataDir),
	)

	return p.run(ctx, "unpack", args)
}

// List prints the files contained in image.
func (p *Packer) List(ctx context.Context, image string) error {
	args, err := p.ListArgs(image)
	if err != nil {
		return err
	}

	p.logger.Debug("listing SPIFFS image", zap.String("image", image))

	return p.run(ctx, "list", args)
}

func (p *Packer) paths(dataDir, image string) (string, string, error) {
	data, err := p.Path(dataDir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	img, err := p.Path(image)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve image path: %w", err)
	}
	return data, img, nil
}

func (p *Packer) run(ctx context.Context, op string, args []string) error {
	if _, err := p.exec.Run(ctx, runner.Command{Name: p.tool, Args: args}); err != nil {
		return fmt.Errorf("mkspiffs %s failed: %w", op, err)
	}
	return nil
}
