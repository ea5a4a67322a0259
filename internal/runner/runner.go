package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command is a single external tool invocation.
type Command struct {
	// Name is a tool name ("esptool.py") or a path to the executable.
	Name string

	// Args are passed to the tool verbatim, in order.
	Args []string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Config holds the configuration for running external tools.
type Config struct {
	// ToolDir is searched for tools before PATH.
	// Default: directory containing the spiffsctl executable
	ToolDir string

	// WorkDir is the working directory of the child process.
	// Default: "" (inherit the current directory)
	WorkDir string

	// Timeout is the maximum time a tool may run. Zero means no limit.
	// Default: 0
	Timeout time.Duration

	// Stdout receives tool stdout, line by line.
	// Default: os.Stdout
	Stdout io.Writer

	// Stderr receives tool stderr as it arrives.
	// Default: os.Stderr
	Stderr io.Writer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	toolDir := ""
	if exe, err := os.Executable(); err == nil {
		toolDir = filepath.Dir(exe)
	}
	return Config{
		ToolDir: toolDir,
		Timeout: 0,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Result describes a finished tool run.
type Result struct {
	Tool     string
	Path     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs external commands. *Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Runner spawns external tools via os/exec.
type Runner struct {
	config Config
	logger *zap.Logger
}

// New creates a runner with the given configuration.
func New(config Config, logger *zap.Logger) *Runner {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config: config,
		logger: logger,
	}
}

// Resolve finds the executable for a tool name.
//
// Names containing a path separator are used as given. Otherwise ToolDir is
// checked first, then PATH.
func (r *Runner) Resolve(name string) (string, error) {
	if name == "" {
		return "", &SpawnError{Tool: name, Err: errors.New("empty tool name")}
	}

	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if _, err := os.Stat(name); err != nil {
			return "", &SpawnError{Tool: name, Err: err}
		}
		return name, nil
	}

	if r.config.ToolDir != "" {
		for _, candidate := range toolFileNames(name) {
			path := filepath.Join(r.config.ToolDir, candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", &SpawnError{Tool: name, Err: err}
	}
	return path, nil
}

func toolFileNames(name string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return []string{name + ".exe", name}
	}
	return []string{name}
}

// Run executes the command and waits for it to exit.
//
// Stdout is forwarded line by line to Config.Stdout. Stderr is forwarded to
// Config.Stderr and also kept for error reporting. A zero exit status is the
// only success; there are no retries.
func (r *Runner) Run(ctx context.Context, command Command) (*Result, error) {
	startTime := time.Now()

	path, err := r.Resolve(command.Name)
	if err != nil {
		r.logger.Error("failed to resolve tool",
			zap.String("tool", command.Name),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Info("running external tool",
		zap.String("tool", command.Name),
		zap.String("path", path),
		zap.Strings("args", command.Args),
		zap.Duration("timeout", r.config.Timeout),
	)

	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, path, command.Args...)
	cmd.Dir = r.config.WorkDir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Tool: command.Name, Err: fmt.Errorf("failed to create stdout pipe: %w", err)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Tool: command.Name, Err: fmt.Errorf("failed to create stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		r.logger.Error("failed to start external tool",
			zap.String("tool", command.Name),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &SpawnError{Tool: command.Name, Err: err}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		streamLines(stdoutPipe, io.MultiWriter(&stdoutBuf, r.config.Stdout))
	}()

	go func() {
		defer wg.Done()
		_, _ = io.Copy(io.MultiWriter(&stderrBuf, r.config.Stderr), stderrPipe)
	}()

	// Pipes must be drained before Wait closes them
	wg.Wait()
	waitErr := cmd.Wait()

	result := &Result{
		Tool:     command.Name,
		Path:     path,
		Args:     command.Args,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(startTime),
	}

	if r.config.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Tool: command.Name, Timeout: r.config.Timeout.String()}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}

		r.logger.Debug("external tool failed",
			zap.String("tool", command.Name),
			zap.Int("exit_code", result.ExitCode),
			zap.Duration("duration", result.Duration),
			zap.String("stderr", result.Stderr),
		)

		return nil, &ExecutionError{
			Tool:     command.Name,
			Args:     command.Args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      waitErr,
		}
	}

	r.logger.Info("external tool finished",
		zap.String("tool", command.Name),
		zap.Duration("duration", result.Duration),
		zap.Int("stdout_size", len(result.Stdout)),
		zap.Int("stderr_size", len(result.Stderr)),
	)

	return result, nil
}

// streamLines copies r to w one line at a time so progress output from the
// tool shows up as soon as each line is complete.
func streamLines(r io.Reader, w io.Writer) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			_, _ = w.Write(line)
		}
		if err != nil {
			return
		}
	}
}
