package runner

import (
	"fmt"
	"strings"
)

// ExecutionError means the tool ran but exited with a non-zero status.
type ExecutionError struct {
	// Tool is the tool name as given in the Command
	Tool string
	// Args are the arguments the tool was started with
	Args []string
	// ExitCode is the process exit status (-1 if it could not be determined)
	ExitCode int
	// Stderr is the captured stderr output
	Stderr string
	// Underlying error if any
	Err error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if stderr := lastLines(e.Stderr, 5); stderr != "" {
		msg += "\nstderr: " + stderr
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SpawnError means the tool could not be started at all, typically because
// the executable was not found.
type SpawnError struct {
	// Tool is the tool name as given in the Command
	Tool string
	// Underlying error
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v\n"+
		"Hint: Install it, put it next to spiffsctl, or pass its path with --esptool/--mkspiffs",
		e.Tool, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// TimeoutError means the tool ran longer than the configured timeout and was killed.
type TimeoutError struct {
	// Tool is the tool that timed out
	Tool string
	// Timeout is the duration that was exceeded
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s\n"+
		"Hint: Increase the limit with --timeout or check the serial connection",
		e.Tool, e.Timeout)
}

// PrerequisiteError represents a missing external tool.
type PrerequisiteError struct {
	// Prerequisite is the name of the missing prerequisite
	Prerequisite string
	// Details provides additional context
	Details string
	// Underlying error
	Err error
}

func (e *PrerequisiteError) Error() string {
	msg := fmt.Sprintf("missing prerequisite: %s", e.Prerequisite)
	if e.Details != "" {
		msg += "\n" + e.Details
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\nError: %v", e.Err)
	}
	return msg
}

func (e *PrerequisiteError) Unwrap() error {
	return e.Err
}

// lastLines returns at most n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
