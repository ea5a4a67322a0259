package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Tool describes an external program spiffsctl depends on.
type Tool struct {
	// Name is the human-readable name of the tool
	Name string
	// Command is the tool name or path passed to Resolve
	Command string
	// VersionArgs prints the tool's version when run
	VersionArgs []string
	// InstallHint is shown when the tool cannot be found
	InstallHint string
}

// SerialPortCheckName is the Name of the serial port check. It only warns and
// never makes a setup invalid.
const SerialPortCheckName = "Serial port"

// PrerequisiteCheck represents the result of checking a single prerequisite.
type PrerequisiteCheck struct {
	// Name is the human-readable name of the prerequisite
	Name string
	// Available indicates whether the prerequisite is available
	Available bool
	// Path is the resolved path (for binary checks)
	Path string
	// Version is the detected version (if applicable)
	Version string
	// Message provides additional context (error message or success info)
	Message string
	// Error contains the underlying error if check failed
	Error error
}

// PrerequisiteResult contains the results of all prerequisite checks.
type PrerequisiteResult struct {
	// Checks contains individual check results
	Checks []PrerequisiteCheck
	// AllAvailable is true if all required prerequisites are available
	AllAvailable bool
}

// CheckPrerequisites resolves each tool and asks it for its version.
// If port is non-empty, the serial port is checked too (warning only).
func (r *Runner) CheckPrerequisites(ctx context.Context, tools []Tool, port string) *PrerequisiteResult {
	result := &PrerequisiteResult{
		Checks:       make([]PrerequisiteCheck, 0, len(tools)+1),
		AllAvailable: true,
	}

	for _, tool := range tools {
		check := r.checkTool(ctx, tool)
		result.Checks = append(result.Checks, check)
		if !check.Available {
			result.AllAvailable = false
		}
	}

	if port != "" {
		// A missing port does not fail validation; the device may just be unplugged
		result.Checks = append(result.Checks, checkSerialPort(port))
	}

	return result
}

// checkTool verifies that a tool resolves and runs.
func (r *Runner) checkTool(ctx context.Context, tool Tool) PrerequisiteCheck {
	check := PrerequisiteCheck{
		Name: tool.Name,
	}

	path, err := r.Resolve(tool.Command)
	if err != nil {
		check.Available = false
		check.Error = err
		check.Message = fmt.Sprintf("%s not found next to spiffsctl or in PATH", tool.Command)
		if tool.InstallHint != "" {
			check.Message += "\n" + tool.InstallHint
		}
		return check
	}

	check.Path = path

	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Some tools print their version to stderr, so take both streams
	output, err := exec.CommandContext(versionCtx, path, tool.VersionArgs...).CombinedOutput()
	if err != nil && len(output) == 0 {
		check.Available = false
		check.Error = err
		check.Message = fmt.Sprintf("%s found at %s but failed to execute: %v", tool.Command, path, err)
		return check
	}

	check.Version = firstLine(string(output))
	check.Available = true
	check.Message = fmt.Sprintf("Found at %s", path)
	return check
}

// checkSerialPort checks that a serial device node exists. Windows COM ports
// have no filesystem node, so they are reported as unchecked.
func checkSerialPort(port string) PrerequisiteCheck {
	check := PrerequisiteCheck{
		Name: SerialPortCheckName,
		Path: port,
	}

	if runtime.GOOS == "windows" {
		check.Available = true
		check.Message = fmt.Sprintf("%s (not checked on Windows)", port)
		return check
	}

	if _, err := os.Stat(port); err != nil {
		check.Available = false
		check.Error = err
		check.Message = fmt.Sprintf("Cannot open %s\n"+
			"This is not fatal, but device operations will fail.\n"+
			"Check the USB cable and that the board is powered", port)
		return check
	}

	check.Available = true
	check.Message = fmt.Sprintf("%s present", port)
	return check
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// FormatPrerequisiteReport formats a PrerequisiteResult into a human-readable string.
func FormatPrerequisiteReport(result *PrerequisiteResult) string {
	var sb strings.Builder

	sb.WriteString("Prerequisites Check:\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	for _, check := range result.Checks {
		if check.Available {
			sb.WriteString(fmt.Sprintf("✓ %s\n", check.Name))
			if check.Version != "" {
				sb.WriteString(fmt.Sprintf("  Version: %s\n", check.Version))
			}
			if check.Message != "" {
				sb.WriteString(fmt.Sprintf("  %s\n", check.Message))
			}
		} else {
			sb.WriteString(fmt.Sprintf("✗ %s\n", check.Name))
			if check.Message != "" {
				sb.WriteString(fmt.Sprintf("  %s\n", check.Message))
			}
		}
		sb.WriteString("\n")
	}

	if result.AllAvailable {
		sb.WriteString("All required tools are available.\n")
	} else {
		sb.WriteString("Some tools are missing. Please install them before proceeding.\n")
	}

	return sb.String()
}
