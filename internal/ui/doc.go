// Package ui renders spiffsctl's terminal output with Lipgloss.
//
// Output is printed once and never redrawn, so commands stay usable in pipes
// and CI logs. The pieces are:
//
//   - Header: operation title, command line and parameters
//   - Progress: step list with a bubbles progress bar
//   - Result: success, failure and warning boxes
//   - ToolOutput: stderr of a failing tool, for --verbose
//   - RenderPartitionTable: the decoded partition table for 'part'
//
// Operation ties them together:
//
//	op := ui.NewOperation(ui.NewPrinter(os.Stdout), ui.OperationConfig{
//	    Title:     "Read SPIFFS",
//	    Command:   "spiffsctl read --port /dev/ttyUSB0",
//	    StepNames: spiffs.ReadSteps,
//	})
//	err := op.Run(func(onStep ui.StepCallback) ([]ui.Field, error) {
//	    ...
//	})
//
// Logging is separate: zap stays silent unless SPIFFSCTL_LOG_LEVEL is set,
// so these components are the only thing users normally see.
package ui
