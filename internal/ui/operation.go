package ui

import (
	"errors"
	"time"

	"github.com/muurk/spiffsctl/internal/runner"
)

// OperationConfig describes an operation shown with header, steps and result.
type OperationConfig struct {
	Title     string   // e.g., "Read SPIFFS"
	Command   string   // e.g., "spiffsctl read"
	Params    []Field  // shown in the header
	StepNames []string // one per step, in order

	// Troubleshooting tips shown in the failure box.
	Troubleshooting func(err error) []string

	// Verbose shows the failing tool's stderr after the failure box.
	Verbose bool
}

// Operation renders the header, step list and result of one operation.
type Operation struct {
	config   OperationConfig
	printer  *Printer
	progress *Progress
}

// NewOperation creates an Operation that prints through p.
func NewOperation(p *Printer, config OperationConfig) *Operation {
	return &Operation{
		config:   config,
		printer:  p,
		progress: NewProgress("", config.StepNames).SetWidth(p.Width()),
	}
}

// OnStep returns the callback the operation reports steps through.
func (o *Operation) OnStep() StepCallback {
	return func(n int, name string, status StepStatus, message string) {
		if n < 1 || n > o.progress.Total() {
			return
		}
		if name != "" {
			o.progress.Steps[n-1].Name = name
		}
		o.progress.UpdateStep(n, status, message)
		o.printer.Step(o.progress, o.progress.Steps[n-1])
	}
}

// Run prints the header, calls fn, then prints a success box with the
// returned details or a failure box. fn's error is returned unchanged.
func (o *Operation) Run(fn func(onStep StepCallback) ([]Field, error)) error {
	start := time.Now()
	o.printer.Header(o.config.Title, o.config.Command, o.config.Params)

	details, err := fn(o.OnStep())
	duration := time.Since(start).Round(time.Millisecond)

	if err != nil {
		var tips []string
		if o.config.Troubleshooting != nil {
			tips = o.config.Troubleshooting(err)
		}
		o.printer.Failure(o.config.Title+" failed", err, tips)

		var execErr *runner.ExecutionError
		if o.config.Verbose && errors.As(err, &execErr) {
			o.printer.ToolOutput(execErr.Tool+" stderr", execErr.Stderr, 40)
		}
		return err
	}

	details = append(details, Field{Key: "Duration", Value: duration.String()})
	o.printer.Success(o.config.Title+" complete", details)
	return nil
}
