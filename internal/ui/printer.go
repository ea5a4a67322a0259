package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to an output stream. Commands use it instead
// of printing to stdout directly so tests can capture the output.
type Printer struct {
	out   io.Writer
	width int
	tty   bool
}

// NewPrinter creates a Printer for w. A nil w means os.Stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = IsTerminal(f.Fd())
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		tty:   tty,
	}
}

// Width returns the render width.
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the render width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Writer returns the underlying stream.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// Header prints a command header followed by a blank line.
func (p *Printer) Header(title, command string, params []Field) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// Success prints a success box.
func (p *Printer) Success(title string, details []Field) {
	p.Newline()
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// Failure prints a failure box with troubleshooting tips.
func (p *Printer) Failure(title string, err error, troubleshooting []string) {
	p.Newline()
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// Warning prints a warning box.
func (p *Printer) Warning(title string, details []Field) {
	p.Newline()
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// ToolOutput prints a tool output box, showing at most maxLines lines.
// Nothing is printed for empty content.
func (p *Printer) ToolOutput(title, content string, maxLines int) {
	box := NewToolOutput(title, content).SetWidth(p.width).SetMaxLines(maxLines)
	if box.Empty() {
		return
	}
	p.Newline()
	p.Println(box.Render())
}

// Step prints a step line. On a terminal a running step is drawn without a
// newline so its final state overwrites it; elsewhere only final states are
// printed.
func (p *Printer) Step(progress *Progress, step Step) {
	line := progress.RenderStep(step)
	switch {
	case step.Status.Done():
		if p.tty {
			// Clear any leftover of the longer running line.
			_, _ = fmt.Fprint(p.out, "\r\x1b[2K")
		}
		p.Println(line)
	case step.Status == StepRunning && p.tty:
		_, _ = fmt.Fprint(p.out, line+"\r")
	}
}

// PartitionTable prints a rendered partition table.
func (p *Printer) PartitionTable(view string) {
	p.Println(view)
}
