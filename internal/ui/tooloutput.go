package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ToolOutput is a box showing what an external tool printed. Verbose mode
// shows it after a failure so the tool's own diagnostics are not lost.
type ToolOutput struct {
	Title    string // e.g., "esptool.py stderr"
	Lines    []string
	Width    int
	MaxLines int // keep only the last MaxLines lines, 0 for all
}

// NewToolOutput creates a box for content, dropping trailing blank lines.
func NewToolOutput(title, content string) *ToolOutput {
	content = strings.TrimRight(content, "\r\n\t ")
	var lines []string
	if content != "" {
		lines = strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	}
	return &ToolOutput{
		Title: title,
		Lines: lines,
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the render width.
func (t *ToolOutput) SetWidth(width int) *ToolOutput {
	t.Width = width
	return t
}

// SetMaxLines limits the box to the last n lines.
func (t *ToolOutput) SetMaxLines(n int) *ToolOutput {
	t.MaxLines = n
	return t
}

// Empty reports whether there is anything to show.
func (t *ToolOutput) Empty() bool {
	return len(t.Lines) == 0
}

// Render returns the styled box.
func (t *ToolOutput) Render() string {
	width := t.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := t.Lines
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		skipped := len(lines) - t.MaxLines
		lines = append([]string{fmt.Sprintf("... (%d earlier lines)", skipped)}, lines[skipped:]...)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		ToolOutputTitleStyle.Render(t.Title),
		"",
		ToolOutputContentStyle.Render(strings.Join(lines, "\n")),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		MarginLeft(2).
		Render(inner)
}

// String implements fmt.Stringer
func (t *ToolOutput) String() string {
	return t.Render()
}
