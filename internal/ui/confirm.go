package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase is what the user must type to approve a dangerous operation.
const ConfirmPhrase = "I AGREE"

// ConfirmDangerousOperation prints a warning box to p and reads one line from
// in. It returns true only when the line is ConfirmPhrase.
func ConfirmDangerousOperation(p *Printer, in io.Reader, title string, warnings []string, disclaimer string) bool {
	width := p.Width()
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	for _, w := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+w))
	}
	lines = append(lines, "")

	if disclaimer != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width-12).
			PaddingLeft(3).
			Render(disclaimer), "")
	}

	p.Println(boxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	p.Newline()

	_, _ = fmt.Fprint(p.Writer(), WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		p.Newline()
		return false
	}

	p.Newline()
	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	p.Println(lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	p.Newline()
	return false
}

// SPIFFSWriteConfirmation asks before flashing image over the SPIFFS
// partition on port.
func SPIFFSWriteConfirmation(p *Printer, in io.Reader, port, image, region string) bool {
	return ConfirmDangerousOperation(p, in,
		"SPIFFS FLASH WRITE",
		[]string{
			"The SPIFFS partition on " + port + " will be overwritten",
			"Region: " + region,
			"Image: " + image,
			"Files on the device that are not in the image will be lost",
			"Do not disconnect the device while writing",
		},
		"Run 'spiffsctl read' first if you need a backup of the current filesystem. "+
			"Use --yes to skip this prompt in scripts.",
	)
}
