package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/spiffsctl/internal/partition"
)

// RenderPartitionTable renders decoded partition entries as a bordered table.
// Rows matching spiffs are highlighted.
func RenderPartitionTable(entries []partition.Entry, spiffs partition.Entry) string {
	rows := make([][]string, 0, len(entries))
	highlight := -1
	for i, e := range entries {
		rows = append(rows, []string{
			e.Label,
			e.TypeName(),
			e.SubTypeName(),
			fmt.Sprintf("0x%06x", e.StartAddress),
			fmt.Sprintf("0x%06x", e.Size),
			formatSize(e.Size),
		})
		if highlight < 0 && e.StartAddress == spiffs.StartAddress && e.Size == spiffs.Size &&
			e.Type == partition.TypeData && e.SubType == partition.SubTypeSPIFFS {
			highlight = i
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers("LABEL", "TYPE", "SUBTYPE", "OFFSET", "SIZE", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row == highlight:
				return TableHighlightStyle
			default:
				return TableCellStyle
			}
		})

	return lipgloss.NewStyle().MarginLeft(2).Render(t.Render())
}

// formatSize renders n bytes as B, KiB or MiB.
func formatSize(n uint32) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10:
		if n%(1<<10) == 0 {
			return fmt.Sprintf("%d KiB", n>>10)
		}
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
