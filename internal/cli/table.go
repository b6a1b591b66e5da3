package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	numberStyle = cellStyle.Align(lipgloss.Right)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// renderLayoutTable draws one struct's entries. When hex is set the slot
// column shows hexadecimal slot numbers. Located structs get an extra
// LOCATION column with the absolute slot.
func renderLayoutTable(s StructReport, hex bool) string {
	headers := []string{"NAME", "TYPE", "SLOT", "OFFSET", "SIZE"}
	located := len(s.Entries) > 0 && s.Entries[0].Location != ""
	if located {
		headers = append(headers, "LOCATION")
	}

	rows := make([][]string, len(s.Entries))
	for i, e := range s.Entries {
		slot := strconv.Itoa(e.Slot)
		if hex {
			slot = fmt.Sprintf("0x%x", e.Slot)
		}
		rows[i] = []string{e.Name, e.Type, slot, strconv.Itoa(e.Offset), strconv.Itoa(e.Size)}
		if located {
			rows[i] = append(rows[i], e.Location)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 2 && col <= 4:
				return numberStyle
			default:
				return cellStyle
			}
		})

	title := titleStyle.Render(fmt.Sprintf("struct %s (%d slots)", s.Name, s.TotalSlots))
	return title + "\n" + t.String()
}
