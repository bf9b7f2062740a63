package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Absent is shown in table cells for values that are not set
const Absent = "-"

// Table renders rows under headers as a borderless, aligned table
func Table(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle := lipgloss.NewStyle().PaddingRight(2)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

// WriteTable writes Table followed by a newline
func WriteTable(w io.Writer, headers []string, rows [][]string) error {
	_, err := fmt.Fprintln(w, Table(headers, rows))
	return err
}

// Cell formats an optional value for a table, using Absent for nil
func Cell[T any](v *T) string {
	if v == nil {
		return Absent
	}
	return fmt.Sprint(*v)
}

// IntCell formats an int for a table
func IntCell(v int) string {
	return strconv.Itoa(v)
}
