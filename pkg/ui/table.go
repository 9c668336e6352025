package ui

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable renders rows under header as a rounded ASCII table. A
// non-empty footer is appended as the last line.
func RenderTable(header []string, rows [][]string, footer []string) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(toRow(header))

	for _, r := range rows {
		t.AppendRow(toRow(r))
	}
	if len(footer) > 0 {
		t.AppendFooter(toRow(footer))
	}

	return t.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
