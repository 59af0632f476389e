package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

// renderResult draws a query result as a terminal table.
func renderResult(result *database.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return "(no rows)"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range result.Rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = v
		}
		t.AppendRow(cells)
	}

	rendered := t.Render()
	if result.Truncated {
		rendered += fmt.Sprintf("\n(%d rows shown, result truncated)", len(result.Rows))
	}
	return rendered
}
