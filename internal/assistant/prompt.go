package assistant

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

// TableSample pairs a table name with a few of its rows for prompt
// grounding.
type TableSample struct {
	Table string
	Rows  *database.Result
}

// BuildPrompt renders the schema, sample rows, and question into the text
// sent to the model. Pure function of its inputs: identical schema and
// question always produce identical prompts.
func BuildPrompt(question string, descriptor *database.SchemaDescriptor, samples []TableSample) string {
	var b strings.Builder

	b.WriteString("You are a SQL expert. Given the database schema and sample data below, ")
	b.WriteString("write a SQL query that answers the user's question.\n\n")

	b.WriteString("Database Schema:\n")
	if descriptor != nil {
		for _, table := range descriptor.Tables {
			b.WriteString(fmt.Sprintf("\nTable: %s\n", table.Name))
			b.WriteString("Columns:\n")
			for _, col := range table.Columns {
				b.WriteString(fmt.Sprintf("  - %s (%s)\n", col.Name, strings.ToUpper(col.DataType)))
			}
			if len(table.ForeignKeys) > 0 {
				b.WriteString("Foreign Keys:\n")
				for _, fk := range table.ForeignKeys {
					b.WriteString(fmt.Sprintf("  - [%s] -> %s.[%s]\n",
						strings.Join(fk.Columns, ", "),
						fk.RefTable,
						strings.Join(fk.RefColumns, ", ")))
				}
			}
		}
	}

	if len(samples) > 0 {
		b.WriteString("\nSample Data:\n")
		for _, sample := range samples {
			if sample.Rows == nil || len(sample.Rows.Rows) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("\nTable: %s\n", sample.Table))
			b.WriteString(strings.Join(sample.Rows.Columns, " | "))
			b.WriteString("\n")
			for _, row := range sample.Rows.Rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = formatCell(v)
				}
				b.WriteString(strings.Join(cells, " | "))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString(fmt.Sprintf("\nUser Question: %s\n\n", question))

	b.WriteString("Instructions:\n")
	b.WriteString("1. Return a single SQL statement and nothing else.\n")
	b.WriteString("2. Use only syntax valid for the connected database.\n")
	b.WriteString("3. Use JOINs and aggregate functions where the question requires them.\n")
	b.WriteString("4. Unless the question asks for everything, limit results with LIMIT 100.\n")
	b.WriteString("5. Only SELECT statements are allowed.\n\n")
	b.WriteString("SQL Query:")

	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
