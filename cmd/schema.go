package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the schema of the connected database",
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	session, err := newSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	descriptor, err := session.Schema(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, tbl := range descriptor.Tables {
		fmt.Fprintf(out, "Table: %s\n", tbl.Name)

		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"column", "type"})
		for _, col := range tbl.Columns {
			t.AppendRow(table.Row{col.Name, col.DataType})
		}
		fmt.Fprintln(out, t.Render())

		for _, fk := range tbl.ForeignKeys {
			fmt.Fprintf(out, "  fk: [%s] -> %s.[%s]\n",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
		}
		for _, idx := range tbl.Indexes {
			kind := "index"
			if idx.Unique {
				kind = "unique index"
			}
			fmt.Fprintf(out, "  %s: %s (%s)\n", kind, idx.Name, strings.Join(idx.Columns, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}
