package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/sampledb"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and fill the sample SQLite database",
	Long: `seed creates the sample business dataset (customers, products, employees,
orders, order details) in the SQLite file given by --db, creating the file
if needed. Re-running refreshes the fixed rows.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dbCfg := cfg.Database
	dbCfg.Dialect = "sqlite"

	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sampledb.Seed(ctx, db.Pool); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sample database ready at %s\n", dbCfg.Path)
	return nil
}
