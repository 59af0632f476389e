/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/assistant"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	_ "github.com/GoogleCloudPlatform/sql-assistant/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/sql-assistant/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/sql-assistant/internal/database/sqlite"
	_ "github.com/GoogleCloudPlatform/sql-assistant/internal/database/sqlserver"
)

var (
	// Database connection flags
	dialect                        string
	dbPath                         string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	sslMode                        string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool

	// Model flags
	geminiAPIKey string
	modelName    string

	cfg *config.Config
)

var supportedDialects = []string{
	"sqlite", "postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "mssql", "cloudsqlmssql",
}

var rootCmd = &cobra.Command{
	Use:   "sql-assistant",
	Short: "Ask natural-language questions against a SQL database",
	Long: `sql-assistant turns natural-language questions into SQL using the Gemini
API, validates the generated statement as read-only, runs it against the
connected database, and prints the result.`,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig layers command-line flags over the environment-backed
// configuration. Flags win when set.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}

	if dialect != "" {
		loaded.Database.Dialect = dialect
	}
	if dbPath != "" {
		loaded.Database.Path = dbPath
	}
	if host != "" {
		loaded.Database.Host = host
	}
	if port != 0 {
		loaded.Database.Port = port
	}
	if username != "" {
		loaded.Database.User = username
	}
	if password != "" {
		loaded.Database.Password = password
	}
	if dbName != "" {
		loaded.Database.DBName = dbName
	}
	if sslMode != "" {
		loaded.Database.SSLMode = sslMode
	}
	if cloudSQLInstanceConnectionName != "" {
		loaded.Database.CloudSQLInstanceConnectionName = cloudSQLInstanceConnectionName
	}
	if cloudSQLUsePrivateIP {
		loaded.Database.UsePrivateIP = true
	}
	if geminiAPIKey != "" {
		loaded.Model.APIKey = geminiAPIKey
	}
	if modelName != "" {
		loaded.Model.Model = modelName
	}

	if err := validateDialect(loaded.Database.Dialect); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

func validateDialect(dialect string) error {
	for _, supported := range supportedDialects {
		if dialect == supported {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
}

// newSession connects a session to the configured database, and to the
// model when needModel is set.
func newSession(ctx context.Context, needModel bool) (*assistant.Session, error) {
	s := assistant.NewSession(cfg)
	if err := s.Connect(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if needModel {
		if cfg.Model.APIKey == "" {
			s.Close()
			return nil, fmt.Errorf("a Gemini API key is required (--gemini-api-key or GEMINI_API_KEY)")
		}
		if err := s.ConnectModel(ctx, cfg.Model.APIKey, cfg.Model.Model); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "", fmt.Sprintf("Database dialect (%s)", strings.Join(supportedDialects, ", ")))
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file path (sqlite dialect)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&sslMode, "sslmode", "", "SSL mode (postgres)")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (Cloud SQL dialects)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection")

	// Model flags
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Preferred Gemini model (empty walks the default fallback chain)")

	// Add subcommands
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
}
