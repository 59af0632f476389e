package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/assistant"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat API",
	Long: `serve exposes the assistant over HTTP: /api/connect, /api/model,
/api/ask, /api/schema, /api/history, plus /healthz and /metrics. The
configured database and model are attached at startup when available;
clients can also connect through the API.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	session := assistant.NewSession(cfg)
	defer session.Close()

	// Best effort: the API also accepts connections after startup.
	if err := session.Connect(ctx, cfg.Database); err != nil {
		zap.S().Warnf("database not connected at startup: %v", err)
	}
	if cfg.Model.APIKey != "" {
		if err := session.ConnectModel(ctx, cfg.Model.APIKey, cfg.Model.Model); err != nil {
			zap.S().Warnf("model not connected at startup: %v", err)
		}
	}

	return server.New(cfg, session).ListenAndServe()
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :8080)")
}
