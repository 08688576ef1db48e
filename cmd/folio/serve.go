package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/server"
)

var (
	serveHost    string
	servePort    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio server",
	Long: `Start the folio HTTP server.

The server holds one document at a time. Upload a PDF, start extraction,
follow progress on the event stream, edit pages and download exports.
Configuration changes are picked up without a restart.

The server provides:
  - /health       - Basic server health check
  - /status       - Providers and the loaded document
  - /api/...      - Document, page, extraction and export endpoints
  - /swagger      - API browser

Examples:
  folio serve                    # Start on default port 8080
  folio serve --port 3000        # Start on custom port
  folio serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := getHome()
		if err != nil {
			return err
		}

		cfgMgr, err := loadConfig(h, logger)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:           serveHost,
			Port:           servePort,
			ConfigManager:  cfgMgr,
			Home:           h,
			AllowedOrigins: serveOrigins,
			Logger:         logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origins (default: any)")

	rootCmd.AddCommand(serveCmd)
}
