package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"newsvault/internal/archive"
	"newsvault/internal/config"
	"newsvault/internal/logger"
	"newsvault/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		dataDir     string
		staticDir   string
		templateDir string
		reload      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for browsing the archive",
		Long: `Start the newsvault web server to browse archived stories.

The server provides:
  • A newest-first list of every archived story, 20 per page
  • The same list scoped to any topic or tag
  • Full article pages rendered from the archived payloads
  • Mirrored images served from the local media directory

The server reads from the archive populated by 'newsvault crawl'.
Run the crawl separately (e.g. via cron) to keep content fresh.

Examples:
  # Start server on the configured port
  newsvault serve

  # Start on a custom port
  newsvault serve --port 3000

  # Start with template auto-reload (development mode)
  newsvault serve --reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, dataDir, staticDir, templateDir, reload)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 3334)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 127.0.0.1)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default from config)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Static files directory (default from config)")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "Template directory (default from config)")
	cmd.Flags().BoolVar(&reload, "reload", false, "Auto-reload templates in dev mode")

	return cmd
}

func runServe(ctx context.Context, port int, host, dataDir, staticDir, templateDir string, reload bool) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override server config from flags if provided
	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}
	if staticDir != "" {
		serverCfg.StaticDir = staticDir
	}
	if templateDir != "" {
		serverCfg.TemplateDir = templateDir
	}
	if reload {
		serverCfg.DevMode = true
	}
	if dataDir == "" {
		dataDir = cfg.App.DataDir
	}

	arch, err := archive.Open(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := arch.Close(); err != nil {
			logger.Error("Failed to close archive", err)
		}
	}()

	srv, err := server.New(arch, serverCfg, filepath.Join(dataDir, cfg.Archive.MediaDir))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive our signal or an error from server
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed, forcing close", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
