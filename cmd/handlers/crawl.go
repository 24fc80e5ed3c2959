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
	"newsvault/internal/feeds"
	"newsvault/internal/logger"
	"newsvault/internal/media"
	"newsvault/internal/spider"

	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command for one archiving run
func NewCrawlCmd() *cobra.Command {
	var (
		dataDir  string
		proxy    string
		sections []string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch new stories from the feed into the archive",
		Long: `Page through every configured feed section, download the images each
story references, and store the stories that are not yet archived.

Stories already present are skipped, so repeated runs only pick up what
is new. Each feed page is committed atomically.

Examples:
  # Crawl with configured defaults
  newsvault crawl

  # Crawl through a proxy into a custom data directory
  newsvault crawl --proxy socks5://127.0.0.1:1080 --data-dir ./mirror`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), dataDir, proxy, sections)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default from config)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/SOCKS proxy URL for feed and asset requests")
	cmd.Flags().StringSliceVar(&sections, "section", nil, "Section path to crawl, repeatable (default from config)")

	return cmd
}

func runCrawl(ctx context.Context, dataDir, proxy string, sections []string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	spiderCfg := cfg.Spider
	if proxy != "" {
		spiderCfg.Proxy = proxy
	}
	if len(sections) > 0 {
		spiderCfg.Sections = sections
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

	// Feed client and asset downloader share one HTTP client so the
	// proxy and timeout settings apply to both.
	httpClient, err := feeds.NewHTTPClient(spiderCfg)
	if err != nil {
		return fmt.Errorf("failed to build HTTP client: %w", err)
	}
	fetcher := feeds.NewClientWithHTTP(spiderCfg, httpClient)

	downloader, err := media.NewDownloader(httpClient, filepath.Join(dataDir, cfg.Archive.MediaDir))
	if err != nil {
		return fmt.Errorf("failed to prepare media directory: %w", err)
	}

	// Ctrl+C cancels the run; the archive stays consistent because
	// ingestion commits page by page.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting crawl", "sections", spiderCfg.Sections, "data_dir", dataDir)

	stats, err := spider.New(spiderCfg, fetcher, downloader, arch).Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Printf("Crawl complete: %d pages, %d stories seen, %d newly archived, %d assets\n",
		stats.Pages, stats.Seen, stats.Inserted, stats.Assets)
	return nil
}
