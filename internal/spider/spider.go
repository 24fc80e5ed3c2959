// Package spider drives one archiving run: page through each configured
// feed section, mirror referenced assets, and ingest new stories.
package spider

import (
	"context"
	"fmt"
	"log/slog"

	"newsvault/internal/archive"
	"newsvault/internal/config"
	"newsvault/internal/core"
	"newsvault/internal/feeds"
	"newsvault/internal/logger"
	"newsvault/internal/media"

	"github.com/google/uuid"
)

// Fetcher fetches one page of a section's story feed.
type Fetcher interface {
	FetchPage(ctx context.Context, section string, offset int) (*feeds.StoryPage, error)
}

// Downloader mirrors one remote asset locally, idempotent on presence.
type Downloader interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Stats summarizes one spider run.
type Stats struct {
	Pages    int // Feed pages fetched
	Seen     int // Stories seen in the feed
	Inserted int // Stories newly archived
	Assets   int // Assets downloaded or already present
}

// Spider archives configured feed sections. All collaborators are explicit
// constructor dependencies so runs are reproducible and testable.
type Spider struct {
	cfg        config.Spider
	fetcher    Fetcher
	downloader Downloader
	archive    *archive.Archive
	log        *slog.Logger
}

// New creates a spider.
func New(cfg config.Spider, fetcher Fetcher, downloader Downloader, arch *archive.Archive) *Spider {
	return &Spider{
		cfg:        cfg,
		fetcher:    fetcher,
		downloader: downloader,
		archive:    arch,
		log:        logger.Get(),
	}
}

// Run crawls every configured section. Each feed page is fully processed
// and committed before the next page is fetched, so ingestion stays
// single-writer. Feed and storage errors abort the run; individual asset
// download failures are logged and skipped.
func (s *Spider) Run(ctx context.Context) (*Stats, error) {
	log := s.log.With("run_id", uuid.NewString())
	stats := &Stats{}

	for _, section := range s.cfg.Sections {
		log.Info("Crawling section", "section", section)
		if err := s.crawlSection(ctx, log, section, stats); err != nil {
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
	}

	log.Info("Run complete",
		"pages", stats.Pages, "seen", stats.Seen,
		"inserted", stats.Inserted, "assets", stats.Assets)
	return stats, nil
}

func (s *Spider) crawlSection(ctx context.Context, log *slog.Logger, section string, stats *Stats) error {
	offset := 0
	for {
		page, err := s.fetcher.FetchPage(ctx, section, offset)
		if err != nil {
			return err
		}
		if len(page.Elements) == 0 {
			return nil
		}
		stats.Pages++

		stories := make([]core.Story, 0, len(page.Elements))
		for _, elem := range page.Elements {
			story, err := feeds.StoryFromElement(elem)
			if err != nil {
				return err
			}
			stories = append(stories, story)

			for _, asset := range media.AssetURLs(elem, s.cfg.CDNPrefix) {
				if _, err := s.downloader.Fetch(ctx, asset.URL); err != nil {
					log.Warn("Skipping asset", "url", asset.URL, "error", err.Error())
					continue
				}
				stats.Assets++
			}
		}

		inserted, err := s.archive.Ingest(stories)
		if err != nil {
			return err
		}
		stats.Seen += len(stories)
		stats.Inserted += inserted
		log.Info("Page archived", "section", section, "offset", offset,
			"stories", len(stories), "inserted", inserted)

		offset += len(page.Elements)
		if offset >= page.Count {
			return nil
		}
	}
}
