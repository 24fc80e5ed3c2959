package handlers

import (
	"fmt"
	"os"

	"newsvault/internal/archive"
	"newsvault/internal/config"
	"newsvault/internal/logger"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archive statistics and storage information",
		Long:  `Display the number of archived stories, index entries, and storage usage.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStats(dataDir); err != nil {
				logger.Error("Failed to get archive stats", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default from config)")

	return cmd
}

func runStats(dataDir string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
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

	stats, err := arch.Stats()
	if err != nil {
		return fmt.Errorf("failed to get archive statistics: %w", err)
	}

	fmt.Println("📊 Archive Statistics")
	fmt.Println("=====================")
	fmt.Printf("Stories:             %d\n", stats.Stories)
	fmt.Printf("Chronological index: %d entries\n", stats.ChronoEntries)
	fmt.Printf("Tag index:           %d entries\n", stats.TagEntries)
	fmt.Printf("Archive size:        %.1f MB\n", float64(stats.ArchiveSize)/(1024*1024))
	fmt.Printf("Last updated:        %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	return nil
}
