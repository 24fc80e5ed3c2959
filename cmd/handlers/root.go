package handlers

import (
	"fmt"
	"os"

	"newsvault/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsvault",
		Short: "Newsvault archives a news feed and re-serves it as a mirror site.",
		Long: `Newsvault pages through a story-feed API, stores every story it has
not seen before in a local archive together with its images, and serves
the archive back as a browsable, tag-filterable mirror site.

Run 'newsvault crawl' periodically (e.g. via cron) to keep the archive
fresh, and 'newsvault serve' to browse it.`,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.newsvault.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewCrawlCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewStatsCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
