package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	Spider  Spider  `mapstructure:"spider"`
	Server  Server  `mapstructure:"server"`
	Archive Archive `mapstructure:"archive"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Spider holds feed crawling configuration
type Spider struct {
	BaseURL      string        `mapstructure:"base_url"`      // Story feed API base URL
	Website      string        `mapstructure:"website"`       // Arc website parameter
	Sections     []string      `mapstructure:"sections"`      // Section paths to archive
	FeedSize     int           `mapstructure:"feed_size"`     // Items requested per feed page
	Proxy        string        `mapstructure:"proxy"`         // Optional HTTP proxy
	UserAgent    string        `mapstructure:"user_agent"`    // User-Agent header
	Timeout      time.Duration `mapstructure:"timeout"`       // Per-request timeout
	RequestDelay time.Duration `mapstructure:"request_delay"` // Minimum delay between requests
	CDNPrefix    string        `mapstructure:"cdn_prefix"`    // Asset URL prefix to mirror locally
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplateDir     string        `mapstructure:"template_dir"`
	StaticDir       string        `mapstructure:"static_dir"`
	DevMode         bool          `mapstructure:"dev_mode"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Archive holds storage configuration
type Archive struct {
	MediaDir string `mapstructure:"media_dir"` // Directory for downloaded assets
}

var globalConfig *Config

// Load loads the configuration from .env, config file, environment and defaults
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsvault")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("NEWSVAULT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration (used by tests)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", "newsvault_data")

	// Spider defaults
	viper.SetDefault("spider.base_url", "https://www.wainao.me/pf/api/v3/content/fetch/story-feed-sections")
	viper.SetDefault("spider.website", "wainao")
	viper.SetDefault("spider.sections", []string{"/wainao-reads", "/english", "/wainao-watches"})
	viper.SetDefault("spider.feed_size", 100)
	viper.SetDefault("spider.user_agent", "newsvault/1.0")
	viper.SetDefault("spider.timeout", "30s")
	viper.SetDefault("spider.request_delay", "500ms")
	viper.SetDefault("spider.cdn_prefix", "https://cloudfront-us-east-1.images.arcpublishing.com/radiofreeasia/")

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 3334)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.template_dir", "web/templates")
	viper.SetDefault("server.static_dir", "web/static")
	viper.SetDefault("server.dev_mode", false)
	viper.SetDefault("server.cors.enabled", false)

	// Archive defaults
	viper.SetDefault("archive.media_dir", "imgs")
}

// validateConfig checks settings that have no workable fallback
func validateConfig(config *Config) error {
	if config.Spider.FeedSize <= 0 {
		return fmt.Errorf("spider.feed_size must be positive, got %d", config.Spider.FeedSize)
	}
	if len(config.Spider.Sections) == 0 {
		return fmt.Errorf("spider.sections must list at least one section")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", config.Server.Port)
	}
	return nil
}
