// Package config loads application configuration from file and environment
// and owns global logger initialization.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	DataForSEO DataForSEOConfig `yaml:"dataforseo" mapstructure:"dataforseo"`
	PageSpeed  PageSpeedConfig  `yaml:"pagespeed" mapstructure:"pagespeed"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Serp       SerpConfig       `yaml:"serp" mapstructure:"serp"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataForSEOConfig holds DataForSEO API credentials.
type DataForSEOConfig struct {
	Login    string `yaml:"login" mapstructure:"login"`
	Password string `yaml:"password" mapstructure:"password"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// PageSpeedConfig holds Google PageSpeed Insights settings.
type PageSpeedConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CrawlConfig configures the crawl phase.
type CrawlConfig struct {
	MaxPages         int `yaml:"max_pages" mapstructure:"max_pages"`
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	TimeoutMins      int `yaml:"timeout_mins" mapstructure:"timeout_mins"`
}

// SerpConfig configures SERP ranking checks.
type SerpConfig struct {
	Depth             int `yaml:"depth" mapstructure:"depth"`
	MaxKeywordsPerMkt int `yaml:"max_keywords_per_market" mapstructure:"max_keywords_per_market"`
	MaxMarkets        int `yaml:"max_markets" mapstructure:"max_markets"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "audit", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.DataForSEO.Login == "" {
		problems = append(problems, "dataforseo.login is required")
	}
	if c.DataForSEO.Password == "" {
		problems = append(problems, "dataforseo.password is required")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Crawl.MaxPages < 1 || c.Crawl.MaxPages > 1000 {
		problems = append(problems, "crawl.max_pages must be between 1 and 1000")
	}
	if c.Serp.MaxKeywordsPerMkt < 1 || c.Serp.MaxKeywordsPerMkt > 100 {
		problems = append(problems, "serp.max_keywords_per_market must be between 1 and 100")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITEAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com")
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5")
	v.SetDefault("crawl.max_pages", 100)
	v.SetDefault("crawl.poll_interval_secs", 4)
	v.SetDefault("crawl.timeout_mins", 15)
	v.SetDefault("serp.depth", 20)
	v.SetDefault("serp.max_keywords_per_market", 50)
	v.SetDefault("serp.max_markets", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
