package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// LogConfig controls the logger output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	OutputFile string `yaml:"output_file"`
}

// DataSourceConfig describes the upstream market-data provider.
type DataSourceConfig struct {
	BaseURL       string        `yaml:"base_url"`
	QuoteCurrency string        `yaml:"quote_currency"`
	Timeout       time.Duration `yaml:"timeout"`
	Proxy         string        `yaml:"proxy"`
	Workers       int           `yaml:"workers"`
	MinPrice      float64       `yaml:"min_price"`
	Exclude       []string      `yaml:"exclude"`
	Demo          bool          `yaml:"demo"` // synthetic data, no network
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Cache      struct {
		SnapshotPath string `yaml:"snapshot_path"`
		ExportPath   string `yaml:"export_path"`
	} `yaml:"cache"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// envOverrides maps environment variables onto Config. Unset variables leave the
// file value untouched, so scalars other than strings are pointers.
type envOverrides struct {
	ServerAddr    string         `envconfig:"SERVER_ADDR"`
	LogLevel      string         `envconfig:"LOG_LEVEL"`
	LogFormat     string         `envconfig:"LOG_FORMAT"`
	LogFile       string         `envconfig:"LOG_FILE"`
	BaseURL       string         `envconfig:"BITHUMB_BASE_URL"`
	QuoteCurrency string         `envconfig:"QUOTE_CURRENCY"`
	Timeout       *time.Duration `envconfig:"FETCH_TIMEOUT"`
	Proxy         string         `envconfig:"HTTPS_PROXY"`
	Workers       *int           `envconfig:"FETCH_WORKERS"`
	MinPrice      *float64       `envconfig:"MIN_PRICE"`
	Exclude       []string       `envconfig:"EXCLUDE_SYMBOLS"` // comma separated
	Demo          *bool          `envconfig:"DEMO_MODE"`
	SnapshotPath  string         `envconfig:"SNAPSHOT_PATH"`
	ExportPath    string         `envconfig:"EXPORT_PATH"`
	RefreshCron   string         `envconfig:"CRON_REFRESH"`
	RunOnStart    *bool          `envconfig:"RUN_ON_START"`
	SQLitePath    string         `envconfig:"SQLITE_PATH"`
	BotToken      string         `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID        string         `envconfig:"TELEGRAM_CHAT_ID"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Log = LogConfig{Level: "info", Format: "console"}
	cfg.DataSource = DataSourceConfig{
		BaseURL:       "https://api.bithumb.com",
		QuoteCurrency: "KRW",
		Timeout:       10 * time.Second,
		Workers:       15,
		MinPrice:      0.01,
	}
	cfg.Cache.SnapshotPath = "data/snapshot.json"
	cfg.Cache.ExportPath = "data/screen.csv"
	cfg.Schedule.RefreshCron = "0 */30 * * * *"
	cfg.Database.SQLitePath = "data/coin_screener.db"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies .env and
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	env.apply(cfg)

	cfg.DataSource.QuoteCurrency = strings.ToUpper(strings.TrimSpace(cfg.DataSource.QuoteCurrency))
	return cfg, nil
}

func (e *envOverrides) apply(cfg *Config) {
	setString(&cfg.Server.Addr, e.ServerAddr)
	setString(&cfg.Log.Level, e.LogLevel)
	setString(&cfg.Log.Format, e.LogFormat)
	setString(&cfg.Log.OutputFile, e.LogFile)
	setString(&cfg.DataSource.BaseURL, e.BaseURL)
	setString(&cfg.DataSource.QuoteCurrency, e.QuoteCurrency)
	setString(&cfg.DataSource.Proxy, e.Proxy)
	setString(&cfg.Cache.SnapshotPath, e.SnapshotPath)
	setString(&cfg.Cache.ExportPath, e.ExportPath)
	setString(&cfg.Schedule.RefreshCron, e.RefreshCron)
	setString(&cfg.Database.SQLitePath, e.SQLitePath)
	setString(&cfg.Telegram.BotToken, e.BotToken)
	setString(&cfg.Telegram.ChatID, e.ChatID)
	if e.Timeout != nil {
		cfg.DataSource.Timeout = *e.Timeout
	}
	if e.Workers != nil {
		cfg.DataSource.Workers = *e.Workers
	}
	if e.MinPrice != nil {
		cfg.DataSource.MinPrice = *e.MinPrice
	}
	if len(e.Exclude) > 0 {
		cfg.DataSource.Exclude = e.Exclude
	}
	if e.Demo != nil {
		cfg.DataSource.Demo = *e.Demo
	}
	if e.RunOnStart != nil {
		cfg.Schedule.RunOnStart = *e.RunOnStart
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// TelegramEnabled reports whether both Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !c.DataSource.Demo && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if c.DataSource.QuoteCurrency == "" {
		return fmt.Errorf("data_source.quote_currency is required")
	}
	if c.DataSource.Timeout <= 0 {
		return fmt.Errorf("data_source.timeout must be positive")
	}
	if c.DataSource.Workers <= 0 {
		return fmt.Errorf("data_source.workers must be positive")
	}
	if c.DataSource.MinPrice < 0 {
		return fmt.Errorf("data_source.min_price must not be negative")
	}
	if c.Cache.SnapshotPath == "" || c.Cache.ExportPath == "" {
		return fmt.Errorf("cache.snapshot_path and cache.export_path are required")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
