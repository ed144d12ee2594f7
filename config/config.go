package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Ticker   TickerConfig   `mapstructure:"ticker"`
	Quote    QuoteConfig    `mapstructure:"quote"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// TickerConfig drives the pipeline: what to fetch, how often, and how
// the work is partitioned.
type TickerConfig struct {
	Symbols         []string      `mapstructure:"symbols"`          // working set, e.g. ["AAPL", "MSFT"]
	From            string        `mapstructure:"from"`             // RFC3339 start of the first fetch window
	Interval        time.Duration `mapstructure:"interval"`         // time between ticks
	ChunkSize       int           `mapstructure:"chunk_size"`       // symbols per chunk
	Window          int           `mapstructure:"window"`           // moving-average window in data points
	MaxFetchers     int           `mapstructure:"max_fetchers"`     // upper bound on the fetch actor pool
	MailboxCapacity int           `mapstructure:"mailbox_capacity"` // per-actor queue bound; 0 = one fan-out wave
	OutputFile      string        `mapstructure:"output_file"`      // durable CSV sink path
	TailBatches     int           `mapstructure:"tail_batches"`     // complete tick batches retained in memory
	Grace           time.Duration `mapstructure:"grace"`            // tick barrier / shutdown drain bound; 0 = 2x interval
}

// FromTime parses the configured fetch-window start.
func (c TickerConfig) FromTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.From)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ticker.from %q: %w", c.From, err)
	}
	return t, nil
}

// QuoteConfig configures the chart data-source client.
type QuoteConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper. Defaults cover a
// usable run out of the box; a config.yaml next to the binary and
// environment variables (e.g. TICKER_CHUNK_SIZE) override them.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("ticker.symbols", []string{"AAPL", "AMZN", "GOOG", "MSFT"})
	v.SetDefault("ticker.from", time.Now().UTC().AddDate(0, -3, 0).Format(time.RFC3339))
	v.SetDefault("ticker.interval", 10*time.Second)
	v.SetDefault("ticker.chunk_size", 5)
	v.SetDefault("ticker.window", 30)
	v.SetDefault("ticker.max_fetchers", 8)
	v.SetDefault("ticker.output_file", "output.csv")
	v.SetDefault("ticker.tail_batches", 10)

	v.SetDefault("quote.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quote.timeout", 30*time.Second)
	v.SetDefault("quote.rate_limit", 5.0)
	v.SetDefault("quote.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.environment", "dev")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "stockticker")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	// Support environment variables with dot notation (e.g., TICKER_CHUNK_SIZE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional; defaults plus env are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Ticker.Symbols) == 1 && strings.Contains(cfg.Ticker.Symbols[0], ",") {
		// Comma-separated list from an environment variable.
		cfg.Ticker.Symbols = strings.Split(cfg.Ticker.Symbols[0], ",")
	}

	return &cfg, nil
}
