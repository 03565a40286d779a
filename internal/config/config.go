// Package config defines the top-level configuration for the market lab and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/quantlab/marketlab/internal/policy"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETLAB_* environment
// variables.
type Config struct {
	Market   MarketConfig   `toml:"market"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Batch    BatchConfig    `toml:"batch"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// AssetConfig lists one tradable instrument and its starting price.
type AssetConfig struct {
	Symbol string  `toml:"symbol"`
	Price  float64 `toml:"price"`
}

// HumansConfig describes the human team roster.
type HumansConfig struct {
	Count        int     `toml:"count"`
	StartingCash float64 `toml:"starting_cash"`
	NamePrefix   string  `toml:"name_prefix"`
}

// BotConfig describes one bot: its display name, decision policy, and
// starting cash.
type BotConfig struct {
	Name   string  `toml:"name"`
	Policy string  `toml:"policy"`
	Cash   float64 `toml:"cash"`
}

// MarketConfig holds the fixed seed configuration the simulation is built
// from, plus the initial regulatory settings.
type MarketConfig struct {
	Assets            []AssetConfig `toml:"assets"`
	Humans            HumansConfig  `toml:"humans"`
	Bots              []BotConfig   `toml:"bots"`
	ShortSellingBan   bool          `toml:"short_selling_ban"`
	CircuitBreakerPct float64       `toml:"circuit_breaker_pct"`
	// MaxOrderQty is the per-intent clamp applied to human orders. The input
	// widget bounds quantities to the same range, but the core clamps
	// independently.
	MaxOrderQty int `toml:"max_order_qty"`
	// Seed seeds the random bot. Zero selects a time-based seed.
	Seed int64 `toml:"seed"`
}

// PostgresConfig holds PostgreSQL connection parameters for the trade log.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the snapshot cache and
// the signal bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// BatchConfig holds parameters for the headless batch mode.
type BatchConfig struct {
	Rounds int `toml:"rounds"`
}

// Circuit breaker threshold bounds enforced by Validate.
const (
	MinCircuitBreakerPct = 0.05
	MaxCircuitBreakerPct = 0.50
)

// Defaults returns a Config populated with the fixed classroom seed
// configuration: two instruments, ten human teams, four deterministic bots
// and the reckless fund.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Assets: []AssetConfig{
				{Symbol: "ABC", Price: 100.0},
				{Symbol: "XYZ", Price: 200.0},
			},
			Humans: HumansConfig{
				Count:        10,
				StartingCash: 100_000,
				NamePrefix:   "Team",
			},
			Bots: []BotConfig{
				{Name: "Momentum Bot", Policy: string(policy.KindMomentum), Cash: 200_000},
				{Name: "MeanReversion Bot", Policy: string(policy.KindMeanReversion), Cash: 200_000},
				{Name: "Panic Bot", Policy: string(policy.KindPanic), Cash: 200_000},
				{Name: "Random Bot", Policy: string(policy.KindRandom), Cash: 200_000},
				{Name: "Reckless Hedge Fund", Policy: string(policy.KindReckless), Cash: 1_000_000},
			},
			ShortSellingBan:   false,
			CircuitBreakerPct: 0.10,
			MaxOrderQty:       2000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketlab",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketlab-snapshots",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"circuit_breaker", "news", "reset"},
		},
		Batch: BatchConfig{
			Rounds: 20,
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"batch":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, batch)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if len(c.Market.Assets) == 0 {
		errs = append(errs, "market: at least one asset must be listed")
	}
	seen := make(map[string]bool, len(c.Market.Assets))
	for _, a := range c.Market.Assets {
		if a.Symbol == "" {
			errs = append(errs, "market: asset symbol must not be empty")
			continue
		}
		if seen[a.Symbol] {
			errs = append(errs, fmt.Sprintf("market: duplicate asset symbol %q", a.Symbol))
		}
		seen[a.Symbol] = true
		if a.Price <= 0 {
			errs = append(errs, fmt.Sprintf("market: asset %s: price must be positive, got %g", a.Symbol, a.Price))
		}
	}
	if c.Market.Humans.Count < 0 {
		errs = append(errs, "market: humans.count must not be negative")
	}
	if c.Market.Humans.Count > 0 && c.Market.Humans.StartingCash <= 0 {
		errs = append(errs, "market: humans.starting_cash must be positive")
	}
	for _, b := range c.Market.Bots {
		if b.Name == "" {
			errs = append(errs, "market: bot name must not be empty")
		}
		if _, err := policy.ParseKind(b.Policy); err != nil {
			errs = append(errs, fmt.Sprintf("market: bot %q: %v", b.Name, err))
		}
		if b.Cash <= 0 {
			errs = append(errs, fmt.Sprintf("market: bot %q: cash must be positive", b.Name))
		}
	}
	if c.Market.CircuitBreakerPct < MinCircuitBreakerPct || c.Market.CircuitBreakerPct > MaxCircuitBreakerPct {
		errs = append(errs, fmt.Sprintf("market: circuit_breaker_pct must be in [%.2f, %.2f], got %g",
			MinCircuitBreakerPct, MaxCircuitBreakerPct, c.Market.CircuitBreakerPct))
	}
	if c.Market.MaxOrderQty <= 0 {
		errs = append(errs, "market: max_order_qty must be positive")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Batch
	if c.Mode == "batch" && c.Batch.Rounds < 1 {
		errs = append(errs, "batch: rounds must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
