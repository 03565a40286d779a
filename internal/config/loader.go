package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETLAB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETLAB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject credentials at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// --- Market ---
	setBool(&cfg.Market.ShortSellingBan, "MARKETLAB_MARKET_SHORT_SELLING_BAN")
	setFloat64(&cfg.Market.CircuitBreakerPct, "MARKETLAB_MARKET_CIRCUIT_BREAKER_PCT")
	setInt(&cfg.Market.MaxOrderQty, "MARKETLAB_MARKET_MAX_ORDER_QTY")
	setInt64(&cfg.Market.Seed, "MARKETLAB_MARKET_SEED")

	// --- Postgres ---
	setBool(&cfg.Postgres.Enabled, "MARKETLAB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETLAB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKETLAB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETLAB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETLAB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETLAB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETLAB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETLAB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETLAB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETLAB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETLAB_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setBool(&cfg.Redis.Enabled, "MARKETLAB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETLAB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETLAB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETLAB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETLAB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETLAB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETLAB_REDIS_TLS_ENABLED")

	// --- S3 ---
	setBool(&cfg.S3.Enabled, "MARKETLAB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETLAB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETLAB_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETLAB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETLAB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETLAB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETLAB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETLAB_S3_FORCE_PATH_STYLE")

	// --- Server ---
	setInt(&cfg.Server.Port, "MARKETLAB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETLAB_SERVER_CORS_ORIGINS")

	// --- Notify ---
	setStr(&cfg.Notify.TelegramToken, "MARKETLAB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETLAB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETLAB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETLAB_NOTIFY_EVENTS")

	// --- Batch ---
	setInt(&cfg.Batch.Rounds, "MARKETLAB_BATCH_ROUNDS")

	// --- Top-level ---
	setStr(&cfg.Mode, "MARKETLAB_MODE")
	setStr(&cfg.LogLevel, "MARKETLAB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
