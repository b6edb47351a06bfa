package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBFINDER_* environment variable overrides, and
// returns the final Config. An empty path, or a path that does not exist,
// leaves the defaults in place so the finder can be driven by environment
// alone. The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBFINDER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). The short legacy names (ODDS_API_KEY, BANKROLL, ...) are read first
// so the prefixed form wins when both are present.
func applyEnvOverrides(cfg *Config) {
	applyLegacyEnv(cfg)

	// ── Odds ──
	setStr(&cfg.Odds.APIKey, "ARBFINDER_ODDS_API_KEY")
	setStr(&cfg.Odds.BaseURL, "ARBFINDER_ODDS_BASE_URL")
	setStringSlice(&cfg.Odds.Regions, "ARBFINDER_ODDS_REGIONS")
	setStringSlice(&cfg.Odds.Markets, "ARBFINDER_ODDS_MARKETS")
	setDuration(&cfg.Odds.Timeout, "ARBFINDER_ODDS_TIMEOUT")
	setFloat64(&cfg.Odds.RequestsPerSecond, "ARBFINDER_ODDS_REQUESTS_PER_SECOND")
	setInt(&cfg.Odds.Burst, "ARBFINDER_ODDS_BURST")
	setInt(&cfg.Odds.MaxConcurrency, "ARBFINDER_ODDS_MAX_CONCURRENCY")

	// ── Markets ──
	setBool(&cfg.Markets.IncludeThreeWay, "ARBFINDER_MARKETS_INCLUDE_THREE_WAY")
	setBool(&cfg.Markets.IncludeCorners, "ARBFINDER_MARKETS_INCLUDE_CORNERS")
	setStringSlice(&cfg.Markets.ThreeWayKeys, "ARBFINDER_MARKETS_THREE_WAY_KEYS")
	setStringSlice(&cfg.Markets.TotalsKeys, "ARBFINDER_MARKETS_TOTALS_KEYS")
	setStringSlice(&cfg.Markets.TotalsTokens, "ARBFINDER_MARKETS_TOTALS_TOKENS")

	// ── Scan ──
	setFloat64(&cfg.Scan.MinROIPct, "ARBFINDER_SCAN_MIN_ROI_PCT")
	setFloat64Ptr(&cfg.Scan.MinROINotifyPct, "ARBFINDER_SCAN_MIN_ROI_NOTIFY_PCT")

	// ── Stake ──
	setFloat64(&cfg.Stake.Bankroll, "ARBFINDER_STAKE_BANKROLL")
	setStr(&cfg.Stake.Currency, "ARBFINDER_STAKE_CURRENCY")
	setFloat64(&cfg.Stake.RoundStep, "ARBFINDER_STAKE_ROUND_STEP")
	setInt(&cfg.Stake.OddsDecimals, "ARBFINDER_STAKE_ODDS_DECIMALS")
	setBool(&cfg.Stake.ShowBetslip, "ARBFINDER_STAKE_SHOW_BETSLIP")

	// ── Filters ──
	setStringSlice(&cfg.Filters.Allowed, "ARBFINDER_FILTERS_ALLOWED")
	setStringSlice(&cfg.Filters.TargetKeywords, "ARBFINDER_FILTERS_TARGET_KEYWORDS")
	setStringSlice(&cfg.Filters.ExchangeKeywords, "ARBFINDER_FILTERS_EXCHANGE_KEYWORDS")
	setStringSlice(&cfg.Filters.Partners, "ARBFINDER_FILTERS_PARTNERS")
	setBool(&cfg.Filters.RequireExchangePartner, "ARBFINDER_FILTERS_REQUIRE_EXCHANGE_PARTNER")

	// ── Commission ──
	setRateMap(&cfg.Commission, "ARBFINDER_COMMISSION")

	// ── Schedule ──
	setBool(&cfg.Schedule.Enabled, "ARBFINDER_SCHEDULE_ENABLED")
	setStr(&cfg.Schedule.Timezone, "ARBFINDER_SCHEDULE_TIMEZONE")
	setStr(&cfg.Schedule.Cron, "ARBFINDER_SCHEDULE_CRON")
	setStr(&cfg.Schedule.RapidWindowStart, "ARBFINDER_SCHEDULE_RAPID_WINDOW_START")
	setStr(&cfg.Schedule.RapidWindowEnd, "ARBFINDER_SCHEDULE_RAPID_WINDOW_END")
	setStr(&cfg.Schedule.Tick, "ARBFINDER_SCHEDULE_TICK")

	// ── State ──
	setStr(&cfg.State.Backend, "ARBFINDER_STATE_BACKEND")
	setStr(&cfg.State.Path, "ARBFINDER_STATE_PATH")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBFINDER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBFINDER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBFINDER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBFINDER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBFINDER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBFINDER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBFINDER_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBFINDER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBFINDER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ARBFINDER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBFINDER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBFINDER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBFINDER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBFINDER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBFINDER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBFINDER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBFINDER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBFINDER_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBFINDER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBFINDER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBFINDER_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBFINDER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBFINDER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBFINDER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBFINDER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBFINDER_S3_FORCE_PATH_STYLE")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "ARBFINDER_EXPORT_ENABLED")
	setStr(&cfg.Export.Dir, "ARBFINDER_EXPORT_DIR")
	setStr(&cfg.Export.S3Prefix, "ARBFINDER_EXPORT_S3_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBFINDER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBFINDER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBFINDER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBFINDER_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "ARBFINDER_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBFINDER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBFINDER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBFINDER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBFINDER_NOTIFY_EVENTS")
	setStr(&cfg.Notify.Title, "ARBFINDER_NOTIFY_TITLE")
	setInt(&cfg.Notify.MaxPerCompetition, "ARBFINDER_NOTIFY_MAX_PER_COMPETITION")
	setInt(&cfg.Notify.MaxTotal, "ARBFINDER_NOTIFY_MAX_TOTAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBFINDER_MODE")
	setStr(&cfg.LogLevel, "ARBFINDER_LOG_LEVEL")
}

// applyLegacyEnv maps the unprefixed variable names used by existing
// deployments (cron jobs, CI workflows) onto the config.
func applyLegacyEnv(cfg *Config) {
	setStr(&cfg.Odds.APIKey, "ODDS_API_KEY")
	setStringSlice(&cfg.Odds.Regions, "REGIONS")
	setBool(&cfg.Markets.IncludeCorners, "INCLUDE_CORNERS")
	setFloat64(&cfg.Scan.MinROIPct, "MIN_ROI_PCT")
	setFloat64Ptr(&cfg.Scan.MinROINotifyPct, "MIN_ROI_PCT_NOTIFY")
	setFloat64(&cfg.Stake.Bankroll, "BANKROLL")
	setStr(&cfg.Stake.Currency, "CURRENCY")
	setFloat64(&cfg.Stake.RoundStep, "STAKE_ROUND")
	setBool(&cfg.Stake.ShowBetslip, "SHOW_EQUALIZED_PAYOUT")
	setStringSlice(&cfg.Filters.Allowed, "ALLOWED_BOOKMAKERS")
	setStringSlice(&cfg.Filters.Partners, "PARTNER_BOOKS")
	setBool(&cfg.Filters.RequireExchangePartner, "REQUIRE_BETFAIR_PAIR")
	setStr(&cfg.Schedule.Timezone, "TIMEZONE")
	setStr(&cfg.Schedule.RapidWindowStart, "RAPID_WINDOW_START_ISO")
	setStr(&cfg.Schedule.RapidWindowEnd, "RAPID_WINDOW_END_ISO")
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")

	var testMode bool
	setBool(&testMode, "TEST_MODE")
	if testMode {
		cfg.Mode = "notify-test"
	}
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setFloat64Ptr(dst **float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = &f
		}
	}
}

// setBool also accepts "yes" and "no".
func setBool(dst *bool, key string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return
	case "yes", "y", "on":
		*dst = true
	case "no", "n", "off":
		*dst = false
	default:
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
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

// setRateMap parses "book=rate,book=rate" and merges it into dst. Malformed
// pairs are skipped.
func setRateMap(dst *map[string]float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if *dst == nil {
		*dst = make(map[string]float64)
	}
	for _, pair := range strings.Split(v, ",") {
		name, rate, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		f, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if name == "" || err != nil {
			continue
		}
		(*dst)[name] = f
	}
}
