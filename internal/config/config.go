// Package config defines the top-level configuration for the arbitrage
// finder and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBFINDER_* environment variables.
type Config struct {
	Odds         OddsConfig           `toml:"odds"`
	Competitions []domain.Competition `toml:"competitions"`
	Markets      MarketsConfig        `toml:"markets"`
	Scan         ScanConfig           `toml:"scan"`
	Stake        StakeConfig          `toml:"stake"`
	Filters      FiltersConfig        `toml:"filters"`
	Commission   map[string]float64   `toml:"commission"`
	Schedule     ScheduleConfig       `toml:"schedule"`
	State        StateConfig          `toml:"state"`
	Redis        RedisConfig          `toml:"redis"`
	Postgres     PostgresConfig       `toml:"postgres"`
	S3           S3Config             `toml:"s3"`
	Export       ExportConfig         `toml:"export"`
	Server       ServerConfig         `toml:"server"`
	Notify       NotifyConfig         `toml:"notify"`
	Mode         string               `toml:"mode"`
	LogLevel     string               `toml:"log_level"`
}

// OddsConfig holds the odds provider endpoint, credentials and pacing.
type OddsConfig struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Regions           []string `toml:"regions"`
	Markets           []string `toml:"markets"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	MaxConcurrency    int      `toml:"max_concurrency"`
}

// MarketsConfig selects the scanned markets and how provider market keys are
// matched to them.
type MarketsConfig struct {
	IncludeThreeWay bool     `toml:"include_three_way"`
	IncludeCorners  bool     `toml:"include_corners"`
	ThreeWayKeys    []string `toml:"three_way_keys"`
	TotalsKeys      []string `toml:"totals_keys"`
	// TotalsTokens must appear somewhere in a totals market's text for it to
	// count as corners. Empty disables the check.
	TotalsTokens []string `toml:"totals_tokens"`
}

// ScanConfig holds the reporting and notification thresholds, in percent.
type ScanConfig struct {
	MinROIPct float64 `toml:"min_roi_pct"`
	// MinROINotifyPct falls back to MinROIPct when unset.
	MinROINotifyPct *float64 `toml:"min_roi_notify_pct"`
}

// NotifyThreshold returns the effective notification threshold.
func (s ScanConfig) NotifyThreshold() float64 {
	if s.MinROINotifyPct != nil {
		return *s.MinROINotifyPct
	}
	return s.MinROIPct
}

// StakeConfig controls stake plans and money rendering.
type StakeConfig struct {
	Bankroll     float64 `toml:"bankroll"`
	Currency     string  `toml:"currency"`
	RoundStep    float64 `toml:"round_step"`
	OddsDecimals int     `toml:"odds_decimals"`
	ShowBetslip  bool    `toml:"show_betslip"`
}

// FiltersConfig holds the bookmaker inclusion filters.
type FiltersConfig struct {
	Allowed                []string `toml:"allowed"`
	TargetKeywords         []string `toml:"target_keywords"`
	ExchangeKeywords       []string `toml:"exchange_keywords"`
	Partners               []string `toml:"partners"`
	RequireExchangePartner bool     `toml:"require_exchange_partner"`
}

// ScheduleConfig gates when scans run.
type ScheduleConfig struct {
	Enabled          bool   `toml:"enabled"`
	Timezone         string `toml:"timezone"`
	Cron             string `toml:"cron"`
	RapidWindowStart string `toml:"rapid_window_start"`
	RapidWindowEnd   string `toml:"rapid_window_end"`
	Tick             string `toml:"tick"`
}

// StateConfig selects where the last notified fingerprint is kept.
type StateConfig struct {
	Backend string `toml:"backend"` // memory, file, redis, postgres
	Path    string `toml:"path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// S3Config holds S3-compatible object storage parameters.
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

// ExportConfig controls the CSV export of each scan.
type ExportConfig struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	S3Prefix string `toml:"s3_prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled            bool     `toml:"enabled"`
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials and digest limits.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	Title             string   `toml:"title"`
	MaxPerCompetition int      `toml:"max_per_competition"`
	MaxTotal          int      `toml:"max_total"`
}

// HasSender reports whether at least one notification channel is configured.
func (n NotifyConfig) HasSender() bool {
	return (n.TelegramToken != "" && n.TelegramChatID != "") || n.DiscordWebhookURL != ""
}

// DefaultCompetitions are the English competitions scanned out of the box.
func DefaultCompetitions() []domain.Competition {
	return []domain.Competition{
		{Name: "EPL", SportKey: "soccer_epl"},
		{Name: "Championship", SportKey: "soccer_efl_championship"},
		{Name: "League One", SportKey: "soccer_england_league1"},
		{Name: "League Two", SportKey: "soccer_england_league2"},
		{Name: "FA Cup", SportKey: "soccer_fa_cup"},
		{Name: "EFL Cup", SportKey: "soccer_efl_cup"},
	}
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Odds: OddsConfig{
			BaseURL:           "https://api.the-odds-api.com/v4",
			Regions:           []string{"uk", "eu"},
			Markets:           []string{"h2h", "totals"},
			Timeout:           duration{25 * time.Second},
			RequestsPerSecond: 2,
			Burst:             2,
			MaxConcurrency:    3,
		},
		Competitions: DefaultCompetitions(),
		Markets: MarketsConfig{
			IncludeThreeWay: true,
			IncludeCorners:  true,
			ThreeWayKeys:    []string{"h2h"},
			TotalsKeys:      []string{"totals", "totals_corners", "corners", "total_corners", "corners_totals"},
			TotalsTokens:    []string{"corner"},
		},
		Scan: ScanConfig{
			MinROIPct: 0.2,
		},
		Stake: StakeConfig{
			Bankroll:     100,
			Currency:     "£",
			RoundStep:    0.01,
			OddsDecimals: 2,
			ShowBetslip:  true,
		},
		Filters: FiltersConfig{
			Allowed: []string{
				"Bet365", "Ladbrokes", "William Hill", "Pinnacle", "Unibet", "Coral",
				"Paddy Power", "Betfair", "Sky Bet",
			},
			TargetKeywords:   []string{"paddy power", "paddypower", "betfair", "sky bet", "skybet"},
			ExchangeKeywords: []string{"betfair", "betfair exchange"},
			Partners:         []string{"bet365", "ladbrokes", "william hill", "boylesports", "boyle sports", "coral"},
		},
		Commission: map[string]float64{},
		Schedule: ScheduleConfig{
			Enabled:  true,
			Timezone: "Europe/Dublin",
			Cron:     "*/30 * * * *",
			Tick:     "* * * * *",
		},
		State: StateConfig{
			Backend: "file",
			Path:    ".arb_state_hash",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbfinder-exports",
			ForcePathStyle: true,
		},
		Export: ExportConfig{
			Dir:      "exports",
			S3Prefix: "scans",
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8080,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 30,
		},
		Notify: NotifyConfig{
			Events:            []string{"arb_detected", "scan_failed", "test"},
			Title:             "New ENG arbs found",
			MaxPerCompetition: 6,
			MaxTotal:          12,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":        true,
	"daemon":      true,
	"server":      true,
	"notify-test": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validStateBackends = map[string]bool{
	"memory":   true,
	"file":     true,
	"redis":    true,
	"postgres": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, daemon, server, notify-test)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// The odds provider is not needed to send a test notification.
	if mode != "notify-test" {
		if c.Odds.APIKey == "" {
			errs = append(errs, "odds: api_key is required for mode "+c.Mode)
		}
		if c.Odds.BaseURL == "" {
			errs = append(errs, "odds: base_url must not be empty")
		}
		if len(c.Odds.Regions) == 0 {
			errs = append(errs, "odds: at least one region is required")
		}
		if len(c.Competitions) == 0 {
			errs = append(errs, "competitions: at least one competition is required")
		}
		for i, comp := range c.Competitions {
			if strings.TrimSpace(comp.SportKey) == "" {
				errs = append(errs, fmt.Sprintf("competitions[%d]: sport_key must not be empty", i))
			}
		}
		if !c.Markets.IncludeThreeWay && !c.Markets.IncludeCorners {
			errs = append(errs, "markets: at least one of include_three_way or include_corners must be true")
		}
	}
	if c.Odds.RequestsPerSecond < 0 {
		errs = append(errs, "odds: requests_per_second must be >= 0")
	}
	if c.Odds.MaxConcurrency < 1 {
		errs = append(errs, "odds: max_concurrency must be >= 1")
	}

	// Stake
	if c.Stake.Bankroll < 0 || math.IsNaN(c.Stake.Bankroll) {
		errs = append(errs, "stake: bankroll must be >= 0")
	}
	if c.Stake.RoundStep < 0 || math.IsNaN(c.Stake.RoundStep) {
		errs = append(errs, "stake: round_step must be >= 0")
	}
	if c.Stake.OddsDecimals < 0 || c.Stake.OddsDecimals > 6 {
		errs = append(errs, "stake: odds_decimals must be between 0 and 6")
	}

	for book, rate := range c.Commission {
		if !(rate >= 0 && rate < 1) {
			errs = append(errs, fmt.Sprintf("commission: %q must be in [0, 1), got %v", book, rate))
		}
	}

	if c.Filters.RequireExchangePartner {
		if len(c.Filters.ExchangeKeywords) == 0 || len(c.Filters.Partners) == 0 {
			errs = append(errs, "filters: exchange_keywords and partners are required when require_exchange_partner is set")
		}
	}

	// Schedule
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("schedule: unknown timezone %q", c.Schedule.Timezone))
		}
	}
	if (c.Schedule.RapidWindowStart == "") != (c.Schedule.RapidWindowEnd == "") {
		errs = append(errs, "schedule: rapid_window_start and rapid_window_end must be set together")
	}

	// State
	backend := strings.ToLower(c.State.Backend)
	if !validStateBackends[backend] {
		errs = append(errs, fmt.Sprintf("state: unknown backend %q (valid: memory, file, redis, postgres)", c.State.Backend))
	}
	if backend == "redis" && !c.Redis.Enabled {
		errs = append(errs, "state: backend redis requires redis.enabled")
	}
	if backend == "postgres" && !c.Postgres.Enabled {
		errs = append(errs, "state: backend postgres requires postgres.enabled")
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
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
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
	if c.Export.Enabled && c.Export.Dir == "" && !c.S3.Enabled {
		errs = append(errs, "export: set export.dir or enable s3")
	}

	// Server
	if c.Server.Enabled || mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if mode == "notify-test" && !c.Notify.HasSender() {
		errs = append(errs, "notify: mode notify-test requires a telegram or discord channel")
	}
	if c.Notify.MaxPerCompetition < 1 || c.Notify.MaxTotal < 1 {
		errs = append(errs, "notify: max_per_competition and max_total must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
