package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/arbitrage"
	s3blob "github.com/Domadoni/Epl-arb-finder/internal/blob/s3"
	"github.com/Domadoni/Epl-arb-finder/internal/bookmaker"
	"github.com/Domadoni/Epl-arb-finder/internal/cache/memory"
	"github.com/Domadoni/Epl-arb-finder/internal/cache/redis"
	"github.com/Domadoni/Epl-arb-finder/internal/config"
	"github.com/Domadoni/Epl-arb-finder/internal/dedup"
	"github.com/Domadoni/Epl-arb-finder/internal/domain"
	"github.com/Domadoni/Epl-arb-finder/internal/metrics"
	"github.com/Domadoni/Epl-arb-finder/internal/notify"
	"github.com/Domadoni/Epl-arb-finder/internal/platform/oddsapi"
	"github.com/Domadoni/Epl-arb-finder/internal/report"
	"github.com/Domadoni/Epl-arb-finder/internal/schedule"
	"github.com/Domadoni/Epl-arb-finder/internal/server/handler"
	"github.com/Domadoni/Epl-arb-finder/internal/server/middleware"
	"github.com/Domadoni/Epl-arb-finder/internal/service"
	"github.com/Domadoni/Epl-arb-finder/internal/store/postgres"
)

// dedupLockTTL bounds how long one process may hold the notify step.
const dedupLockTTL = 30 * time.Second

// Dependencies bundles everything the modes need. It is built by Wire and
// torn down by the returned cleanup.
type Dependencies struct {
	// Infrastructure; nil when the backend is disabled.
	Redis    *redis.Client
	Postgres *postgres.Client
	S3       *s3blob.Client

	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter
	AuditStore  domain.AuditStore
	Pingers     map[string]handler.Pinger

	Metrics  *metrics.ScanMetrics
	Odds     *oddsapi.Client
	Notifier *notify.Notifier
	Gate     *schedule.Gate

	Detector    *arbitrage.Detector
	Commissions *service.CommissionService
	Scans       *service.ScanService
	Alerts      *service.AlertService
	Cycle       *service.Cycle
}

// Wire builds the dependency graph from cfg. Backends are only dialled when
// enabled; on error everything opened so far is closed.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deps *Dependencies, cleanup func(), err error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	defer func() {
		if err != nil {
			closeAll()
		}
	}()

	deps = &Dependencies{
		Metrics: metrics.New(),
		Pingers: make(map[string]handler.Pinger),
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Postgres = pg
		deps.AuditStore = postgres.NewAuditStore(pg.Pool())
		deps.Pingers["postgres"] = pg
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.Redis = rc
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.Pingers["redis"] = rc
	} else {
		deps.SignalBus = memory.NewBus()
		deps.RateLimiter = middleware.NewMemoryLimiter()
	}

	// --- S3 export target ---
	var blob domain.BlobWriter
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.S3 = sc
		deps.Pingers["s3"] = sc
		blob = s3blob.NewWriter(sc)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	if strings.EqualFold(cfg.Mode, "notify-test") {
		return deps, closeAll, nil
	}

	// --- Scan pipeline ---
	deps.Odds = oddsapi.NewClient(cfg.Odds.BaseURL, cfg.Odds.APIKey,
		oddsapi.WithTimeout(cfg.Odds.Timeout.Duration),
		oddsapi.WithRateLimit(cfg.Odds.RequestsPerSecond, cfg.Odds.Burst),
		oddsapi.WithLogger(logger),
	)

	deps.Gate, err = schedule.NewGate(schedule.GateConfig{
		Enabled:          cfg.Schedule.Enabled,
		Timezone:         cfg.Schedule.Timezone,
		Cron:             cfg.Schedule.Cron,
		RapidWindowStart: cfg.Schedule.RapidWindowStart,
		RapidWindowEnd:   cfg.Schedule.RapidWindowEnd,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: schedule: %w", err)
	}

	enabled, err := scanners(cfg.Markets)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: markets: %w", err)
	}
	policy := bookmaker.NewPolicy(bookmaker.PolicyConfig{
		Allowed:                cfg.Filters.Allowed,
		TargetKeywords:         cfg.Filters.TargetKeywords,
		ExchangeKeywords:       cfg.Filters.ExchangeKeywords,
		Partners:               cfg.Filters.Partners,
		RequireExchangePartner: cfg.Filters.RequireExchangePartner,
	})
	logger.InfoContext(ctx, "detector configured",
		slog.Int("markets", len(enabled)),
		slog.Any("filters", policy.Names()),
		slog.Float64("min_roi_pct", cfg.Scan.MinROIPct),
	)
	deps.Detector = arbitrage.NewDetector(arbitrage.DetectorConfig{
		Scanners:  enabled,
		Policy:    policy,
		MinROIPct: cfg.Scan.MinROIPct,
		Bankroll:  cfg.Stake.Bankroll,
		StakeStep: cfg.Stake.RoundStep,
		Logger:    logger,
	})

	var commissionStore domain.CommissionStore
	switch {
	case deps.Postgres != nil:
		commissionStore = postgres.NewCommissionStore(deps.Postgres.Pool())
	case deps.Redis != nil:
		commissionStore = redis.NewCommissionStore(deps.Redis)
	}
	deps.Commissions = service.NewCommissionService(cfg.Commission, commissionStore, deps.AuditStore, logger)

	deps.Scans = service.NewScanService(deps.Odds, deps.Detector, deps.Commissions, deps.SignalBus, deps.Metrics,
		service.ScanConfig{
			Competitions:   cfg.Competitions,
			Regions:        cfg.Odds.Regions,
			Markets:        cfg.Odds.Markets,
			MaxConcurrency: cfg.Odds.MaxConcurrency,
		}, logger)

	fingerprints, err := fingerprintStore(cfg.State, deps)
	if err != nil {
		return nil, nil, err
	}
	var locks domain.LockManager
	if deps.Redis != nil {
		locks = redis.NewLockManager(deps.Redis)
	}
	d := dedup.New(dedup.Config{Store: fingerprints, Locks: locks, LockTTL: dedupLockTTL, Logger: logger})

	order := make([]string, len(cfg.Competitions))
	for i, c := range cfg.Competitions {
		order[i] = c.Name
	}
	deps.Alerts = service.NewAlertService(deps.Notifier, d, deps.AuditStore, deps.Metrics, service.AlertConfig{
		MinROIPct: cfg.Scan.NotifyThreshold(),
		Digest: notify.DigestOptions{
			Title:             cfg.Notify.Title,
			Order:             order,
			MaxPerCompetition: cfg.Notify.MaxPerCompetition,
			MaxTotal:          cfg.Notify.MaxTotal,
			Currency:          cfg.Stake.Currency,
			OddsDecimals:      cfg.Stake.OddsDecimals,
			ShowBetslip:       cfg.Stake.ShowBetslip,
		},
	}, logger)

	var exporter *report.Exporter
	if cfg.Export.Enabled {
		exporter = report.NewExporter(cfg.Export.Dir, blob, cfg.Export.S3Prefix, logger)
	}
	deps.Cycle = service.NewCycle(deps.Gate, deps.Scans, deps.Alerts, exporter, logger)

	return deps, closeAll, nil
}

// scanners registers every market scanner and selects the enabled ones in
// digest order (1X2 before corners).
func scanners(cfg config.MarketsConfig) ([]arbitrage.MarketScanner, error) {
	reg := arbitrage.NewRegistry()
	reg.Register(arbitrage.NewThreeWayScanner(cfg.ThreeWayKeys))
	reg.Register(arbitrage.NewCornersScanner(arbitrage.NewTotalsMatcher(cfg.TotalsKeys, cfg.TotalsTokens)))

	var markets []domain.MarketType
	if cfg.IncludeThreeWay {
		markets = append(markets, domain.MarketThreeWay)
	}
	if cfg.IncludeCorners {
		markets = append(markets, domain.MarketCorners)
	}
	return reg.Select(markets...)
}

// fingerprintStore picks the dedup state backend. Validate has already
// checked that redis and postgres backends have their client enabled.
func fingerprintStore(cfg config.StateConfig, deps *Dependencies) (domain.FingerprintStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return dedup.NewMemoryStore(), nil
	case "file":
		return dedup.NewFileStore(cfg.Path), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("wire: state backend redis requires [redis] enabled")
		}
		return redis.NewFingerprintStore(deps.Redis), nil
	case "postgres":
		if deps.Postgres == nil {
			return nil, fmt.Errorf("wire: state backend postgres requires [postgres] enabled")
		}
		return postgres.NewFingerprintStore(deps.Postgres.Pool()), nil
	default:
		return nil, fmt.Errorf("wire: unknown state backend %q", cfg.Backend)
	}
}
