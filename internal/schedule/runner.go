package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner ticks jobs on cron specs. Overlapping runs of the same job are
// skipped rather than queued.
type Runner struct {
	cron    *cron.Cron
	logger  *slog.Logger
	baseCtx context.Context
}

// NewRunner creates a Runner evaluating specs in loc. Jobs receive baseCtx.
func NewRunner(baseCtx context.Context, loc *time.Location, logger *slog.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With(slog.String("component", "scheduler"))
	cl := cronLogger{logger}
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job on a standard five-field spec.
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

// Start begins ticking in the background.
func (r *Runner) Start() {
	r.logger.Info("cron started", slog.Int("entries", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop halts ticking and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
