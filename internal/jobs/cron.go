package jobs

import (
	"context"
	"fmt"
	"time"

	"wchic_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

const (
	tickTimeout = 5 * time.Minute
	staleAfter  = 15 * time.Minute
)

type staleReleaser interface {
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Poller ticks the runner on a fixed interval. A tick that is still running
// when the next one fires makes the next one skip.
type Poller struct {
	cron     *cron.Cron
	runner   *Runner
	releaser staleReleaser
	interval time.Duration
	log      *logger.Logger
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

func NewPoller(runner *Runner, releaser staleReleaser, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	cl := cronLogger{log: log}
	return &Poller{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner:   runner,
		releaser: releaser,
		interval: interval,
		log:      log,
	}
}

// Run ticks once immediately, then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule job poller: %w", err)
	}

	p.tick(ctx)
	p.cron.Start()
	p.log.Info("job poller started", "interval", p.interval.String())

	<-ctx.Done()
	<-p.cron.Stop().Done()
	p.log.Info("job poller stopped")
	return nil
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	if p.releaser != nil {
		if n, err := p.releaser.ReleaseStale(ctx, staleAfter); err != nil {
			p.log.Error("stale job release failed", "error", err)
		} else if n > 0 {
			p.log.Warn("released stale jobs", "count", n)
		}
	}

	n, err := p.runner.RunDue(ctx)
	if err != nil {
		p.log.Error("job tick failed", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("job tick processed", "claimed", n)
	}
}
