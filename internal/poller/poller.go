package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads one piece of cached upstream state
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Poller periodically refreshes the boss catalog and patch list so new bosses
// and patches are picked up without a restart
type Poller struct {
	targets  map[string]Refresher
	schedule string
	timeout  time.Duration

	cron *cron.Cron
	mu   sync.Mutex
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a Poller running on a cron schedule such as "@every 6h"
func New(schedule string, timeout time.Duration, targets map[string]Refresher) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		targets:  targets,
		schedule: schedule,
		timeout:  timeout,
	}
}

// Start schedules the refresh job. It returns once the scheduler is running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return fmt.Errorf("poller already started")
	}

	c := cron.New()
	p.ctx, p.stop = context.WithCancel(ctx)
	if _, err := c.AddFunc(p.schedule, func() { p.Poll(p.ctx) }); err != nil {
		p.stop()
		return fmt.Errorf("invalid refresh schedule %q: %w", p.schedule, err)
	}
	c.Start()
	p.cron = c

	slog.Info("Starting poller", "schedule", p.schedule, "targets", len(p.targets))
	return nil
}

// Stop cancels any running refresh and waits for it to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c == nil {
		return
	}

	p.stop()
	<-c.Stop().Done()
	slog.Info("Poller stopped")
}

// Poll refreshes every target once. A failing target keeps its previous state.
func (p *Poller) Poll(ctx context.Context) {
	for name, target := range p.targets {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rctx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := target.Refresh(rctx)
		cancel()
		if err != nil {
			slog.Error("Failed to refresh", "target", name, "error", err)
			continue
		}
		slog.Debug("Refreshed", "target", name, "took", time.Since(start))
	}
}
