package groups

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	"github.com/oshokin/alarm-groups/internal/render"
	"github.com/oshokin/alarm-groups/internal/syncx"
)

const (
	// DefaultScanInterval is the spawner period.
	DefaultScanInterval = time.Second
	// DefaultReapInterval is the reaper period.
	DefaultReapInterval = time.Second
	// DefaultIdleInterval is the longest pause between two display cycles.
	DefaultIdleInterval = time.Second
)

// Store is the part of the alarm store the pool depends on.
type Store interface {
	Locker() syncx.Ranked
	ListLocked() []alarm.Alarm
	Find(id int) (alarm.Alarm, bool)
	Now() time.Time
	TimeUnit() time.Duration
}

// Renderer receives display worker lines.
type Renderer interface {
	Render(ctx context.Context, line render.Line) error
}

// Pool runs the spawner, the reaper and the display workers.
type Pool struct {
	// store is the shared alarm store.
	store Store
	// renderer receives worker output.
	renderer Renderer
	// registry holds one handle per live worker.
	registry *Registry
	// workers tracks running display goroutines.
	workers sync.WaitGroup

	// scanInterval is the spawner period.
	scanInterval time.Duration
	// reapInterval is the reaper period.
	reapInterval time.Duration
	// idleInterval caps how long a display worker sleeps between cycles,
	// so new and edited entries are picked up within it.
	idleInterval time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithScanInterval sets the spawner period.
func WithScanInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.scanInterval = d
		}
	}
}

// WithReapInterval sets the reaper period.
func WithReapInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.reapInterval = d
		}
	}
}

// WithIdleInterval sets the longest pause between display cycles.
func WithIdleInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.idleInterval = d
		}
	}
}

// NewPool creates a pool with no workers.
func NewPool(store Store, renderer Renderer, opts ...Option) *Pool {
	p := &Pool{
		store:        store,
		renderer:     renderer,
		registry:     NewRegistry(),
		scanInterval: DefaultScanInterval,
		reapInterval: DefaultReapInterval,
		idleInterval: DefaultIdleInterval,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Workers lists the live display workers.
func (p *Pool) Workers() []Worker {
	return p.registry.Workers()
}

// Run drives the spawner and the reaper until ctx is canceled, then stops
// every worker and waits for it to exit.
func (p *Pool) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "groups")

	logger.InfoKV(ctx, "Group pool started",
		"scan_interval", p.scanInterval.String(),
		"reap_interval", p.reapInterval.String(),
		"idle_interval", p.idleInterval.String())

	defer p.shutdown(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		every(logger.WithName(gctx, "spawner"), p.scanInterval, p.scan)
		return nil
	})

	g.Go(func() error {
		every(logger.WithName(gctx, "reaper"), p.reapInterval, p.reap)
		return nil
	})

	return g.Wait()
}

// shutdown cancels the remaining workers and joins all of them.
func (p *Pool) shutdown(ctx context.Context) {
	remaining, _ := p.registry.retire(func(*handle) bool { return true })

	for _, h := range remaining {
		h.cancel()
	}

	p.workers.Wait()
	metrics.SetGroupWorkers(0)

	logger.Info(ctx, "Group pool stopped")
}

// every calls fn once per interval until ctx is canceled.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// sleep pauses for d and reports false if ctx was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
