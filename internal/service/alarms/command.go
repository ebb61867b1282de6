package alarms

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-groups/internal/config"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	"github.com/oshokin/alarm-groups/internal/render"
	repo "github.com/oshokin/alarm-groups/internal/repository/alarms"
	"github.com/oshokin/alarm-groups/internal/service/console"
	"github.com/oshokin/alarm-groups/internal/service/dispatcher"
	"github.com/oshokin/alarm-groups/internal/service/groups"
	"github.com/oshokin/alarm-groups/internal/version"
)

// flushTimeout bounds how long pending render lines are flushed on exit.
const flushTimeout = 2 * time.Second

// Options controls the alarm-groups process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// MetricsAddress overrides the configured metrics endpoint when non-empty.
	MetricsAddress string
	// Stdin overrides the terminal input.
	Stdin io.ReadCloser
	// Stdout overrides the terminal output.
	Stdout io.Writer
}

// Run starts the dispatcher, the group pool and the console, and blocks
// until the console exits or ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	metrics.Init(nil)

	con, err := console.New(&console.Options{
		Prompt: cfg.Prompt,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
	})
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}

	defer func() {
		_ = con.Close() //nolint:errcheck // Already closed when ctx ends.
	}()

	// Logs go through readline so they do not break the prompt.
	previous := logger.Logger()
	logger.SetLogger(logger.NewWithWriter(con.Stderr(), logger.AtomicLevel()))

	defer logger.SetLogger(previous)

	ctx = withActor(logger.WithName(ctx, "alarm-groups"))

	var sinkOptions []render.Option
	if cfg.RenderLimit.Enabled() {
		sinkOptions = append(sinkOptions, render.WithGroupLimit(cfg.RenderLimit.Window, cfg.RenderLimit.Count))
	}

	sink := render.NewSink(con.Stdout(), sinkOptions...)

	store := repo.NewStore(repo.WithTimeUnit(cfg.TimeUnit), repo.WithMessageLimit(cfg.MessageLimit))

	pool := groups.NewPool(store, sink,
		groups.WithScanInterval(cfg.ScanInterval),
		groups.WithReapInterval(cfg.ReapInterval),
		groups.WithIdleInterval(cfg.IdleInterval),
	)

	svc := NewService(store, pool)

	logger.InfoKV(ctx, "Alarm pool starting",
		"version", version.Short(),
		"config_path", opts.ConfigPath,
		"time_unit", cfg.TimeUnit.String(),
		"metrics_address", cfg.MetricsAddress)

	err = serve(ctx, cfg, con, svc, dispatcher.New(store, sink), pool)
	if err != nil {
		logger.ErrorKV(ctx, "Alarm pool failed", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if closeErr := sink.Close(flushCtx); closeErr != nil && err == nil {
		err = closeErr
	}

	logger.Info(ctx, "Alarm pool stopped")

	return err
}

// serve runs the long-lived goroutines; the console ending stops the rest.
func serve(
	ctx context.Context,
	cfg *config.Config,
	con *console.Console,
	svc *Service,
	disp *dispatcher.Dispatcher,
	pool *groups.Pool,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return disp.Run(gctx)
	})

	g.Go(func() error {
		return pool.Run(gctx)
	})

	if cfg.MetricsAddress != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddress)
		})
	}

	g.Go(func() error {
		defer cancel()

		return con.Run(gctx, svc)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run alarm pool: %w", err)
	}

	return nil
}

// loadConfig reads the settings file and applies command line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if opts.MetricsAddress != "" {
		cfg.MetricsAddress = opts.MetricsAddress
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}
