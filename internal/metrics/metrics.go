package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "alarm_groups_"

	resultSuccess = "success"
	resultError   = "error"

	// readHeaderTimeout bounds slow scrapers.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds the graceful stop of the metrics endpoint.
	shutdownTimeout = 2 * time.Second
)

// Render kinds recorded by ObserveRender.
const (
	RenderFired   = "fired"
	RenderDisplay = "display"
	RenderChanged = "changed"
)

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

var (
	registerOnce sync.Once

	alarmsStored   prometheus.Gauge
	groupWorkers   prometheus.Gauge
	commandsTotal  *prometheus.CounterVec
	alarmsFired    prometheus.Counter
	rendersTotal   *prometheus.CounterVec
	rendersDropped *prometheus.CounterVec
	workersSpawned prometheus.Counter
	workersReaped  prometheus.Counter
)

// Init registers collectors with registerer, once per process.
// A nil registerer means prometheus.DefaultRegisterer.
func Init(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		alarmsStored = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "alarms_stored",
			Help: "Alarms currently held in the store",
		})
		groupWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "group_workers",
			Help: "Display workers currently registered",
		})
		commandsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Submitted commands by command and result",
			},
			[]string{"command", "result"},
		)
		alarmsFired = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alarms_fired_total",
			Help: "Alarm deadlines handled by the dispatcher",
		})
		rendersTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "renders_total",
				Help: "Rendered alarm lines by kind",
			},
			[]string{"kind"},
		)
		rendersDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "renders_dropped_total",
				Help: "Alarm lines dropped by the render limit, by kind",
			},
			[]string{"kind"},
		)
		workersSpawned = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "workers_spawned_total",
			Help: "Display workers started by the spawner",
		})
		workersReaped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "workers_reaped_total",
			Help: "Display workers retired by the reaper",
		})

		registerer.MustRegister(
			alarmsStored,
			groupWorkers,
			commandsTotal,
			alarmsFired,
			rendersTotal,
			rendersDropped,
			workersSpawned,
			workersReaped,
		)
	})
}

// SetAlarmsStored sets the store size gauge.
func SetAlarmsStored(n int) {
	if alarmsStored != nil {
		alarmsStored.Set(float64(n))
	}
}

// SetGroupWorkers sets the registered worker gauge.
func SetGroupWorkers(n int) {
	if groupWorkers != nil {
		groupWorkers.Set(float64(n))
	}
}

// IncCommand counts a submitted command by its outcome.
func IncCommand(command string, err error) {
	if command == "" {
		command = "unknown"
	}

	result := resultSuccess
	if err != nil {
		result = resultError
	}

	if commandsTotal != nil {
		commandsTotal.WithLabelValues(command, result).Inc()
	}
}

// IncFired counts a dispatcher expiry.
func IncFired() {
	if alarmsFired != nil {
		alarmsFired.Inc()
	}
}

// ObserveRender counts a rendered or dropped line.
func ObserveRender(kind string, dropped bool) {
	if kind == "" {
		kind = "unknown"
	}

	if dropped {
		if rendersDropped != nil {
			rendersDropped.WithLabelValues(kind).Inc()
		}

		return
	}

	if rendersTotal != nil {
		rendersTotal.WithLabelValues(kind).Inc()
	}
}

// IncWorkerSpawned counts a started display worker.
func IncWorkerSpawned() {
	if workersSpawned != nil {
		workersSpawned.Inc()
	}
}

// IncWorkerReaped counts a retired display worker.
func IncWorkerReaped() {
	if workersReaped != nil {
		workersReaped.Inc()
	}
}

// Serve exposes the default gatherer on address until ctx is canceled.
func Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	//nolint:exhaustruct // Only the handler and header timeout matter here.
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // Best effort on exit.
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	<-done

	return nil
}
