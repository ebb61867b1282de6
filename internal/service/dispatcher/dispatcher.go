package dispatcher

import (
	"context"
	"time"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	"github.com/oshokin/alarm-groups/internal/render"
)

// Store is the part of the alarm store the dispatcher depends on.
type Store interface {
	Arm() (time.Time, bool)
	Wakeups() <-chan struct{}
	Expire(now time.Time) []alarm.Alarm
	Now() time.Time
}

// Renderer receives a line for every expired active alarm.
type Renderer interface {
	Render(ctx context.Context, line render.Line) error
}

// State is the dispatcher's position in its wait loop.
type State int

const (
	// Idle means the store is empty and the dispatcher waits for a wakeup only.
	Idle State = iota
	// Armed means the dispatcher waits for the head deadline or an earlier insert.
	Armed
	// Processing means a deadline passed and expired alarms are handled.
	Processing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// Dispatcher serves alarm deadlines in earliest-first order.
type Dispatcher struct {
	// store holds the alarms and the wake signal.
	store Store
	// renderer receives fired lines.
	renderer Renderer
	// observe, when set, is called on every state transition.
	observe func(State)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers a callback invoked on every state change.
func WithObserver(observe func(State)) Option {
	return func(d *Dispatcher) {
		d.observe = observe
	}
}

// New creates a dispatcher over store reporting to renderer.
func New(store Store, renderer Renderer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		renderer: renderer,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run loops until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "dispatcher")
	logger.Info(ctx, "Dispatcher started")

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	defer timer.Stop()

	for {
		deadline, armed := d.store.Arm()

		if !armed {
			d.transition(Idle)

			select {
			case <-ctx.Done():
				logger.Info(ctx, "Dispatcher stopped")
				return nil
			case <-d.store.Wakeups():
				continue
			}
		}

		d.transition(Armed)

		if wait := deadline.Sub(d.store.Now()); wait > 0 {
			timer.Reset(wait)

			select {
			case <-ctx.Done():
				logger.Info(ctx, "Dispatcher stopped")
				return nil
			case <-d.store.Wakeups():
				// An earlier alarm may have arrived; re-arm on the new head.
				timer.Stop()

				continue
			case <-timer.C:
			}
		}

		d.transition(Processing)
		d.process(ctx)
	}
}

// process handles every alarm whose deadline has passed.
func (d *Dispatcher) process(ctx context.Context) {
	now := d.store.Now()

	for _, a := range d.store.Expire(now) {
		metrics.IncFired()
		logger.DebugKV(ctx, "Alarm expired", "alarm_id", a.ID, "group_id", a.GroupID, "active", a.Active)

		if !a.Active {
			continue
		}

		line := render.Line{
			Kind:     render.KindFired,
			AlarmID:  a.ID,
			GroupID:  a.GroupID,
			Interval: a.Interval,
			Message:  a.Message,
			At:       now,
		}

		if err := d.renderer.Render(ctx, line); err != nil {
			logger.WarnKV(ctx, "Render fired alarm failed", "alarm_id", a.ID, "error", err)
		}
	}
}

func (d *Dispatcher) transition(s State) {
	if d.observe != nil {
		d.observe(s)
	}
}
