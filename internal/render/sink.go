package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-microbatch"

	"github.com/oshokin/alarm-groups/internal/metrics"
)

// Kind tells which part of the pool produced a line.
type Kind string

const (
	// KindFired is emitted by the dispatcher when a deadline passes.
	KindFired Kind = metrics.RenderFired
	// KindDisplay is a regular display worker line.
	KindDisplay Kind = metrics.RenderDisplay
	// KindChanged is emitted once after a message edit.
	KindChanged Kind = metrics.RenderChanged
)

const (
	// defaultBatchSize is the maximum number of lines per write.
	defaultBatchSize = 16
	// defaultFlushInterval bounds how long a line waits for its batch.
	defaultFlushInterval = 50 * time.Millisecond
	// timeLayout is the wall-clock layout of rendered lines.
	timeLayout = "15:04:05"
)

// Line is one rendered alarm event.
type Line struct {
	// Kind is the producer of the line.
	Kind Kind
	// AlarmID identifies the alarm.
	AlarmID int
	// GroupID is the alarm's group.
	GroupID int
	// Interval is the alarm period in seconds.
	Interval int
	// Message is the alarm text.
	Message string
	// At is when the line was produced.
	At time.Time
}

// String formats the line for the console.
func (l Line) String() string {
	at := l.At.Format(timeLayout)

	switch l.Kind {
	case KindFired:
		return fmt.Sprintf("Alarm(%d) Group(%d) expired at %s: %d %s", l.AlarmID, l.GroupID, at, l.Interval, l.Message)
	case KindChanged:
		return fmt.Sprintf(
			"Alarm(%d) Group(%d) changed message at %s: %d %s",
			l.AlarmID, l.GroupID, at, l.Interval, l.Message,
		)
	default:
		return fmt.Sprintf(
			"Alarm(%d) printed by display worker of Group(%d) at %s: %d %s",
			l.AlarmID, l.GroupID, at, l.Interval, l.Message,
		)
	}
}

// Sink writes lines to an io.Writer in small batches.
type Sink struct {
	// batcher groups lines before they reach the writer.
	batcher *microbatch.Batcher[Line]
	// limiter drops lines of groups that exceed the render limit; nil disables it.
	limiter *catrate.Limiter
}

// Option configures a Sink.
type Option func(*sinkOptions)

type sinkOptions struct {
	limitWindow time.Duration
	limitCount  int
	batchSize   int
	flush       time.Duration
}

// WithGroupLimit allows at most count lines per group within window.
func WithGroupLimit(window time.Duration, count int) Option {
	return func(o *sinkOptions) {
		o.limitWindow = window
		o.limitCount = count
	}
}

// WithFlushInterval overrides how long a partial batch may wait.
func WithFlushInterval(d time.Duration) Option {
	return func(o *sinkOptions) {
		if d > 0 {
			o.flush = d
		}
	}
}

// NewSink creates a sink writing to w. Close must be called to flush.
func NewSink(w io.Writer, opts ...Option) *Sink {
	o := sinkOptions{
		batchSize: defaultBatchSize,
		flush:     defaultFlushInterval,
	}

	for _, opt := range opts {
		opt(&o)
	}

	s := new(Sink)

	if o.limitWindow > 0 && o.limitCount > 0 {
		s.limiter = catrate.NewLimiter(map[time.Duration]int{o.limitWindow: o.limitCount})
	}

	s.batcher = microbatch.NewBatcher(
		&microbatch.BatcherConfig{
			MaxSize:        o.batchSize,
			FlushInterval:  o.flush,
			MaxConcurrency: 1,
		},
		func(_ context.Context, lines []Line) error {
			var buf bytes.Buffer
			for _, line := range lines {
				buf.WriteString(line.String())
				buf.WriteByte('\n')
			}

			_, err := w.Write(buf.Bytes())

			return err
		},
	)

	return s
}

// Render queues line for writing. Lines over the group limit are dropped
// silently and counted.
func (s *Sink) Render(ctx context.Context, line Line) error {
	if !s.allow(line.GroupID) {
		metrics.ObserveRender(string(line.Kind), true)

		return nil
	}

	if _, err := s.batcher.Submit(ctx, line); err != nil {
		return fmt.Errorf("submit line: %w", err)
	}

	metrics.ObserveRender(string(line.Kind), false)

	return nil
}

func (s *Sink) allow(groupID int) bool {
	if s.limiter == nil {
		return true
	}

	_, ok := s.limiter.Allow(groupID)

	return ok
}

// Close flushes pending lines and stops the sink, giving up when ctx ends.
func (s *Sink) Close(ctx context.Context) error {
	if err := s.batcher.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush lines: %w", err)
	}

	return nil
}
