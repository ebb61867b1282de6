package groups

import (
	"context"
	"slices"
	"time"

	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/render"
)

// display is the body of one group's worker. Each cycle renders the entries
// that are due, then sleeps until the earliest next due time, capped by the
// idle interval.
func (p *Pool) display(ctx context.Context, h *handle) {
	defer p.workers.Done()

	ctx = logger.WithKV(logger.WithName(ctx, "display"), "group_id", h.group, "worker_id", h.id.String())

	for ctx.Err() == nil {
		if !sleep(ctx, p.cycle(ctx, h)) {
			break
		}
	}

	logger.Debug(ctx, "Display worker stopped")
}

// cycle visits a copy of the worker's snapshot once and returns how long
// the worker may sleep before the next entry is due.
func (p *Pool) cycle(ctx context.Context, h *handle) time.Duration {
	var entries []entry

	p.registry.read(func() {
		entries = slices.Clone(h.snapshot)
	})

	wait := p.idleInterval

	for _, e := range entries {
		if ctx.Err() != nil {
			return 0
		}

		if next, ok := p.visit(ctx, h, e); ok {
			wait = min(wait, next)
		}
	}

	return wait
}

// visit reconciles one snapshot entry with the store and renders it when it
// is active and due, or right away when its message or interval changed.
// It returns the time until the entry is due again; false means the entry
// does not bound the worker's sleep.
//
// The store is queried with no registry lock held, and the registry read
// lock is held only to edit the worker's own snapshot.
func (p *Pool) visit(ctx context.Context, h *handle, e entry) (time.Duration, bool) {
	live, ok := p.store.Find(e.ID)

	switch {
	case !ok:
		p.registry.read(func() { h.drop(e.ID) })
		logger.DebugKV(ctx, "Alarm canceled, dropped from display", "alarm_id", e.ID)

		return 0, false
	case live.GroupID != h.group:
		p.registry.read(func() { h.drop(e.ID) })
		logger.DebugKV(ctx, "Alarm moved to another group", "alarm_id", e.ID, "new_group_id", live.GroupID)

		return 0, false
	}

	current := live.Snapshot()

	if !live.Active {
		p.registry.read(func() { h.replace(current) })
		return 0, false
	}

	now := p.store.Now()
	changed := live.Message != e.Message

	if !changed && live.Interval == e.Interval && now.Before(e.due) {
		return e.due.Sub(now), true
	}

	kind := render.KindDisplay
	if changed {
		kind = render.KindChanged
	}

	period := live.Period(p.store.TimeUnit())
	p.registry.read(func() { h.reschedule(current, now.Add(period)) })

	line := render.Line{
		Kind:     kind,
		AlarmID:  live.ID,
		GroupID:  live.GroupID,
		Interval: live.Interval,
		Message:  live.Message,
		At:       now,
	}

	if err := p.renderer.Render(ctx, line); err != nil {
		logger.WarnKV(ctx, "Render alarm failed", "alarm_id", live.ID, "error", err)
	}

	return period, true
}
