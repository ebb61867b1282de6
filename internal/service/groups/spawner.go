package groups

import (
	"context"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	"github.com/oshokin/alarm-groups/internal/syncx"
)

// scan starts a worker for every group without one and hands alarms the
// owning worker has not seen yet to its snapshot. Handles are never removed
// here.
func (p *Pool) scan(ctx context.Context) {
	p.scanLocked(ctx)

	metrics.SetGroupWorkers(p.registry.Len())
}

// scanLocked does the work of scan under the store lock and the registry
// write lock.
func (p *Pool) scanLocked(ctx context.Context) {
	release := syncx.Acquire(p.store.Locker(), p.registry.Locker())
	defer release()

	if ctx.Err() != nil {
		return
	}

	for _, a := range p.store.ListLocked() {
		h, ok := p.registry.handleLocked(a.GroupID)

		switch {
		case !ok:
			p.spawnLocked(ctx, a)
		case !h.contains(a.ID):
			h.add(a.Snapshot())
			logger.DebugKV(ctx, "Alarm handed to display worker",
				"alarm_id", a.ID, "group_id", a.GroupID, "worker_id", h.id.String())
		}
	}
}

// spawnLocked registers and starts a worker seeded with a.
// The caller holds the registry write lock.
func (p *Pool) spawnLocked(ctx context.Context, a alarm.Alarm) {
	workerCtx, cancel := context.WithCancel(ctx)

	h := &handle{
		group:     a.GroupID,
		id:        uuid.New(),
		cancel:    cancel,
		startedAt: p.store.Now(),
	}
	h.add(a.Snapshot())

	p.registry.putLocked(h)
	p.workers.Add(1)

	go p.display(workerCtx, h)

	metrics.IncWorkerSpawned()
	logger.InfoKV(ctx, "Display worker started", "group_id", a.GroupID, "worker_id", h.id.String())
}
