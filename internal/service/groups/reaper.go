package groups

import (
	"context"

	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
)

// reap retires every worker whose snapshot is empty. Workers are canceled,
// not awaited: a worker may be blocked on the read lock held off by the
// registry write lock. Run joins them on shutdown.
func (p *Pool) reap(ctx context.Context) {
	retired, left := p.registry.retire(func(h *handle) bool {
		return len(h.snapshot) == 0
	})

	for _, h := range retired {
		h.cancel()

		metrics.IncWorkerReaped()
		logger.InfoKV(ctx, "Display worker retired", "group_id", h.group, "worker_id", h.id.String())
	}

	metrics.SetGroupWorkers(left)
}
