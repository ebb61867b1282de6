package groups

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/syncx"
)

// Worker describes a live display worker.
type Worker struct {
	// GroupID is the group the worker renders.
	GroupID int
	// WorkerID identifies this worker instance.
	WorkerID uuid.UUID
	// Alarms is the size of the worker's snapshot.
	Alarms int
	// StartedAt is when the spawner created the worker.
	StartedAt time.Time
}

// entry is one alarm in a worker's snapshot.
type entry struct {
	alarm.Snapshot
	// due is when the entry renders next. The zero time renders right away.
	due time.Time
}

// handle is the registry entry of one display worker.
type handle struct {
	// group is the group id.
	group int
	// id identifies the worker instance in logs and listings.
	id uuid.UUID
	// cancel stops the worker.
	cancel context.CancelFunc
	// startedAt is when the worker was created.
	startedAt time.Time
	// snapshot is the worker's private alarm list. The spawner appends under
	// the write lock; the worker edits it under the read lock.
	snapshot []entry
	// size mirrors len(snapshot) for readers that must not touch snapshot.
	size atomic.Int32
}

func (h *handle) contains(id int) bool {
	return h.index(id) >= 0
}

func (h *handle) index(id int) int {
	return slices.IndexFunc(h.snapshot, func(e entry) bool {
		return e.ID == id
	})
}

// add appends s due immediately.
func (h *handle) add(s alarm.Snapshot) {
	h.snapshot = append(h.snapshot, entry{Snapshot: s})
	h.size.Store(int32(len(h.snapshot))) //nolint:gosec // Snapshot sizes stay far below MaxInt32.
}

func (h *handle) drop(id int) {
	if i := h.index(id); i >= 0 {
		h.snapshot = slices.Delete(h.snapshot, i, i+1)
		h.size.Store(int32(len(h.snapshot))) //nolint:gosec // Snapshot sizes stay far below MaxInt32.
	}
}

// replace refreshes the stored copy of s and keeps its due time.
func (h *handle) replace(s alarm.Snapshot) {
	if i := h.index(s.ID); i >= 0 {
		h.snapshot[i].Snapshot = s
	}
}

// reschedule refreshes s and sets its next due time.
func (h *handle) reschedule(s alarm.Snapshot, due time.Time) {
	if i := h.index(s.ID); i >= 0 {
		h.snapshot[i] = entry{Snapshot: s, due: due}
	}
}

// Registry maps group ids to their display workers.
type Registry struct {
	lock    syncx.RWLock
	handles map[int]*handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[int]*handle),
	}
}

// Locker returns the registry write lock ranked for syncx.Acquire.
func (r *Registry) Locker() syncx.Ranked {
	return syncx.Ranked{Locker: &r.lock, Rank: syncx.RankGroups}
}

// Len returns the number of live workers.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.handles)
}

// Workers lists the live workers ordered by group id.
func (r *Registry) Workers() []Worker {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]Worker, 0, len(r.handles))
	for _, h := range r.handles {
		result = append(result, Worker{
			GroupID:   h.group,
			WorkerID:  h.id,
			Alarms:    int(h.size.Load()),
			StartedAt: h.startedAt,
		})
	}

	slices.SortFunc(result, func(a, b Worker) int {
		return cmp.Compare(a.GroupID, b.GroupID)
	})

	return result
}

// handleLocked returns the worker of group. The caller holds the write lock.
func (r *Registry) handleLocked(group int) (*handle, bool) {
	h, ok := r.handles[group]
	return h, ok
}

// putLocked registers h. The caller holds the write lock.
func (r *Registry) putLocked(h *handle) {
	r.handles[h.group] = h
}

// retire removes every handle matched by fn under the write lock and returns
// the removed handles with the number of workers left. Removed workers are
// not canceled here.
func (r *Registry) retire(fn func(h *handle) bool) ([]*handle, int) {
	release := syncx.Acquire(r.Locker())
	defer release()

	var removed []*handle

	for group, h := range r.handles {
		if fn(h) {
			removed = append(removed, h)
			delete(r.handles, group)
		}
	}

	return removed, len(r.handles)
}

// read runs fn under the registry read lock.
func (r *Registry) read(fn func()) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	fn()
}
