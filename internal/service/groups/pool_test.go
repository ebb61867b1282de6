package groups

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-groups/internal/render"
	"github.com/oshokin/alarm-groups/internal/repository/alarms"
)

const testUnit = 10 * time.Millisecond

// recorder is a Renderer collecting lines in order.
type recorder struct {
	mu    sync.Mutex
	lines []render.Line
}

func (r *recorder) Render(_ context.Context, line render.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)

	return nil
}

func (r *recorder) snapshot() []render.Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]render.Line(nil), r.lines...)
}

// count returns how many lines match alarm id and kind.
func (r *recorder) count(id int, kind render.Kind) int {
	n := 0

	for _, l := range r.snapshot() {
		if l.AlarmID == id && l.Kind == kind {
			n++
		}
	}

	return n
}

// fixture is a pool over a millisecond-unit store.
type fixture struct {
	store *alarms.Store
	rec   *recorder
	pool  *Pool
}

func newFixture() *fixture {
	store := alarms.NewStore(alarms.WithTimeUnit(testUnit))
	rec := new(recorder)

	return &fixture{
		store: store,
		rec:   rec,
		pool: NewPool(store, rec,
			WithScanInterval(5*time.Millisecond),
			WithReapInterval(5*time.Millisecond),
			WithIdleInterval(5*time.Millisecond),
		),
	}
}

// run starts the pool until the test ends.
func (f *fixture) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- f.pool.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

// groupIDs lists the groups with a live worker.
func (f *fixture) groupIDs() []int {
	workers := f.pool.Workers()

	result := make([]int, 0, len(workers))
	for _, w := range workers {
		result = append(result, w.GroupID)
	}

	return result
}

// TestScan_OneWorkerPerGroup runs the spawner by hand and checks that repeated scans neither duplicate workers nor snapshot entries.
func TestScan_OneWorkerPerGroup(t *testing.T) {
	t.Parallel()

	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		f.pool.shutdown(context.Background())
	})

	for _, a := range []struct{ id, group int }{{1, 5}, {2, 5}, {3, 7}} {
		_, err := f.store.Insert(a.id, a.group, 100, "text")
		require.NoError(t, err)
	}

	f.pool.scan(ctx)

	first := f.pool.Workers()
	require.Len(t, first, 2)
	require.Equal(t, 5, first[0].GroupID)
	require.Equal(t, 2, first[0].Alarms)
	require.Equal(t, 7, first[1].GroupID)
	require.Equal(t, 1, first[1].Alarms)

	f.pool.scan(ctx)

	second := f.pool.Workers()
	require.Len(t, second, 2)
	require.Equal(t, first[0].WorkerID, second[0].WorkerID)
	require.Equal(t, 2, second[0].Alarms)
}

// TestScan_SkipsAfterCancel makes sure no worker starts once the pool is stopping.
func TestScan_SkipsAfterCancel(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.store.Insert(1, 5, 100, "text")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.pool.scan(ctx)
	require.Empty(t, f.pool.Workers())
}

// TestReap_KeepsNonEmpty reaps only workers whose snapshot drained.
func TestReap_KeepsNonEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		f.pool.shutdown(context.Background())
	})

	_, err := f.store.Insert(1, 5, 1, "stay")
	require.NoError(t, err)
	_, err = f.store.Insert(2, 7, 1, "go")
	require.NoError(t, err)

	f.pool.scan(ctx)
	require.Equal(t, []int{5, 7}, f.groupIDs())

	_, err = f.store.Remove(2)
	require.NoError(t, err)

	// The worker of group 7 drops the canceled alarm on its next cycle.
	require.Eventually(t, func() bool {
		for _, w := range f.pool.Workers() {
			if w.GroupID == 7 {
				return w.Alarms == 0
			}
		}

		return false
	}, time.Second, 5*time.Millisecond)

	f.pool.reap(ctx)
	require.Equal(t, []int{5}, f.groupIDs())
}

// TestPool_GroupLifecycle checks that a new group gets one worker and that canceling its last alarm retires it and silences it.
func TestPool_GroupLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.run(t)

	_, err := f.store.Insert(1, 5, 1, "only")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.groupIDs()) == 1 && f.rec.count(1, render.KindDisplay) > 0
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []int{5}, f.groupIDs())

	_, err = f.store.Remove(1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.groupIDs()) == 0
	}, time.Second, 5*time.Millisecond)

	rendered := len(f.rec.snapshot())

	time.Sleep(10 * testUnit)
	require.Len(t, f.rec.snapshot(), rendered)
}

// TestPool_PingPong renders two alarms of one group, each at its own cadence, and retires the worker after both are canceled.
func TestPool_PingPong(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.run(t)

	_, err := f.store.Insert(1, 5, 3, "ping")
	require.NoError(t, err)
	_, err = f.store.Insert(2, 5, 10, "pong")
	require.NoError(t, err)

	list := f.store.List()
	require.Equal(t, 1, list[0].ID)
	require.Equal(t, 2, list[1].ID)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindDisplay) >= 1 && f.rec.count(2, render.KindDisplay) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// Sixty units fit about twenty pings and six pongs.
	time.Sleep(60 * testUnit)

	ping := f.rec.count(1, render.KindDisplay)
	pong := f.rec.count(2, render.KindDisplay)
	require.GreaterOrEqual(t, pong, 3)
	require.GreaterOrEqual(t, ping, 2*pong, "ping %d, pong %d", ping, pong)
	require.Equal(t, []int{5}, f.groupIDs())

	for _, l := range f.rec.snapshot() {
		require.Equal(t, 5, l.GroupID)
	}

	_, err = f.store.Remove(1)
	require.NoError(t, err)
	_, err = f.store.Remove(2)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.groupIDs()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

// TestCycle_WaitsForEarliestDue renders every new entry once, then sleeps until the fastest one is due again without rendering anything early.
func TestCycle_WaitsForEarliestDue(t *testing.T) {
	t.Parallel()

	store := alarms.NewStore(alarms.WithTimeUnit(testUnit))
	rec := new(recorder)
	pool := NewPool(store, rec, WithIdleInterval(time.Hour))

	h := &handle{group: 5}

	for _, a := range []struct {
		id, interval int
		message      string
	}{{1, 3, "ping"}, {2, 10, "pong"}} {
		created, err := store.Insert(a.id, 5, a.interval, a.message)
		require.NoError(t, err)
		h.add(created.Snapshot())
	}

	ctx := context.Background()

	require.Equal(t, 3*testUnit, pool.cycle(ctx, h))
	require.Equal(t, 1, rec.count(1, render.KindDisplay))
	require.Equal(t, 1, rec.count(2, render.KindDisplay))

	wait := pool.cycle(ctx, h)
	require.Positive(t, wait)
	require.LessOrEqual(t, wait, 3*testUnit)
	require.Len(t, rec.snapshot(), 2)

	time.Sleep(wait)

	require.LessOrEqual(t, pool.cycle(ctx, h), 3*testUnit)
	require.Equal(t, 2, rec.count(1, render.KindDisplay))
	require.Equal(t, 1, rec.count(2, render.KindDisplay))
}

// TestCycle_IdleCapsSleep bounds the sleep by the idle interval when no entry is due sooner.
func TestCycle_IdleCapsSleep(t *testing.T) {
	t.Parallel()

	store := alarms.NewStore(alarms.WithTimeUnit(time.Second))
	pool := NewPool(store, new(recorder), WithIdleInterval(5*time.Millisecond))

	created, err := store.Insert(1, 5, 60, "slow")
	require.NoError(t, err)

	h := &handle{group: 5}
	h.add(created.Snapshot())

	require.Equal(t, 5*time.Millisecond, pool.cycle(context.Background(), h))

	_, err = store.SetActive(1, false)
	require.NoError(t, err)
	require.Equal(t, 5*time.Millisecond, pool.cycle(context.Background(), h))
}

// TestPool_SuspendedNotRendered keeps a suspended alarm's worker alive but silent.
func TestPool_SuspendedNotRendered(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.store.Insert(1, 5, 1, "quiet")
	require.NoError(t, err)
	_, err = f.store.SetActive(1, false)
	require.NoError(t, err)

	f.run(t)

	require.Eventually(t, func() bool {
		return len(f.groupIDs()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(10 * testUnit)
	require.Zero(t, f.rec.count(1, render.KindDisplay))
	require.Equal(t, []int{5}, f.groupIDs())

	_, err = f.store.SetActive(1, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindDisplay) > 0
	}, time.Second, 5*time.Millisecond)
}

// TestPool_GroupMove hands an alarm over to the worker of its new group and retires the old one.
func TestPool_GroupMove(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.run(t)

	_, err := f.store.Insert(1, 5, 1, "moving")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindDisplay) > 0
	}, time.Second, 5*time.Millisecond)

	_, err = f.store.Update(1, 6, 1, "moving")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ids := f.groupIDs()

		return len(ids) == 1 && ids[0] == 6
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, l := range f.rec.snapshot() {
			if l.GroupID == 6 {
				return true
			}
		}

		return false
	}, time.Second, 5*time.Millisecond)
}

// TestPool_MessageChange renders one changed line with the new text, then regular lines again.
func TestPool_MessageChange(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.run(t)

	_, err := f.store.Insert(1, 5, 1, "before")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindDisplay) > 0
	}, time.Second, 5*time.Millisecond)

	_, err = f.store.Update(1, 5, 1, "after")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindChanged) == 1 && hasDisplayAfterChange(f.rec.snapshot())
	}, time.Second, 5*time.Millisecond)

	for _, l := range f.rec.snapshot() {
		if l.Kind == render.KindChanged {
			require.Equal(t, "after", l.Message)
		}
	}
}

// TestPool_MessageChangeNotDelayed renders an edited message within a few idle intervals even when the alarm's own interval is long.
func TestPool_MessageChangeNotDelayed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.run(t)

	_, err := f.store.Insert(1, 5, 500, "slow")
	require.NoError(t, err)
	_, err = f.store.Insert(2, 5, 500, "other")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindDisplay) == 1 && f.rec.count(2, render.KindDisplay) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = f.store.Update(1, 5, 500, "edited")
	require.NoError(t, err)

	// The alarm's own period is five seconds.
	require.Eventually(t, func() bool {
		return f.rec.count(1, render.KindChanged) == 1
	}, 20*testUnit, 5*time.Millisecond)
	require.Equal(t, 1, f.rec.count(2, render.KindDisplay))
}


// hasDisplayAfterChange reports whether a regular line followed the first changed line.
func hasDisplayAfterChange(lines []render.Line) bool {
	changed := false

	for _, l := range lines {
		switch {
		case l.Kind == render.KindChanged:
			changed = true
		case changed && l.Kind == render.KindDisplay:
			return l.Message == "after"
		}
	}

	return false
}
