package alarms

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// fakeClock is a manually advanced wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// ids extracts alarm ids in list order.
func ids(list []alarm.Alarm) []int {
	result := make([]int, 0, len(list))
	for _, a := range list {
		result = append(result, a.ID)
	}

	return result
}

// drained reports whether a wake signal was pending and consumes it.
func drained(s *Store) bool {
	select {
	case <-s.Wakeups():
		return true
	default:
		return false
	}
}

// TestStore_InsertKeepsDeadlineOrder verifies ascending deadlines regardless of insertion order.
func TestStore_InsertKeepsDeadlineOrder(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	for _, c := range []struct{ id, interval int }{{1, 30}, {2, 5}, {3, 10}, {4, 1}, {5, 20}} {
		_, err := s.Insert(c.id, 1, c.interval, "m")
		require.NoError(t, err)
	}

	list := s.List()
	require.Equal(t, []int{4, 2, 3, 5, 1}, ids(list))

	for i := 1; i < len(list); i++ {
		require.False(t, list[i].Deadline.Before(list[i-1].Deadline))
	}
}

// TestStore_InsertStableOnTies keeps arrival order for equal deadlines.
func TestStore_InsertStableOnTies(t *testing.T) {
	t.Parallel()

	s := NewStore(WithClock(newFakeClock().Now))

	for id := 1; id <= 3; id++ {
		_, err := s.Insert(id, 1, 5, "m")
		require.NoError(t, err)
	}

	require.Equal(t, []int{1, 2, 3}, ids(s.List()))
}

// TestStore_InsertDuplicate rejects a taken id and leaves the original untouched.
func TestStore_InsertDuplicate(t *testing.T) {
	t.Parallel()

	s := NewStore(WithClock(newFakeClock().Now))

	_, err := s.Insert(1, 5, 3, "ping")
	require.NoError(t, err)

	_, err = s.Insert(1, 7, 9, "other")
	require.ErrorIs(t, err, alarm.ErrAlreadyExists)

	got, ok := s.Find(1)
	require.True(t, ok)
	require.Equal(t, 5, got.GroupID)
	require.Equal(t, 3, got.Interval)
	require.Equal(t, "ping", got.Message)
	require.Equal(t, 1, s.Len())
}

// TestStore_InsertValidatesAndTruncates rejects bad fields and cuts long messages.
func TestStore_InsertValidatesAndTruncates(t *testing.T) {
	t.Parallel()

	s := NewStore(WithMessageLimit(4))

	_, err := s.Insert(0, 1, 1, "m")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)

	_, err = s.Insert(1, 1, 0, "m")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)

	got, err := s.Insert(1, 1, 1, strings.Repeat("a", 10))
	require.NoError(t, err)
	require.Equal(t, "aaaa", got.Message)
	require.True(t, got.Active)
}

// TestStore_RejectsOverflowingInterval refuses intervals whose period would wrap negative and leaves the store untouched.
func TestStore_RejectsOverflowingInterval(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now), WithTimeUnit(time.Second))
	limit := int(math.MaxInt64 / int64(time.Second))

	_, err := s.Insert(1, 1, 9_999_999_999, "x")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)
	_, err = s.Insert(1, 1, limit+1, "x")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)
	require.Zero(t, s.Len())

	got, err := s.Insert(1, 1, limit, "x")
	require.NoError(t, err)
	require.Positive(t, got.Period(time.Second))
	require.True(t, got.Deadline.After(clock.Now()))

	_, err = s.Update(1, 2, math.MaxInt, "y")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)

	kept, ok := s.Find(1)
	require.True(t, ok)
	require.Equal(t, 1, kept.GroupID)
	require.Equal(t, limit, kept.Interval)
	require.Equal(t, "x", kept.Message)

	// Nothing wrapped into the past, so nothing is due.
	require.Empty(t, s.Expire(clock.Now()))
}

// TestStore_WakeRules checks the dispatcher is woken only for an earlier deadline or when unarmed.
func TestStore_WakeRules(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	// Unarmed: any insert wakes and arms.
	_, err := s.Insert(1, 1, 10, "late")
	require.NoError(t, err)
	require.True(t, drained(s))
	require.Equal(t, clock.Now().Add(10*time.Second), s.Armed())

	// Later deadline: no wake.
	_, err = s.Insert(2, 1, 20, "later")
	require.NoError(t, err)
	require.False(t, drained(s))

	// Earlier deadline: wake and re-arm.
	_, err = s.Insert(3, 1, 2, "early")
	require.NoError(t, err)
	require.True(t, drained(s))
	require.Equal(t, clock.Now().Add(2*time.Second), s.Armed())

	// Change moving an alarm ahead of the armed deadline wakes as well.
	_, err = s.Update(2, 1, 1, "sooner")
	require.NoError(t, err)
	require.True(t, drained(s))
	require.Equal(t, []int{2, 3, 1}, ids(s.List()))

	// Suspending never wakes.
	_, err = s.SetActive(1, false)
	require.NoError(t, err)
	require.False(t, drained(s))
}

// TestStore_ArmEmpty leaves the dispatcher unarmed when there is nothing to wait for.
func TestStore_ArmEmpty(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, ok := s.Arm()
	require.False(t, ok)
	require.True(t, s.Armed().IsZero())

	_, err := s.Insert(1, 1, 1, "m")
	require.NoError(t, err)

	deadline, ok := s.Arm()
	require.True(t, ok)
	require.Equal(t, deadline, s.Armed())
}

// TestStore_UpdateMovesAlarm recomputes the deadline and group in place.
func TestStore_UpdateMovesAlarm(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	_, err := s.Insert(1, 5, 3, "ping")
	require.NoError(t, err)
	_, err = s.Insert(2, 5, 10, "pong")
	require.NoError(t, err)

	clock.Advance(time.Second)

	got, err := s.Update(1, 6, 20, "moved")
	require.NoError(t, err)
	require.Equal(t, 6, got.GroupID)
	require.Equal(t, "moved", got.Message)
	require.Equal(t, clock.Now().Add(20*time.Second), got.Deadline)
	require.Equal(t, []int{2, 1}, ids(s.List()))

	_, err = s.Update(9, 1, 1, "x")
	require.ErrorIs(t, err, alarm.ErrNotFound)

	_, err = s.Update(1, 1, -1, "x")
	require.ErrorIs(t, err, alarm.ErrInvalidAlarm)
}

// TestStore_SetActiveIdempotence reports repeated suspend/reactivate without changing the flag.
func TestStore_SetActiveIdempotence(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, err := s.Insert(1, 1, 1, "m")
	require.NoError(t, err)

	_, err = s.SetActive(1, true)
	require.ErrorIs(t, err, alarm.ErrAlreadyActive)

	got, err := s.SetActive(1, false)
	require.NoError(t, err)
	require.False(t, got.Active)

	_, err = s.SetActive(1, false)
	require.ErrorIs(t, err, alarm.ErrAlreadySuspended)

	found, _ := s.Find(1)
	require.False(t, found.Active)

	_, err = s.SetActive(1, true)
	require.NoError(t, err)

	_, err = s.SetActive(2, true)
	require.ErrorIs(t, err, alarm.ErrNotFound)
}

// TestStore_Remove covers cancel of present and missing alarms.
func TestStore_Remove(t *testing.T) {
	t.Parallel()

	s := NewStore()

	for id := 1; id <= 3; id++ {
		_, err := s.Insert(id, 1, id, "m")
		require.NoError(t, err)
	}

	removed, err := s.Remove(2)
	require.NoError(t, err)
	require.Equal(t, 2, removed.ID)

	_, err = s.Remove(2)
	require.ErrorIs(t, err, alarm.ErrNotFound)

	_, ok := s.Find(2)
	require.False(t, ok)
	require.Equal(t, []int{1, 3}, ids(s.List()))
}

// TestStore_ExpireRequeues pops due alarms and re-queues them one interval later.
func TestStore_ExpireRequeues(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	_, err := s.Insert(1, 1, 3, "ping")
	require.NoError(t, err)
	_, err = s.Insert(2, 1, 10, "pong")
	require.NoError(t, err)

	require.Empty(t, s.Expire(clock.Now()))

	clock.Advance(3 * time.Second)

	expired := s.Expire(clock.Now())
	require.Equal(t, []int{1}, ids(expired))
	require.Equal(t, 0, expired[0].Fired)

	got, ok := s.Find(1)
	require.True(t, ok)
	require.Equal(t, 1, got.Fired)
	require.Equal(t, clock.Now().Add(3*time.Second), got.Deadline)
	require.Equal(t, []int{1, 2}, ids(s.List()))

	clock.Advance(10 * time.Second)
	require.Equal(t, []int{1, 2}, ids(s.Expire(clock.Now())))
	require.Equal(t, 2, s.Len())
}

// TestStore_ListIsACopy ensures callers cannot mutate stored alarms.
func TestStore_ListIsACopy(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, err := s.Insert(1, 1, 1, "m")
	require.NoError(t, err)

	list := s.List()
	list[0].Message = "changed"

	got, _ := s.Find(1)
	require.Equal(t, "m", got.Message)
	require.Equal(t, time.Second, s.TimeUnit())
}
