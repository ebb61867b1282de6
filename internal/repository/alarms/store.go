package alarms

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/syncx"
)

// Store is the mutex-protected, deadline-ordered alarm collection.
type Store struct {
	// mu guards alarms and armed.
	mu sync.Mutex
	// alarms is sorted by Deadline ascending, ties in arrival order.
	alarms []*alarm.Alarm
	// armed is the deadline the dispatcher waits on; zero means unarmed.
	armed time.Time
	// wake carries at most one pending signal for the dispatcher.
	wake chan struct{}

	// now is the wall clock.
	now func() time.Time
	// unit is the length of one interval second.
	unit time.Duration
	// messageLimit caps message length in characters.
	messageLimit int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTimeUnit sets the length of one interval second.
func WithTimeUnit(unit time.Duration) Option {
	return func(s *Store) {
		if unit > 0 {
			s.unit = unit
		}
	}
}

// WithMessageLimit sets the message cap.
func WithMessageLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.messageLimit = limit
		}
	}
}

// NewStore creates an empty, unarmed store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		wake:         make(chan struct{}, 1),
		now:          time.Now,
		unit:         time.Second,
		messageLimit: alarm.DefaultMessageLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the store's wall clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// TimeUnit returns the length of one interval second.
func (s *Store) TimeUnit() time.Duration {
	return s.unit
}

// Locker returns the store mutex ranked for syncx.Acquire.
func (s *Store) Locker() syncx.Ranked {
	return syncx.Ranked{Locker: &s.mu, Rank: syncx.RankAlarms}
}

// Wakeups delivers a signal whenever the dispatcher must re-evaluate.
func (s *Store) Wakeups() <-chan struct{} {
	return s.wake
}

// Insert adds a new active alarm due one interval from now.
func (s *Store) Insert(id, groupID, interval int, message string) (alarm.Alarm, error) {
	if err := alarm.ValidateFields(id, groupID, interval); err != nil {
		return alarm.Alarm{}, err
	}

	if err := alarm.ValidatePeriod(interval, s.unit); err != nil {
		return alarm.Alarm{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) >= 0 {
		return alarm.Alarm{}, fmt.Errorf("alarm(%d): %w", id, alarm.ErrAlreadyExists)
	}

	now := s.now()
	a := &alarm.Alarm{
		ID:        id,
		GroupID:   groupID,
		Interval:  interval,
		Message:   alarm.TruncateMessage(message, s.messageLimit),
		Active:    true,
		CreatedAt: now,
	}
	a.Deadline = now.Add(a.Period(s.unit))

	s.insertLocked(a)

	return *a, nil
}

// Find returns a copy of the alarm with the given id.
func (s *Store) Find(id int) (alarm.Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return alarm.Alarm{}, false
	}

	return *s.alarms[i], true
}

// Remove unlinks the alarm and returns it. Removing the head needs no
// re-arm: the dispatcher re-evaluates on every wake or timeout.
func (s *Store) Remove(id int) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return alarm.Alarm{}, fmt.Errorf("alarm(%d): %w", id, alarm.ErrNotFound)
	}

	removed := s.alarms[i]
	s.alarms = slices.Delete(s.alarms, i, i+1)

	return *removed, nil
}

// Update changes group, interval and message in place, recomputes the
// deadline from now and moves the alarm to its new position.
func (s *Store) Update(id, groupID, interval int, message string) (alarm.Alarm, error) {
	if err := alarm.ValidateFields(id, groupID, interval); err != nil {
		return alarm.Alarm{}, err
	}

	if err := alarm.ValidatePeriod(interval, s.unit); err != nil {
		return alarm.Alarm{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return alarm.Alarm{}, fmt.Errorf("alarm(%d): %w", id, alarm.ErrNotFound)
	}

	a := s.alarms[i]
	s.alarms = slices.Delete(s.alarms, i, i+1)

	a.GroupID = groupID
	a.Interval = interval
	a.Message = alarm.TruncateMessage(message, s.messageLimit)
	a.Deadline = s.now().Add(a.Period(s.unit))

	s.insertLocked(a)

	return *a, nil
}

// SetActive suspends or reactivates an alarm. The deadline is left alone,
// so the dispatcher is not woken.
func (s *Store) SetActive(id int, active bool) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return alarm.Alarm{}, fmt.Errorf("alarm(%d): %w", id, alarm.ErrNotFound)
	}

	a := s.alarms[i]

	switch {
	case a.Active == active && active:
		return *a, fmt.Errorf("alarm(%d): %w", id, alarm.ErrAlreadyActive)
	case a.Active == active:
		return *a, fmt.Errorf("alarm(%d): %w", id, alarm.ErrAlreadySuspended)
	}

	a.Active = active

	return *a, nil
}

// List returns an ordered copy of every stored alarm.
func (s *Store) List() []alarm.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ListLocked()
}

// ListLocked is List for callers already holding Locker().
func (s *Store) ListLocked() []alarm.Alarm {
	result := make([]alarm.Alarm, len(s.alarms))
	for i, a := range s.alarms {
		result[i] = *a
	}

	return result
}

// Len returns the number of stored alarms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.alarms)
}

// Arm records the head deadline as the one the dispatcher is about to wait
// on and returns it. An empty store leaves the dispatcher unarmed and
// returns false.
func (s *Store) Arm() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.alarms) == 0 {
		s.armed = time.Time{}

		return time.Time{}, false
	}

	s.armed = s.alarms[0].Deadline

	return s.armed, true
}

// Armed returns the deadline the dispatcher waits on, zero when unarmed.
func (s *Store) Armed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.armed
}

// Expire pops every alarm whose deadline is not after now, re-queues each
// one interval later and returns the copies as they were when they expired.
func (s *Store) Expire(now time.Time) []alarm.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*alarm.Alarm

	for len(s.alarms) > 0 && !s.alarms[0].Deadline.After(now) {
		expired = append(expired, s.alarms[0])
		s.alarms = slices.Delete(s.alarms, 0, 1)
	}

	result := make([]alarm.Alarm, 0, len(expired))

	for _, a := range expired {
		result = append(result, *a)

		a.Fired++
		a.Deadline = now.Add(a.Period(s.unit))
		s.placeLocked(a)
	}

	return result
}

// insertLocked places a and wakes the dispatcher if a is now the earliest
// deadline it should wait on.
func (s *Store) insertLocked(a *alarm.Alarm) {
	s.placeLocked(a)

	if s.armed.IsZero() || a.Deadline.Before(s.armed) {
		s.armed = a.Deadline
		s.signalLocked()
	}
}

// placeLocked inserts a after every alarm due at or before it.
func (s *Store) placeLocked(a *alarm.Alarm) {
	i := 0
	for i < len(s.alarms) && !s.alarms[i].Deadline.After(a.Deadline) {
		i++
	}

	s.alarms = slices.Insert(s.alarms, i, a)
}

func (s *Store) signalLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) indexLocked(id int) int {
	return slices.IndexFunc(s.alarms, func(a *alarm.Alarm) bool {
		return a.ID == id
	})
}
