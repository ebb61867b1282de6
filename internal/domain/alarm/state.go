package alarm

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// DefaultMessageLimit is the maximum message length, in characters.
const DefaultMessageLimit = 127

// Alarm is a recurring reminder owned by exactly one group.
type Alarm struct {
	// ID uniquely identifies the alarm within the store.
	ID int
	// GroupID is the group whose display worker renders the alarm.
	GroupID int
	// Interval is the re-render period in seconds.
	Interval int
	// Deadline is the next wall-clock time the alarm is due.
	Deadline time.Time
	// Message is the text rendered for the alarm.
	Message string
	// Active is false while the alarm is suspended.
	Active bool
	// CreatedAt is when the alarm was inserted.
	CreatedAt time.Time
	// Fired counts how many times the dispatcher saw the deadline pass.
	Fired int
}

// Snapshot is the lightweight copy of an alarm kept by a display worker.
type Snapshot struct {
	// ID identifies the alarm the snapshot was taken from.
	ID int
	// GroupID is the group the alarm belonged to when last rendered.
	GroupID int
	// Interval is the re-render period in seconds.
	Interval int
	// Message is the text last rendered.
	Message string
	// Active mirrors the alarm's active flag.
	Active bool
}

// ValidateFields checks that ids and interval are positive.
func ValidateFields(id, groupID, interval int) error {
	switch {
	case id <= 0:
		return fmt.Errorf("alarm id %d must be positive: %w", id, ErrInvalidAlarm)
	case groupID <= 0:
		return fmt.Errorf("group id %d must be positive: %w", groupID, ErrInvalidAlarm)
	case interval <= 0:
		return fmt.Errorf("interval %d must be positive: %w", interval, ErrInvalidAlarm)
	}

	return nil
}

// ValidatePeriod checks that interval units of unit fit in a time.Duration.
// Larger intervals would wrap to a negative period.
func ValidatePeriod(interval int, unit time.Duration) error {
	if unit <= 0 {
		return nil
	}

	if limit := math.MaxInt64 / int64(unit); int64(interval) > limit {
		return fmt.Errorf("interval %d exceeds the maximum of %d: %w", interval, limit, ErrInvalidAlarm)
	}

	return nil
}

// Period converts the interval to a duration using the provided time unit.
func (a *Alarm) Period(unit time.Duration) time.Duration {
	return time.Duration(a.Interval) * unit
}

// Snapshot returns the lightweight copy of the alarm.
func (a *Alarm) Snapshot() Snapshot {
	return Snapshot{
		ID:       a.ID,
		GroupID:  a.GroupID,
		Interval: a.Interval,
		Message:  a.Message,
		Active:   a.Active,
	}
}

// TruncateMessage cuts message to at most limit characters.
// A non-positive limit falls back to DefaultMessageLimit.
func TruncateMessage(message string, limit int) string {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	if utf8.RuneCountInString(message) <= limit {
		return message
	}

	runes := []rune(message)

	return string(runes[:limit])
}
