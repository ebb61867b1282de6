package alarm

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidateFields checks positive id, group and interval constraints.
func TestValidateFields(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateFields(1, 1, 1))
	require.ErrorIs(t, ValidateFields(0, 1, 1), ErrInvalidAlarm)
	require.ErrorIs(t, ValidateFields(1, -2, 1), ErrInvalidAlarm)
	require.ErrorIs(t, ValidateFields(1, 1, 0), ErrInvalidAlarm)
}

// TestValidatePeriod rejects intervals that overflow a time.Duration.
func TestValidatePeriod(t *testing.T) {
	t.Parallel()

	limit := int(math.MaxInt64 / int64(time.Second))

	require.NoError(t, ValidatePeriod(limit, time.Second))
	require.ErrorIs(t, ValidatePeriod(limit+1, time.Second), ErrInvalidAlarm)
	require.ErrorIs(t, ValidatePeriod(math.MaxInt, time.Millisecond), ErrInvalidAlarm)
	require.NoError(t, ValidatePeriod(math.MaxInt, 0))
}

// TestTruncateMessage ensures long messages are cut, not rejected.
func TestTruncateMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ping", TruncateMessage("ping", 10))
	require.Equal(t, "pi", TruncateMessage("ping", 2))

	long := strings.Repeat("x", DefaultMessageLimit+20)
	require.Len(t, TruncateMessage(long, 0), DefaultMessageLimit)

	// Multi-byte characters are counted once.
	require.Equal(t, "жж", TruncateMessage("жжж", 2))
}

// TestSnapshotAndPeriod verifies the lightweight copy and duration conversion.
func TestSnapshotAndPeriod(t *testing.T) {
	t.Parallel()

	a := &Alarm{
		ID:       1,
		GroupID:  5,
		Interval: 3,
		Message:  "ping",
		Active:   true,
		Deadline: time.Unix(100, 0),
	}

	require.Equal(t, Snapshot{ID: 1, GroupID: 5, Interval: 3, Message: "ping", Active: true}, a.Snapshot())
	require.Equal(t, 3*time.Second, a.Period(time.Second))
	require.Equal(t, 30*time.Millisecond, a.Period(10*time.Millisecond))
}
