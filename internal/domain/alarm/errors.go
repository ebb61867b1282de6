package alarm

import "errors"

var (
	// ErrAlreadyExists is returned when inserting an alarm whose ID is taken.
	ErrAlreadyExists = errors.New("alarm already exists")
	// ErrNotFound is returned when no alarm with the requested ID is stored.
	ErrNotFound = errors.New("alarm not found")
	// ErrAlreadySuspended is returned when suspending an inactive alarm.
	ErrAlreadySuspended = errors.New("alarm already suspended")
	// ErrAlreadyActive is returned when reactivating an active alarm.
	ErrAlreadyActive = errors.New("alarm already active")
	// ErrInvalidAlarm is returned when alarm fields violate their constraints.
	ErrInvalidAlarm = errors.New("invalid alarm")
)
