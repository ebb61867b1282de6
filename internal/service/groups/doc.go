// Package groups manages one display worker per alarm group.
//
// A spawner scans the alarm store and starts a worker for every group that
// has none, handing newly seen alarms to existing workers. Each worker keeps
// a private snapshot of its alarms with a next due time per entry, re-checks
// them against the store and renders each active one at its own interval. A reaper
// retires workers whose snapshot is empty.
//
// Locks are always taken in the order alarm store, then group registry.
package groups
