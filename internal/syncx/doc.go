// Package syncx holds the two synchronization primitives of the alarm pool:
// a readers-preferred reader/writer lock guarding the group table, and a
// ranked acquisition helper that fixes the global lock order (alarm store
// before group registry).
package syncx
