// Package alarms is the alarm-groups service: the command contract over the
// alarm store and the process entry point wiring the store, the dispatcher,
// the group pool, the render sink and the console.
package alarms
