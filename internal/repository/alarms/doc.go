// Package alarms implements the shared, time-ordered alarm store.
//
// Store keeps alarms in a slice sorted by deadline (stable on ties) behind a
// single mutex, and tracks the deadline the dispatcher is armed on. Inserting
// or changing an alarm whose deadline precedes the armed one, or any insert
// while the dispatcher is unarmed, posts a coalescing wake signal.
package alarms
