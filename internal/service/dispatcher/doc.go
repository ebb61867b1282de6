// Package dispatcher runs the single goroutine that waits for the earliest
// alarm deadline, re-arming whenever an earlier alarm arrives, and re-queues
// every expired alarm one interval later.
package dispatcher
