// Package metrics registers the Prometheus collectors of the alarm pool and
// exposes small helpers so callers never touch collectors directly.
package metrics
