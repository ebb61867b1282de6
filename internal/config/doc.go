// Package config defines runtime settings of the alarm-groups binary and
// provides helpers to load, validate and save them in YAML format.
//
// Settings cover the time unit used for alarm intervals, the periods of the
// spawner, reaper and display worker cycles, the message cap, logging, metrics
// and the optional per-group render limit.
package config
