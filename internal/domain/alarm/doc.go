// Package alarm contains core domain types for the alarm business logic.
//
// It defines Alarm (a recurring reminder owned by a group), Snapshot (the
// lightweight copy a group display worker keeps of what it renders) and the
// sentinel errors reported back to command submitters.
package alarm
