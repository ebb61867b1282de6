package alarms

import (
	"context"
	"fmt"

	"github.com/oshokin/alarm-groups/internal/command"
	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	repo "github.com/oshokin/alarm-groups/internal/repository/alarms"
	"github.com/oshokin/alarm-groups/internal/service/groups"
)

// WorkerLister reports the live display workers.
type WorkerLister interface {
	Workers() []groups.Worker
}

// Service is the command-facing contract of the alarm pool. Every method is
// a single operation on the store; failed calls leave the store unchanged.
type Service struct {
	// store holds the alarms.
	store *repo.Store
	// workers lists display workers for View_Groups.
	workers WorkerLister
}

// NewService creates a service over store. workers may be nil.
func NewService(store *repo.Store, workers WorkerLister) *Service {
	return &Service{
		store:   store,
		workers: workers,
	}
}

// Insert starts a new alarm.
func (s *Service) Insert(ctx context.Context, id, groupID, interval int, message string) (alarm.Alarm, error) {
	a, err := s.store.Insert(id, groupID, interval, message)
	s.record(command.Start, err)

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("start alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm started", "alarm_id", a.ID, "group_id", a.GroupID, "interval", a.Interval)

	return a, nil
}

// Change replaces group, interval and message of an existing alarm.
func (s *Service) Change(ctx context.Context, id, groupID, interval int, message string) (alarm.Alarm, error) {
	a, err := s.store.Update(id, groupID, interval, message)
	s.record(command.Change, err)

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("change alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm changed", "alarm_id", a.ID, "group_id", a.GroupID, "interval", a.Interval)

	return a, nil
}

// Cancel removes an alarm.
func (s *Service) Cancel(ctx context.Context, id int) (alarm.Alarm, error) {
	a, err := s.store.Remove(id)
	s.record(command.Cancel, err)

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("cancel alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm canceled", "alarm_id", a.ID, "group_id", a.GroupID)

	return a, nil
}

// Suspend stops rendering an alarm and keeps it stored.
func (s *Service) Suspend(ctx context.Context, id int) (alarm.Alarm, error) {
	a, err := s.store.SetActive(id, false)
	s.record(command.Suspend, err)

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("suspend alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm suspended", "alarm_id", a.ID)

	return a, nil
}

// Reactivate resumes a suspended alarm.
func (s *Service) Reactivate(ctx context.Context, id int) (alarm.Alarm, error) {
	a, err := s.store.SetActive(id, true)
	s.record(command.Reactivate, err)

	if err != nil {
		return alarm.Alarm{}, fmt.Errorf("reactivate alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm reactivated", "alarm_id", a.ID)

	return a, nil
}

// List returns every alarm ordered by deadline.
func (s *Service) List(ctx context.Context) []alarm.Alarm {
	result := s.store.List()
	s.record(command.ViewAlarms, nil)

	logger.DebugKV(ctx, "Alarms listed", "count", len(result))

	return result
}

// Groups returns the live display workers ordered by group.
func (s *Service) Groups(ctx context.Context) []groups.Worker {
	var result []groups.Worker
	if s.workers != nil {
		result = s.workers.Workers()
	}

	s.record(command.ViewGroups, nil)

	logger.DebugKV(ctx, "Groups listed", "count", len(result))

	return result
}

func (s *Service) record(kind command.Kind, err error) {
	metrics.IncCommand(kind.Label(), err)
	metrics.SetAlarmsStored(s.store.Len())
}
