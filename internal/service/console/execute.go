package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/alarm-groups/internal/command"
	"github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/metrics"
	"github.com/oshokin/alarm-groups/internal/service/groups"
)

// timeLayout formats deadlines and start times in listings.
const timeLayout = "15:04:05"

// parseLabel is the metrics label of lines that failed to parse.
const parseLabel = "parse"

// Service is the alarm contract the console drives.
type Service interface {
	Insert(ctx context.Context, id, groupID, interval int, message string) (alarm.Alarm, error)
	Change(ctx context.Context, id, groupID, interval int, message string) (alarm.Alarm, error)
	Cancel(ctx context.Context, id int) (alarm.Alarm, error)
	Suspend(ctx context.Context, id int) (alarm.Alarm, error)
	Reactivate(ctx context.Context, id int) (alarm.Alarm, error)
	List(ctx context.Context) []alarm.Alarm
	Groups(ctx context.Context) []groups.Worker
}

// Execute runs one input line against svc and writes the reply to w.
// It reports true when the line asks to exit.
//
//nolint:cyclop // One case per verb reads better than a lookup table.
func Execute(ctx context.Context, svc Service, w io.Writer, line string) bool {
	cmd, err := command.Parse(line)
	if err != nil {
		metrics.IncCommand(parseLabel, err)
		logger.DebugKV(ctx, "Parse command failed", "line", line, "error", err)

		switch {
		case errors.Is(err, command.ErrUnknownCommand):
			_, _ = fmt.Fprintf(w, "Unknown command: %s (type Help for the list)\n", line)
		default:
			_, _ = fmt.Fprintf(w, "Bad command format: %s (type Help for usage)\n", line)
		}

		return false
	}

	var a alarm.Alarm

	switch cmd.Kind {
	case command.Start:
		if a, err = svc.Insert(ctx, cmd.AlarmID, cmd.GroupID, cmd.Interval, cmd.Message); err == nil {
			_, _ = fmt.Fprintf(w, "Alarm(%d) inserted into Group(%d): %d %s\n", a.ID, a.GroupID, a.Interval, a.Message)
		}
	case command.Change:
		if a, err = svc.Change(ctx, cmd.AlarmID, cmd.GroupID, cmd.Interval, cmd.Message); err == nil {
			_, _ = fmt.Fprintf(w, "Alarm(%d) updated successfully\n", a.ID)
		}
	case command.Cancel:
		if a, err = svc.Cancel(ctx, cmd.AlarmID); err == nil {
			_, _ = fmt.Fprintf(w, "Alarm(%d) canceled\n", a.ID)
		}
	case command.Suspend:
		if a, err = svc.Suspend(ctx, cmd.AlarmID); err == nil {
			_, _ = fmt.Fprintf(w, "Alarm(%d) suspended\n", a.ID)
		}
	case command.Reactivate:
		if a, err = svc.Reactivate(ctx, cmd.AlarmID); err == nil {
			_, _ = fmt.Fprintf(w, "Alarm(%d) reactivated\n", a.ID)
		}
	case command.ViewAlarms:
		writeAlarms(w, svc.List(ctx))
	case command.ViewGroups:
		writeGroups(w, svc.Groups(ctx))
	case command.Help:
		_, _ = fmt.Fprintln(w, command.Usage)
	case command.Exit:
		return true
	}

	if err != nil {
		writeError(w, cmd.AlarmID, err)
	}

	return false
}

func writeError(w io.Writer, id int, err error) {
	switch {
	case errors.Is(err, alarm.ErrNotFound):
		_, _ = fmt.Fprintf(w, "Alarm(%d) not found\n", id)
	case errors.Is(err, alarm.ErrAlreadyExists):
		_, _ = fmt.Fprintf(w, "Alarm(%d) already exists\n", id)
	case errors.Is(err, alarm.ErrAlreadySuspended):
		_, _ = fmt.Fprintf(w, "Alarm(%d) is already suspended\n", id)
	case errors.Is(err, alarm.ErrAlreadyActive):
		_, _ = fmt.Fprintf(w, "Alarm(%d) is already active\n", id)
	default:
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	}
}

func writeAlarms(w io.Writer, list []alarm.Alarm) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No alarms")
		return
	}

	for _, a := range list {
		state := "active"
		if !a.Active {
			state = "suspended"
		}

		_, _ = fmt.Fprintf(w, "Alarm(%d) Group(%d) every %ds, next at %s, %s, fired %d: %s\n",
			a.ID, a.GroupID, a.Interval, a.Deadline.Format(timeLayout), state, a.Fired, a.Message)
	}
}

func writeGroups(w io.Writer, workers []groups.Worker) {
	if len(workers) == 0 {
		_, _ = fmt.Fprintln(w, "No display workers")
		return
	}

	for _, wk := range workers {
		_, _ = fmt.Fprintf(w, "Group(%d) worker %s since %s: %d alarm(s)\n",
			wk.GroupID, wk.WorkerID, wk.StartedAt.Format(timeLayout), wk.Alarms)
	}
}
