package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the verb of a console command.
type Kind int

const (
	// Start creates an alarm.
	Start Kind = iota + 1
	// Change edits group, interval and message of an alarm.
	Change
	// Cancel removes an alarm.
	Cancel
	// Suspend stops rendering an alarm without removing it.
	Suspend
	// Reactivate resumes a suspended alarm.
	Reactivate
	// ViewAlarms lists stored alarms.
	ViewAlarms
	// ViewGroups lists live display workers.
	ViewGroups
	// Help prints the usage.
	Help
	// Exit ends the console session.
	Exit
)

// kindNames maps console verbs to kinds.
var kindNames = map[string]Kind{
	"Start_Alarm":      Start,
	"Change_Alarm":     Change,
	"Cancel_Alarm":     Cancel,
	"Suspend_Alarm":    Suspend,
	"Reactivate_Alarm": Reactivate,
	"View_Alarms":      ViewAlarms,
	"View_Groups":      ViewGroups,
	"Help":             Help,
	"Exit":             Exit,
}

// String returns the console verb.
func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Label returns the lower-case name used in metrics and logs.
func (k Kind) Label() string {
	return strings.ToLower(k.String())
}

// Usage describes the accepted commands.
const Usage = `Commands:
  Start_Alarm(<id>): Group(<group>) <seconds> <message>
  Change_Alarm(<id>): Group(<group>) <seconds> <message>
  Cancel_Alarm(<id>)
  Suspend_Alarm(<id>)
  Reactivate_Alarm(<id>)
  View_Alarms
  View_Groups
  Help
  Exit`

var (
	// ErrBadFormat is returned when a known verb has malformed arguments.
	ErrBadFormat = errors.New("bad command format")
	// ErrUnknownCommand is returned for an unrecognized verb.
	ErrUnknownCommand = errors.New("unknown command")
)

var (
	verbPattern = regexp.MustCompile(`^([A-Za-z_]+)(.*)$`)
	editPattern = regexp.MustCompile(`^\((\d+)\):\s*Group\((\d+)\)\s+(\d+)\s+(\S.*)$`)
	idPattern   = regexp.MustCompile(`^\((\d+)\)$`)
)

// Command is one parsed console line.
type Command struct {
	// Kind is the verb.
	Kind Kind
	// AlarmID is set for every alarm command.
	AlarmID int
	// GroupID is set for Start and Change.
	GroupID int
	// Interval is set for Start and Change, in seconds.
	Interval int
	// Message is set for Start and Change.
	Message string
}

// Parse turns a console line into a Command.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)

	match := verbPattern.FindStringSubmatch(line)
	if match == nil {
		return Command{}, fmt.Errorf("parse %q: %w", line, ErrUnknownCommand)
	}

	verb, rest := match[1], strings.TrimSpace(match[2])

	kind, ok := kindNames[verb]
	if !ok {
		return Command{}, fmt.Errorf("parse %q: %w", verb, ErrUnknownCommand)
	}

	cmd := Command{Kind: kind}

	var err error

	switch kind {
	case Start, Change:
		err = cmd.parseEdit(rest)
	case Cancel, Suspend, Reactivate:
		err = cmd.parseID(rest)
	default:
		if rest != "" {
			err = ErrBadFormat
		}
	}

	if err != nil {
		return Command{}, fmt.Errorf("parse %s: %w", verb, err)
	}

	return cmd, nil
}

func (c *Command) parseEdit(rest string) error {
	match := editPattern.FindStringSubmatch(rest)
	if match == nil {
		return ErrBadFormat
	}

	numbers, err := atoi(match[1], match[2], match[3])
	if err != nil {
		return err
	}

	c.AlarmID, c.GroupID, c.Interval = numbers[0], numbers[1], numbers[2]
	c.Message = strings.TrimSpace(match[4])

	return nil
}

func (c *Command) parseID(rest string) error {
	match := idPattern.FindStringSubmatch(rest)
	if match == nil {
		return ErrBadFormat
	}

	numbers, err := atoi(match[1])
	if err != nil {
		return err
	}

	c.AlarmID = numbers[0]

	return nil
}

// atoi converts digit strings, reporting overflow as ErrBadFormat.
func atoi(values ...string) ([]int, error) {
	result := make([]int, 0, len(values))

	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadFormat, err)
		}

		result = append(result, n)
	}

	return result, nil
}
