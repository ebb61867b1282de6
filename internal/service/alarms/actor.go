package alarms

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/alarm-groups/internal/logger"
)

// Actor identifies who runs the console, for the audit trail of commands.
type Actor struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the operating system account.
	Username string
}

// DetectActor gathers host and user information.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// withActor tags every command log of ctx with the actor. Detection
// failures are logged and leave ctx untouched.
func withActor(ctx context.Context) context.Context {
	actor, err := DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Detect actor failed", "error", err)
		return ctx
	}

	return logger.WithKV(ctx, "hostname", actor.Hostname, "username", actor.Username)
}
