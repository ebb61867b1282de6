package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/oshokin/alarm-groups/internal/logger"
)

// DefaultPrompt is shown before every input line.
const DefaultPrompt = "Alarm> "

// Options controls the console terminal.
type Options struct {
	// Prompt is shown before every input line.
	Prompt string
	// Stdin overrides the terminal input.
	Stdin io.ReadCloser
	// Stdout overrides the terminal output.
	Stdout io.Writer
	// Stderr overrides the terminal error output.
	Stderr io.Writer
}

// Console runs the read-execute loop.
type Console struct {
	// rl owns the terminal.
	rl *readline.Instance
}

// New opens the terminal.
func New(opts *Options) (*Console, error) {
	if opts == nil {
		opts = new(Options)
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	cfg := &readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "Exit",
		Stdin:           opts.Stdin,
		Stdout:          opts.Stdout,
		Stderr:          opts.Stderr,
	}

	// Overridden input is a pipe, so the process terminal stays in cooked mode.
	if opts.Stdin != nil {
		cfg.FuncIsTerminal = func() bool { return false }
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("create readline: %w", err)
	}

	return &Console{rl: rl}, nil
}

// Stdout returns a writer that redraws the prompt after each write.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns the diagnostics writer, prompt-aware like Stdout.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Run reads commands for svc until Exit, end of input or ctx cancellation.
func (c *Console) Run(ctx context.Context, svc Service) error {
	ctx = logger.WithName(ctx, "console")

	stop := context.AfterFunc(ctx, func() {
		_ = c.rl.Close() //nolint:errcheck // Unblocks Readline on shutdown.
	})
	defer stop()

	out := c.rl.Stdout()

	_, _ = fmt.Fprintln(out, "Type Help for the list of commands")

	for {
		line, err := c.rl.Readline()

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			logger.Info(ctx, "End of input, exiting")
			return nil
		case err != nil:
			return fmt.Errorf("read command: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if Execute(ctx, svc, out, line) {
			logger.Info(ctx, "Exit requested")
			return nil
		}
	}
}
