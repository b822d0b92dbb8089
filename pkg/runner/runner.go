package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

const (
	// stderrTail bounds how much of a tool's stderr is kept for error reports
	stderrTail = 4096
	// waitDelay bounds the wait for output pipes after a cancelled tool is killed
	waitDelay = 10 * time.Second
)

// Command describes one external process invocation
type Command struct {
	Name   string
	Args   []string
	Dir    string    // working directory, empty for the current one
	Env    []string  // extra environment, appended to os.Environ()
	Stdout io.Writer // nil discards standard output
	// Secret values are masked when the command is logged or reported
	Secrets []string
}

// String renders the command line with secrets masked
func (c Command) String() string {
	parts := append([]string{c.Name}, c.RedactedArgs()...)
	return strings.Join(parts, " ")
}

// RedactedArgs returns the arguments with every secret replaced by "****"
func (c Command) RedactedArgs() []string {
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		for _, s := range c.Secrets {
			if s != "" {
				a = strings.ReplaceAll(a, s, "****")
			}
		}
		out[i] = a
	}
	return out
}

// Runner runs external tools. The abstraction keeps strategies and the
// post-processing pipeline testable without the real binaries.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// SystemRunner executes commands as operating system processes
type SystemRunner struct {
	logger zerolog.Logger
}

// NewSystemRunner creates a runner backed by os/exec
func NewSystemRunner(logger zerolog.Logger) *SystemRunner {
	return &SystemRunner{logger: logger}
}

// Run executes the command and blocks until it exits. A missing binary or a
// non-zero exit status is reported as an ExternalToolError.
func (r *SystemRunner) Run(ctx context.Context, cmd Command) error {
	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return &dumperr.ExternalToolError{
			Tool:     cmd.Name,
			Args:     cmd.RedactedArgs(),
			ExitCode: -1,
			Err:      dumperr.ErrToolNotFound,
		}
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = cmd.Stdout
	c.WaitDelay = waitDelay

	var stderr tailBuffer
	c.Stderr = &stderr

	r.logger.Debug().Str("command", cmd.String()).Msg("running external tool")

	if err := c.Run(); err != nil {
		toolErr := &dumperr.ExternalToolError{
			Tool:     cmd.Name,
			Args:     cmd.RedactedArgs(),
			ExitCode: -1,
			Stderr:   redact(stderr.String(), cmd.Secrets),
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		} else {
			toolErr.Err = err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			toolErr.Err = ctxErr
		}
		return toolErr
	}

	return nil
}

func redact(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "****")
		}
	}
	return s
}

// tailBuffer keeps only the last stderrTail bytes written to it
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - stderrTail; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
