// Package toolexec runs external command-line tools under a time budget.
//
// Commands are always executed as an argument vector; nothing is passed
// through a shell. Each run is bounded twice: the context deadline
// (Budget.Timeout) kills the process outright, and an earlier safety-net
// timer (Budget.KillAfter) sends SIGTERM and escalates to SIGKILL after a
// short grace period. Either path surfaces as a *TimeoutError. On Unix the
// tool runs in its own process group and both signals go to the whole
// group, so helpers it forks do not outlive the budget.
//
// Non-zero exits surface as *ExitError, whose Diagnostic prefers stderr,
// then stdout, then the underlying error text.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nicholaspatten/svgit/pkg/observability"
)

const (
	// DefaultGrace is the time between SIGTERM and SIGKILL, and the
	// WaitDelay applied once a process has been told to stop.
	DefaultGrace = 2 * time.Second

	// DefaultMaxOutput caps how much of stdout and stderr is retained.
	DefaultMaxOutput = 1 << 20
)

// Budget bounds a single tool invocation.
type Budget struct {
	Timeout   time.Duration // hard deadline; zero means none
	KillAfter time.Duration // safety-net SIGTERM; zero disables
}

// String renders the budget for log lines.
func (b Budget) String() string {
	return fmt.Sprintf("timeout=%s kill_after=%s", b.Timeout, b.KillAfter)
}

// Command describes one process to launch.
type Command struct {
	Name string   // short tool name used in logs and errors ("magick")
	Path string   // executable; defaults to Name
	Args []string // argv after the executable
	Env  []string // nil inherits the current environment
	Dir  string
}

func (c Command) executable() string {
	if c.Path != "" {
		return c.Path
	}
	return c.Name
}

// Result holds what a finished process produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner runs a Command under a Budget. Exec is the production
// implementation; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, c Command, b Budget) (*Result, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	Logger    *log.Logger
	Grace     time.Duration // zero selects DefaultGrace
	MaxOutput int           // zero selects DefaultMaxOutput
}

// NewExec returns an Exec that logs to logger. A nil logger discards.
func NewExec(logger *log.Logger) *Exec {
	return &Exec{Logger: logger}
}

// Run starts c and waits for it to exit, be killed, or exceed b.
// The returned Result is non-nil whenever the process was started.
func (e *Exec) Run(ctx context.Context, c Command, b Budget) (*Result, error) {
	grace := e.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	maxOut := e.MaxOutput
	if maxOut <= 0 {
		maxOut = DefaultMaxOutput
	}

	var cancel context.CancelFunc
	if b.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, c.executable(), c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.WaitDelay = grace
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return signalGroup(cmd.Process, syscall.SIGKILL) }
	stdout := &cappedBuffer{max: maxOut}
	stderr := &cappedBuffer{max: maxOut}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	hooks := observability.Tool()
	hooks.OnToolStart(ctx, c.Name, c.Args)
	e.debug("tool start", "tool", c.Name, "args", strings.Join(c.Args, " "), "budget", b)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res := &Result{ExitCode: -1, Duration: time.Since(start)}
		runErr := &ExitError{Tool: c.Name, ExitCode: -1, Err: err}
		hooks.OnToolComplete(ctx, c.Name, -1, res.Duration, runErr)
		return res, runErr
	}

	var killed atomic.Bool
	if b.KillAfter > 0 {
		safety := time.AfterFunc(b.KillAfter, func() {
			killed.Store(true)
			if err := signalGroup(cmd.Process, syscall.SIGTERM); err != nil {
				cancel()
				return
			}
			time.AfterFunc(grace, cancel)
		})
		defer safety.Stop()
	}

	waitErr := cmd.Wait()
	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var err error
	switch {
	case waitErr == nil:
	case killed.Load():
		err = &TimeoutError{Tool: c.Name, After: b.KillAfter, Stdout: res.Stdout, Stderr: res.Stderr}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = &TimeoutError{Tool: c.Name, After: b.Timeout, Stdout: res.Stdout, Stderr: res.Stderr}
	default:
		err = &ExitError{Tool: c.Name, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr, Err: waitErr}
	}

	hooks.OnToolComplete(ctx, c.Name, res.ExitCode, res.Duration, err)
	e.debug("tool done", "tool", c.Name, "exit", res.ExitCode, "duration", res.Duration.Round(time.Millisecond))
	if res.Stderr != "" {
		e.debug("tool stderr", "tool", c.Name, "stderr", strings.TrimSpace(res.Stderr))
	}
	return res, err
}

func (e *Exec) debug(msg string, kv ...any) {
	if e.Logger != nil {
		e.Logger.Debug(msg, kv...)
	}
}

// TimeoutError reports a process stopped because it ran past its budget.
type TimeoutError struct {
	Tool   string
	After  time.Duration
	Stdout string
	Stderr string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.After)
}

// ExitError reports a process that could not start or exited non-zero.
type ExitError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Diagnostic returns the most useful text describing err: stderr if any,
// else stdout, else the error message.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var stdout, stderr string
	var ee *ExitError
	var te *TimeoutError
	switch {
	case errors.As(err, &ee):
		stdout, stderr = ee.Stdout, ee.Stderr
		if ee.Err != nil {
			err = ee.Err
		}
	case errors.As(err, &te):
		stdout, stderr = te.Stdout, te.Stderr
	}
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(stdout); s != "" {
		return s
	}
	return err.Error()
}

// IsTimeout reports whether err is a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, syscall.ENOENT)
}

// cappedBuffer keeps the first max bytes written and discards the rest.
type cappedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
