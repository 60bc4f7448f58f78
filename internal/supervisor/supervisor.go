// Package supervisor runs one external renderer process per job, drains its
// output streams into the logger and enforces a wall-clock timeout.
//
// A job moves through Built → Running → {Completed, TimedOut, Failed}. The
// watchdog is a cancellable timer: it is stopped as soon as the process
// exits, and when it does fire the job's terminator is invoked exactly once.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-planprint/internal/process"
)

// Sentinel errors for supervised runs.
var (
	ErrInvalidJob  = errors.New("invalid render job")
	ErrSpawn       = errors.New("could not start renderer process")
	ErrTimeout     = errors.New("renderer process timed out")
	ErrInterrupted = errors.New("interrupted while waiting for renderer process")
)

// DefaultTimeout is used when neither the job nor the supervisor sets one.
const DefaultTimeout = 30 * time.Second

// DefaultPipeGrace is how long output pipes stay open after a kill before
// they are closed from this side.
const DefaultPipeGrace = 2 * time.Second

const (
	reasonTimeout     = "timeout"
	reasonInterrupted = "interrupted"
)

// maxLineBytes caps a single logged output line.
const maxLineBytes = 256 * 1024

// State is the lifecycle state of a job.
type State int

const (
	StateBuilt State = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Job describes one renderer invocation.
type Job struct {
	ID      string
	Binary  string
	Args    []string
	Timeout time.Duration // zero means the supervisor default
}

// Outcome reports how a job ended.
type Outcome struct {
	State    State
	ExitCode int // -1 when the process was not started or was killed by a signal
	Duration time.Duration
	Killed   bool
}

// Terminator forcibly stops a running renderer.
type Terminator interface {
	Terminate(pid int, binary string) error
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(pid int, binary string) error

// Terminate calls f.
func (f TerminatorFunc) Terminate(pid int, binary string) error { return f(pid, binary) }

// GroupTerminator kills the job's own process group and nothing else.
type GroupTerminator struct{}

// Terminate kills the process group led by pid.
func (GroupTerminator) Terminate(pid int, _ string) error {
	return process.KillProcessGroup(pid)
}

// NameTerminator kills every process running the job's executable.
// Concurrent jobs sharing the binary are terminated as well.
type NameTerminator struct{}

// Terminate kills all processes named after binary, then the job's process
// group so helpers forked under another name release the output pipes. It
// fails only when neither kill succeeded.
func (NameTerminator) Terminate(pid int, binary string) error {
	nameErr := process.KillByName(filepath.Base(binary))
	groupErr := process.KillProcessGroup(pid)
	if nameErr != nil && groupErr != nil {
		return errors.Join(nameErr, groupErr)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Terminator = GroupTerminator{}
	_ Terminator = NameTerminator{}
	_ Terminator = TerminatorFunc(nil)
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTimeout sets the default job timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("supervisor: WithTimeout duration must be positive")
	}
	return func(s *Supervisor) { s.timeout = d }
}

// WithTerminator replaces the default GroupTerminator.
func WithTerminator(t Terminator) Option {
	return func(s *Supervisor) {
		if t != nil {
			s.terminator = t
		}
	}
}

// WithPipeGrace sets how long output pipes stay open after a kill.
// Panics if d <= 0.
func WithPipeGrace(d time.Duration) Option {
	if d <= 0 {
		panic("supervisor: WithPipeGrace duration must be positive")
	}
	return func(s *Supervisor) { s.pipeGrace = d }
}

// WithLogger sets the logger receiving lifecycle events and process output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// Supervisor launches and supervises renderer processes.
// A Supervisor is stateless between runs and safe for concurrent use.
type Supervisor struct {
	timeout    time.Duration
	pipeGrace  time.Duration
	terminator Terminator
	logger     *zap.Logger
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		timeout:    DefaultTimeout,
		pipeGrace:  DefaultPipeGrace,
		terminator: GroupTerminator{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts job and blocks until the process exits or is killed.
// Any exit code counts as Completed. Cancelling ctx terminates the process
// and yields StateFailed with ErrInterrupted.
func (s *Supervisor) Run(ctx context.Context, job Job) (Outcome, error) {
	out := Outcome{State: StateBuilt, ExitCode: -1}
	if job.Binary == "" {
		out.State = StateFailed
		return out, fmt.Errorf("%w: empty binary", ErrInvalidJob)
	}
	if err := ctx.Err(); err != nil {
		out.State = StateFailed
		return out, fmt.Errorf("%w: %v", ErrInterrupted, err)
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	log := s.logger.With(zap.String("job", job.ID), zap.String("binary", job.Binary))

	cmd := exec.Command(job.Binary, job.Args...) // #nosec G204 -- binary comes from operator config
	process.Isolate(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		out.State = StateFailed
		return out, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		out.State = StateFailed
		return out, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	log.Info("starting renderer", zap.Strings("args", job.Args), zap.Duration("timeout", timeout))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		out.State = StateFailed
		log.Error("could not start renderer", zap.Error(err))
		return out, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	out.State = StateRunning
	pid := cmd.Process.Pid

	ks := &killSwitch{terminate: func(reason string) *time.Timer {
		log.Warn("terminating renderer", zap.String("reason", reason), zap.Int("pid", pid))
		if err := s.terminator.Terminate(pid, job.Binary); err != nil {
			log.Error("terminator failed, killing process group", zap.Error(err))
			if err := process.KillProcessGroup(pid); err != nil {
				_ = cmd.Process.Kill()
			}
		}
		// Helpers that left the process group can still hold the output
		// pipes open.
		return time.AfterFunc(s.pipeGrace, func() {
			_ = stdout.Close()
			_ = stderr.Close()
		})
	}}
	watchdog := time.AfterFunc(timeout, func() { ks.trigger(reasonTimeout) })
	stopInterrupt := context.AfterFunc(ctx, func() { ks.trigger(reasonInterrupted) })

	var g errgroup.Group
	g.Go(func() error { return drain(stdout, "out", log) })
	g.Go(func() error { return drain(stderr, "err", log) })
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	reason := ks.markExited()

	if watchdog.Stop() {
		log.Debug("watchdog cancelled")
	}
	stopInterrupt()

	out.Duration = time.Since(start)
	out.Killed = reason != ""
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	if drainErr != nil {
		log.Warn("reading renderer output", zap.Error(drainErr))
	}

	switch {
	case reason == reasonTimeout:
		out.State = StateTimedOut
		log.Error("renderer timed out", zap.Duration("timeout", timeout), zap.Duration("elapsed", out.Duration))
		return out, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case reason == reasonInterrupted:
		out.State = StateFailed
		log.Error("interrupted while waiting for renderer", zap.Error(ctx.Err()))
		return out, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	out.State = StateCompleted
	if waitErr != nil {
		log.Warn("renderer exited with error",
			zap.Int("exit_code", out.ExitCode),
			zap.Error(waitErr),
			zap.Duration("elapsed", out.Duration))
	} else {
		log.Info("renderer finished", zap.Duration("elapsed", out.Duration))
	}
	return out, nil
}

// killSwitch serializes termination against process exit. After
// markExited, triggers are ignored so a late watchdog or cancellation never
// signals a reaped, possibly recycled, PID.
type killSwitch struct {
	mu        sync.Mutex
	exited    bool
	reason    string
	terminate func(reason string) *time.Timer
	release   *time.Timer
}

// trigger terminates the process once. It reports whether this call did.
func (k *killSwitch) trigger(reason string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.exited || k.reason != "" {
		return false
	}
	k.reason = reason
	k.release = k.terminate(reason)
	return true
}

// markExited records that the process has been reaped and returns the kill
// reason, empty when it exited on its own.
func (k *killSwitch) markExited() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.exited = true
	if k.release != nil {
		k.release.Stop()
	}
	return k.reason
}

// drain logs r line by line until EOF. Over-long lines end line logging but
// the rest of the stream is still consumed so the child never blocks on a
// full pipe.
func drain(r io.Reader, stream string, log *zap.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		log.Info("renderer output", zap.String("stream", stream), zap.String("line", sc.Text()))
	}
	err := sc.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		_, _ = io.Copy(io.Discard, r)
	}
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s stream: %w", stream, err)
	}
	return nil
}
