package planprint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/supervisor"
)

// ExecRenderer runs an external renderer binary per capture under a
// supervisor. It holds no per-capture state.
type ExecRenderer struct {
	binary  string
	timeout time.Duration
	sup     *supervisor.Supervisor
}

// NewExecRenderer creates a renderer invoking binary with a hard timeout.
func NewExecRenderer(binary string, timeout time.Duration, mode KillMode, logger *zap.Logger) *ExecRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	var term supervisor.Terminator = supervisor.GroupTerminator{}
	if mode == KillByName {
		term = supervisor.NameTerminator{}
	}
	return &ExecRenderer{
		binary:  binary,
		timeout: timeout,
		sup: supervisor.New(
			supervisor.WithTimeout(timeout),
			supervisor.WithTerminator(term),
			supervisor.WithLogger(logger),
		),
	}
}

// CaptureArgs returns the renderer command line for spec, one flag per
// element. The vector is passed to the process as is, never to a shell.
func CaptureArgs(spec CaptureSpec) []string {
	return []string{
		"--url=" + spec.URL,
		"--height=" + strconv.Itoa(spec.Height),
		"--width=" + strconv.Itoa(spec.Width),
		"--delay=" + strconv.FormatInt(spec.Delay.Milliseconds(), 10),
		"--css=" + spec.CSSPath,
		"--output=" + spec.Output,
	}
}

// Capture runs the renderer and waits for it to exit or be killed.
func (r *ExecRenderer) Capture(ctx context.Context, spec CaptureSpec) (CaptureReport, error) {
	out, err := r.sup.Run(ctx, supervisor.Job{
		ID:      spec.JobID,
		Binary:  r.binary,
		Args:    CaptureArgs(spec),
		Timeout: r.timeout,
	})
	report := CaptureReport{State: out.State.String(), ExitCode: out.ExitCode, Duration: out.Duration}

	switch {
	case err == nil:
		return report, nil
	case errors.Is(err, supervisor.ErrTimeout):
		return report, fmt.Errorf("%w: %v", ErrProcessTimeout, err)
	case errors.Is(err, supervisor.ErrInterrupted):
		return report, fmt.Errorf("%w: %v", ErrInterruptedWait, err)
	default:
		return report, fmt.Errorf("%w: %v", ErrProcessSpawn, err)
	}
}

// Backend returns "exec".
func (r *ExecRenderer) Backend() string { return string(BackendExec) }

// Close is a no-op; processes never outlive Capture.
func (r *ExecRenderer) Close() error { return nil }
