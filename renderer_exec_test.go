//go:build !windows

package planprint

// Notes:
// - The renderer is a shell script written to t.TempDir(); it honours the
//   --output flag the way wk2img does.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// writeScript creates an executable renderer stand-in.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wk2img")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

const writingRenderer = `for a in "$@"; do
  case "$a" in --output=*) out="${a#--output=}";; esac
done
printf 'png' > "$out"
`

// ---------------------------------------------------------------------------
// TestCaptureArgs - Renderer command line
// ---------------------------------------------------------------------------

func TestCaptureArgs(t *testing.T) {
	t.Parallel()

	got := CaptureArgs(CaptureSpec{
		URL:     "http://10.0.0.5:8080/callback/abc?labels=all",
		Width:   1539,
		Height:  1000,
		Delay:   10 * time.Second,
		CSSPath: "/tmp/print123.css",
		Output:  "/srv/web/print/x.png",
	})
	want := []string{
		"--url=http://10.0.0.5:8080/callback/abc?labels=all",
		"--height=1000",
		"--width=1539",
		"--delay=10000",
		"--css=/tmp/print123.css",
		"--output=/srv/web/print/x.png",
	}
	if !slices.Equal(got, want) {
		t.Errorf("CaptureArgs() =\n%q\nwant\n%q", got, want)
	}
}

func TestCaptureArgs_ValuesWithSpacesStayOneArgument(t *testing.T) {
	t.Parallel()

	got := CaptureArgs(CaptureSpec{CSSPath: "/tmp/my dir/print.css"})
	if !slices.Contains(got, "--css=/tmp/my dir/print.css") {
		t.Errorf("CaptureArgs() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestExecRenderer_Capture
// ---------------------------------------------------------------------------

func TestExecRenderer_Capture(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "capture.png")
	r := NewExecRenderer(writeScript(t, writingRenderer), 5*time.Second, KillProcessGroup, nil)
	defer r.Close()

	report, err := r.Capture(context.Background(), CaptureSpec{JobID: "j1", URL: "http://x", Output: out})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if report.State != "completed" || report.ExitCode != 0 {
		t.Errorf("report = %+v", report)
	}
	if got, _ := os.ReadFile(out); string(got) != "png" {
		t.Errorf("artifact content = %q", got)
	}
	if r.Backend() != "exec" {
		t.Errorf("Backend() = %q", r.Backend())
	}
}

func TestExecRenderer_Timeout(t *testing.T) {
	t.Parallel()

	r := NewExecRenderer(writeScript(t, "exec sleep 30\n"), 200*time.Millisecond, KillProcessGroup, nil)

	report, err := r.Capture(context.Background(), CaptureSpec{JobID: "slow"})
	if !errors.Is(err, ErrProcessTimeout) {
		t.Fatalf("Capture() error = %v, want ErrProcessTimeout", err)
	}
	if report.State != "timed_out" {
		t.Errorf("State = %q, want timed_out", report.State)
	}
}

func TestExecRenderer_SpawnFailure(t *testing.T) {
	t.Parallel()

	r := NewExecRenderer(filepath.Join(t.TempDir(), "missing"), time.Second, KillProcessGroup, nil)

	report, err := r.Capture(context.Background(), CaptureSpec{JobID: "missing"})
	if !errors.Is(err, ErrProcessSpawn) {
		t.Fatalf("Capture() error = %v, want ErrProcessSpawn", err)
	}
	if report.State != "failed" {
		t.Errorf("State = %q, want failed", report.State)
	}
}

func TestExecRenderer_Interrupted(t *testing.T) {
	t.Parallel()

	r := NewExecRenderer(writeScript(t, "exec sleep 30\n"), 10*time.Second, KillProcessGroup, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Capture(ctx, CaptureSpec{JobID: "cancel"})
	if !errors.Is(err, ErrInterruptedWait) {
		t.Errorf("Capture() error = %v, want ErrInterruptedWait", err)
	}
}
