package planprint

import (
	"context"
	"time"
)

// CaptureSpec is everything a renderer needs for one capture.
type CaptureSpec struct {
	JobID   string
	URL     string
	Width   int
	Height  int
	Delay   time.Duration
	CSSPath string
	Output  string
}

// CaptureReport describes how a capture ended.
type CaptureReport struct {
	State    string
	ExitCode int
	Duration time.Duration
}

// Renderer turns a capture URL into an image file.
// A Renderer is used by one capture at a time; the pool enforces this.
type Renderer interface {
	Capture(ctx context.Context, spec CaptureSpec) (CaptureReport, error)
	Backend() string
	Close() error
}

// Compile-time interface checks.
var (
	_ Renderer = (*ExecRenderer)(nil)
	_ Renderer = (*RodRenderer)(nil)
)
