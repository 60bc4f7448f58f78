package main

// Notes:
// - exitCodeFor: we test the sentinel errors of every package the CLI
//   surfaces, plus wrapped and joined errors to verify the errors.Is chain.
// - hintFor: we test that each renderer failure gets its hint and that
//   unrelated errors get none.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/assets"
	"github.com/alnah/go-planprint/internal/auth"
	"github.com/alnah/go-planprint/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		// Success
		{"nil error", nil, ExitSuccess},

		// Renderer errors (exit 4)
		{"process spawn", planprint.ErrProcessSpawn, ExitRenderer},
		{"process timeout", planprint.ErrProcessTimeout, ExitRenderer},
		{"capture missing", planprint.ErrCaptureMissing, ExitRenderer},
		{"browser connect", planprint.ErrBrowserConnect, ExitRenderer},
		{"page load", planprint.ErrPageLoad, ExitRenderer},
		{"screenshot", planprint.ErrScreenshot, ExitRenderer},
		{"wrapped timeout", fmt.Errorf("job 1: %w", planprint.ErrProcessTimeout), ExitRenderer},
		{"joined capture missing", errors.Join(planprint.ErrCaptureMissing, errors.New("exit 1")), ExitRenderer},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"asset write", assets.ErrAssetWrite, ExitIO},
		{"stylesheet unreadable", planprint.ErrStylesheetUnreadable, ExitIO},
		{"artifact allocate", planprint.ErrArtifactAllocate, ExitIO},
		{"publish", planprint.ErrPublish, ExitIO},
		{"upload", artifact.ErrUpload, ExitIO},
		{"listen", ErrListen, ExitIO},

		// Usage/config/validation errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"empty config", config.ErrEmptyInput, ExitUsage},
		{"invalid field", config.ErrInvalidField, ExitUsage},
		{"invalid printer config", planprint.ErrInvalidConfig, ExitUsage},
		{"invalid request", planprint.ErrInvalidRequest, ExitUsage},
		{"invalid s3", artifact.ErrInvalidS3, ExitUsage},
		{"weak secret", auth.ErrWeakSecret, ExitUsage},
		{"missing subject", auth.ErrMissingSubject, ExitUsage},
		{"missing secret", ErrMissingSecret, ExitUsage},
		{"invalid url", ErrInvalidURL, ExitUsage},
		{"unexpected args", ErrUnexpectedArgs, ExitUsage},
		{"invalid flags", ErrInvalidFlags, ExitUsage},
		{"hinted config not found", withHint(config.ErrConfigNotFound, "\n  hint: x"), ExitUsage},

		// General errors (exit 1)
		{"unknown error", errors.New("boom"), ExitGeneral},
		{"host resolution", planprint.ErrHostResolution, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Errorf("standard codes = %d/%d/%d, want 0/1/2", ExitSuccess, ExitGeneral, ExitUsage)
	}
	for _, code := range []int{ExitIO, ExitRenderer} {
		if code <= ExitUsage || code >= 126 {
			t.Errorf("custom exit code %d outside (2, 126)", code)
		}
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints per failure
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Renderer.Binary = "my-renderer"
	cfg.Renderer.Timeout = 30 * time.Second

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"spawn names binary", planprint.ErrProcessSpawn, "my-renderer"},
		{"timeout names duration", fmt.Errorf("x: %w", planprint.ErrProcessTimeout), "30s"},
		{"browser connect", planprint.ErrBrowserConnect, "hint:"},
		{"host resolution", planprint.ErrHostResolution, "hint:"},
		{"asset write", assets.ErrAssetWrite, "hint:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err, cfg)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("hintFor(%v) = %q, want it to contain %q", tt.err, got, tt.contains)
			}
		})
	}

	t.Run("unrelated error", func(t *testing.T) {
		t.Parallel()

		if got := hintFor(errors.New("boom"), cfg); got != "" {
			t.Errorf("hintFor() = %q, want empty", got)
		}
	})
}

// ---------------------------------------------------------------------------
// TestWithHint - Hint wrapping keeps the chain
// ---------------------------------------------------------------------------

func TestWithHint(t *testing.T) {
	t.Parallel()

	err := withHint(planprint.ErrProcessSpawn, "\n  hint: install it")
	if !errors.Is(err, planprint.ErrProcessSpawn) {
		t.Error("withHint() broke errors.Is")
	}
	if !strings.HasSuffix(err.Error(), "install it") {
		t.Errorf("Error() = %q, want the hint appended", err.Error())
	}
	if withHint(nil, "hint") != nil {
		t.Error("withHint(nil) should stay nil")
	}
	if got := withHint(os.ErrNotExist, ""); got != os.ErrNotExist {
		t.Errorf("withHint(err, \"\") = %v, want err unchanged", got)
	}
}
