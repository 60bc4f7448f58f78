package main

import (
	"errors"
	"os"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/assets"
	"github.com/alnah/go-planprint/internal/auth"
	"github.com/alnah/go-planprint/internal/config"
	"github.com/alnah/go-planprint/internal/hints"
)

// Exit codes for the planprint CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Command completed
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied, publish failed
	ExitRenderer = 4 // Renderer could not start, timed out, or wrote nothing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, planprint.ErrProcessSpawn) ||
		errors.Is(err, planprint.ErrProcessTimeout) ||
		errors.Is(err, planprint.ErrCaptureMissing) ||
		errors.Is(err, planprint.ErrBrowserConnect) ||
		errors.Is(err, planprint.ErrPageLoad) ||
		errors.Is(err, planprint.ErrScreenshot) {
		return ExitRenderer
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, assets.ErrAssetWrite) ||
		errors.Is(err, planprint.ErrStylesheetUnreadable) ||
		errors.Is(err, planprint.ErrArtifactAllocate) ||
		errors.Is(err, planprint.ErrPublish) ||
		errors.Is(err, artifact.ErrUpload) ||
		errors.Is(err, ErrListen) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyInput) ||
		errors.Is(err, config.ErrInvalidField) ||
		errors.Is(err, planprint.ErrInvalidConfig) ||
		errors.Is(err, planprint.ErrInvalidRequest) ||
		errors.Is(err, artifact.ErrInvalidS3) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, auth.ErrWeakSecret) ||
		errors.Is(err, auth.ErrMissingSubject) ||
		errors.Is(err, ErrMissingSecret) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrUnexpectedArgs) ||
		errors.Is(err, ErrInvalidFlags) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for capture errors, given the
// renderer settings in effect.
func hintFor(err error, cfg *config.Config) string {
	switch {
	case errors.Is(err, planprint.ErrProcessSpawn):
		return hints.ForRendererMissing(cfg.Renderer.Binary)
	case errors.Is(err, planprint.ErrProcessTimeout):
		return hints.ForTimeout(cfg.Renderer.Timeout, cfg.Renderer.Delay)
	case errors.Is(err, planprint.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, planprint.ErrHostResolution):
		return hints.ForHostResolution()
	case errors.Is(err, planprint.ErrArtifactAllocate), errors.Is(err, assets.ErrAssetWrite):
		return hints.ForWebRoot()
	}
	return ""
}
