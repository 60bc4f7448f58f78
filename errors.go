package planprint

import "errors"

// Sentinel errors for library operations.
var (
	ErrInvalidRequest = errors.New("invalid render request")
	ErrInvalidConfig  = errors.New("invalid printer configuration")

	// Stylesheet errors. ErrStylesheetUnreadable is recovered locally: the
	// capture proceeds with the unmodified base stylesheet.
	ErrStylesheetUnreadable = errors.New("base stylesheet unreadable")

	// Capture errors.
	ErrHostResolution  = errors.New("could not resolve callback host")
	ErrProcessSpawn    = errors.New("could not execute print command")
	ErrProcessTimeout  = errors.New("print command timed out")
	ErrInterruptedWait = errors.New("interrupted while waiting for print command")
	ErrCaptureMissing  = errors.New("capture produced no artifact")

	// Headless browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("screenshot capture failed")

	// Delivery errors.
	ErrArtifactAllocate = errors.New("could not allocate artifact")
	ErrPublish          = errors.New("could not publish artifact")
	ErrPoolClosed       = errors.New("renderer pool closed")
)
