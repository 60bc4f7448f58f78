package process

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Sentinel errors for process termination.
var (
	ErrInvalidPID  = errors.New("invalid process id")
	ErrInvalidName = errors.New("invalid process name")
)

// validateName rejects names that could widen a kill-by-name beyond one
// executable (empty, path components, pattern characters).
func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "*?[]^$|\\\x00 ") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// run executes a helper command and folds its output into the error.
func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput() // #nosec G204 -- fixed helper binaries
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}
