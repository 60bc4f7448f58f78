// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-planprint/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI environment variable is set.
func inCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for rod backend connection errors.
func ForBrowserConnect() string {
	var hints []string
	if (inCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	return formatHints(hints)
}

// ForRendererMissing returns hints when the exec backend binary cannot be
// started.
func ForRendererMissing(binary string) string {
	return formatHints([]string{
		fmt.Sprintf("install %s or set renderer.binary (PLANPRINT_RENDERER_BINARY)", binary),
		"or use --backend rod to capture with headless Chrome",
	})
}

// ForTimeout returns a hint for renderers killed by the watchdog.
func ForTimeout(timeout, delay time.Duration) string {
	if delay > 0 && delay*2 >= timeout {
		return format(fmt.Sprintf("the %v capture delay uses most of the %v timeout; raise --timeout or lower --delay", delay, timeout))
	}
	return format(fmt.Sprintf("large plans may need more than %v; raise --timeout", timeout))
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config in ~/.config/go-planprint/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-planprint") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForHostResolution returns a hint when no callback host can be derived.
func ForHostResolution() string {
	return format("set server.baseURL (PLANPRINT_BASE_URL) to an address the renderer can reach")
}

// ForWebRoot returns a hint for artifact or stylesheet write failures.
func ForWebRoot() string {
	return format("check server.webRoot exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
