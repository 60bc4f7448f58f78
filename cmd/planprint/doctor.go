package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Renderer rendererInfo `json:"renderer"`
	Chrome   chromeInfo   `json:"chrome"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// rendererInfo holds the exec backend binary lookup.
type rendererInfo struct {
	Backend string `json:"backend"`
	Binary  string `json:"binary,omitempty"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Checked bool   `json:"checked"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable    bool   `json:"temp_writable"`
	WebRoot         string `json:"web_root,omitempty"`
	WebRootWritable bool   `json:"web_root_writable"`
	ProcessGroups   bool   `json:"process_groups"`
}

// doctorProbes are the system lookups doctor depends on.
type doctorProbes struct {
	getenv     func(string) string
	lookPath   func(string) (string, error)
	lookChrome func() (string, bool)
	stat       func(string) (os.FileInfo, error)
	tempDir    string
	goos       string
}

func defaultProbes(env *Environment) doctorProbes {
	getenv := os.Getenv
	if env != nil && env.Getenv != nil {
		getenv = env.Getenv
	}
	return doctorProbes{
		getenv:     getenv,
		lookPath:   exec.LookPath,
		lookChrome: launcher.LookPath,
		stat:       os.Stat,
		tempDir:    os.TempDir(),
		goos:       runtime.GOOS,
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	f, err := parseDoctorFlags(args, env)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	result := runDoctor(f, defaultProbes(env))

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(f *doctorFlags, p doctorProbes) *doctorResult {
	backend := f.backend
	if backend == "" {
		backend = string(planprint.BackendExec)
	}
	result := &doctorResult{
		Status:   "ready",
		Renderer: rendererInfo{Backend: backend},
		Env: envInfo{
			OS:         p.goos,
			Arch:       runtime.GOARCH,
			NoSandbox:  p.getenv("ROD_NO_SANDBOX"),
			BrowserBin: p.getenv("ROD_BROWSER_BIN"),
		},
	}

	switch planprint.Backend(backend) {
	case planprint.BackendExec:
		checkRenderer(result, f.binary, p)
	case planprint.BackendRod:
		checkChrome(result, p)
	default:
		result.Errors = append(result.Errors,
			fmt.Sprintf("Unknown backend %q (must be exec or rod)", backend))
	}
	checkEnvironment(result, p)
	checkSystem(result, f.webRoot, p)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkRenderer looks up the exec backend binary on PATH.
func checkRenderer(result *doctorResult, binary string, p doctorProbes) {
	if binary == "" {
		binary = planprint.DefaultRendererBinary
	}
	result.Renderer.Binary = binary

	path, err := p.lookPath(binary)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Renderer %q not found: install it, add it to PATH or set renderer.binary", binary))
		return
	}
	result.Renderer.Found = true
	result.Renderer.Path = path
}

// checkChrome detects Chrome/Chromium installation for the rod backend.
func checkChrome(result *doctorResult, p doctorProbes) {
	result.Chrome.Checked = true
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = p.lookChrome()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := p.stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, p doctorProbes) {
	result.Env.Container, result.Env.ContainerHint = isContainer(p)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if p.getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if result.Chrome.Checked && (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(p doctorProbes) (bool, string) {
	// Explicit override (highest priority)
	if p.getenv("PLANPRINT_CONTAINER") == "1" {
		return true, "PLANPRINT_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := p.getenv("container"); v != "" {
		return true, "container=" + v
	}
	if p.getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the directories captures write to and whether timed
// out renderers can be killed by process group.
func checkSystem(result *doctorResult, webRoot string, p doctorProbes) {
	if err := probeWritable(p.tempDir); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", p.tempDir))
	} else {
		result.System.TempWritable = true
	}

	if webRoot != "" {
		result.System.WebRoot = webRoot
		if err := probeWritable(webRoot); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Web root not writable: %s: %v", webRoot, err))
		} else {
			result.System.WebRootWritable = true
		}
	}

	result.System.ProcessGroups = p.goos != "windows"
	if !result.System.ProcessGroups && result.Renderer.Backend == string(planprint.BackendExec) {
		result.Warnings = append(result.Warnings,
			"Process groups unavailable on windows; timed-out renderers are killed with taskkill /T")
	}
}

// probeWritable creates and removes a file in dir.
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".planprint-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "planprint doctor")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Renderer (%s)\n", r.Renderer.Backend)
	switch {
	case r.Chrome.Checked && r.Chrome.Found:
		fmt.Fprintf(w, "  [OK] Chrome at %s\n", r.Chrome.Path)
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	case r.Chrome.Checked:
		fmt.Fprintln(w, "  [ERROR] Chrome not found")
	case r.Renderer.Found:
		fmt.Fprintf(w, "  [OK] %s at %s\n", r.Renderer.Binary, r.Renderer.Path)
	case r.Renderer.Binary != "":
		fmt.Fprintf(w, "  [ERROR] %s not found\n", r.Renderer.Binary)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	if r.System.WebRoot != "" {
		if r.System.WebRootWritable {
			fmt.Fprintf(w, "  [OK] Web root %s: writable\n", r.System.WebRoot)
		} else {
			fmt.Fprintf(w, "  [ERROR] Web root %s: not writable\n", r.System.WebRoot)
		}
	}
	if r.System.ProcessGroups {
		fmt.Fprintln(w, "  [OK] Process groups: supported")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to capture")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
