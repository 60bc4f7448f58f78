package main

import (
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-planprint/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	verbose   bool
	logFormat string
}

// rendererFlags holds renderer selection flags shared by serve and capture.
type rendererFlags struct {
	backend  string
	binary   string
	killMode string
	timeout  time.Duration
	delay    time.Duration
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common         commonFlags
	renderer       rendererFlags
	addr           string
	webRoot        string
	baseURL        string
	upstream       string
	poolSize       int
	strict         bool
	computedHeight bool
	keepOverlays   bool
	printConfig    bool

	changed func(name string) bool
}

// captureFlags holds all flags for the capture command.
type captureFlags struct {
	common     commonFlags
	renderer   rendererFlags
	url        string
	output     string
	stylesheet string
	width      int
	height     int
	taskCount  int
	params     map[string]string

	changed func(name string) bool
}

// tokenFlags holds all flags for the token command.
type tokenFlags struct {
	common   commonFlags
	subject  string
	username string
	roles    []string
	ttl      time.Duration
}

// doctorFlags holds all flags for the doctor command.
type doctorFlags struct {
	json    bool
	backend string
	binary  string
	webRoot string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console, json")
}

// addRendererFlags adds renderer flags to a FlagSet.
func addRendererFlags(fs *flag.FlagSet, f *rendererFlags) {
	fs.StringVar(&f.backend, "backend", "", "renderer backend: exec, rod")
	fs.StringVar(&f.binary, "binary", "", "renderer binary for the exec backend")
	fs.StringVar(&f.killMode, "kill-mode", "", "timeout kill mode: process-group, name")
	fs.DurationVar(&f.timeout, "timeout", 0, "hard capture timeout (e.g. 30s)")
	fs.DurationVar(&f.delay, "delay", 0, "delay before the renderer captures (e.g. 10s)")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting and
// prints usage to env.Stderr.
func newFlagSet(name string, env *Environment, usage func()) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = usage
	return fs
}

// parseArgs parses args, tagging malformed flags as usage errors. --help
// is returned as flag.ErrHelp.
func parseArgs(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidFlags, err)
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, env *Environment) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", env, func() { printServeUsage(env.Stderr) })

	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	fs.StringVar(&f.webRoot, "web-root", "", "directory served as the web root")
	fs.StringVar(&f.baseURL, "base-url", "", "callback base URL reachable by the renderer")
	fs.StringVar(&f.upstream, "upstream", "", "planning view server URL")
	fs.IntVarP(&f.poolSize, "pool-size", "w", 0, "concurrent captures (0 = auto)")
	fs.BoolVar(&f.strict, "strict", false, "answer failed captures with an error")
	fs.BoolVar(&f.computedHeight, "computed-height", false, "size captures from the task count")
	fs.BoolVar(&f.keepOverlays, "keep-overlays", false, "keep generated print stylesheets")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")

	if err := parseArgs(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedArgs, fs.Args())
	}
	f.changed = fs.Changed
	return f, nil
}

// parseCaptureFlags parses capture command flags. The URL may be given as
// --url or as the only positional argument.
func parseCaptureFlags(args []string, env *Environment) (*captureFlags, error) {
	f := &captureFlags{}
	fs := newFlagSet("capture", env, func() { printCaptureUsage(env.Stderr) })

	addCommonFlags(fs, &f.common)
	addRendererFlags(fs, &f.renderer)
	fs.StringVarP(&f.url, "url", "u", "", "page to capture")
	fs.StringVarP(&f.output, "output", "o", "capture.png", "output image path")
	fs.StringVar(&f.stylesheet, "stylesheet", "", "base stylesheet for the print overlay")
	fs.IntVar(&f.width, "width", defaultCaptureWidth, "viewport width in pixels")
	fs.IntVar(&f.height, "height", 0, "viewport height in pixels (0 = default or computed)")
	fs.IntVar(&f.taskCount, "task-count", 0, "task rows, sizes the height when --height is 0")
	fs.StringToStringVarP(&f.params, "param", "p", nil, "display toggle, e.g. labels=all (repeatable)")

	if err := parseArgs(fs, args); err != nil {
		return nil, err
	}
	switch {
	case fs.NArg() == 1 && f.url == "":
		f.url = fs.Arg(0)
	case fs.NArg() > 0:
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedArgs, fs.Args())
	}
	f.changed = fs.Changed
	return f, nil
}

// parseTokenFlags parses token command flags.
func parseTokenFlags(args []string, env *Environment) (*tokenFlags, error) {
	f := &tokenFlags{}
	fs := newFlagSet("token", env, func() { printTokenUsage(env.Stderr) })

	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.subject, "subject", "s", "", "token subject (required)")
	fs.StringVar(&f.username, "username", "", "display name (default: subject)")
	fs.StringSliceVarP(&f.roles, "role", "r", nil, "role claim (repeatable)")
	fs.DurationVar(&f.ttl, "ttl", 0, "token lifetime (default: auth.tokenTTL)")

	if err := parseArgs(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedArgs, fs.Args())
	}
	return f, nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, env *Environment) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor", env, func() { printDoctorUsage(env.Stderr) })

	fs.BoolVar(&f.json, "json", false, "output as JSON")
	fs.StringVar(&f.backend, "backend", "", "renderer backend to check: exec, rod")
	fs.StringVar(&f.binary, "binary", "", "renderer binary to look up")
	fs.StringVar(&f.webRoot, "web-root", "", "web root to check for writability")

	if err := parseArgs(fs, args); err != nil {
		return nil, err
	}
	return f, nil
}

// applyRendererFlags overrides renderer settings with flags that were set.
func applyRendererFlags(f *rendererFlags, changed func(string) bool, cfg *config.RendererConfig) {
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("binary") {
		cfg.Binary = f.binary
	}
	if changed("kill-mode") {
		cfg.KillMode = f.killMode
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("delay") {
		cfg.Delay = f.delay
	}
}

// applyServeFlags overrides cfg with serve flags that were set.
func applyServeFlags(f *serveFlags, cfg *config.Config) {
	applyRendererFlags(&f.renderer, f.changed, &cfg.Renderer)
	if f.changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if f.changed("web-root") {
		cfg.Server.WebRoot = f.webRoot
	}
	if f.changed("base-url") {
		cfg.Server.BaseURL = f.baseURL
	}
	if f.changed("upstream") {
		cfg.Planner.Upstream = f.upstream
	}
	if f.changed("pool-size") {
		cfg.Renderer.PoolSize = f.poolSize
	}
	if f.strict {
		cfg.Renderer.Strict = true
	}
	if f.computedHeight {
		cfg.Renderer.ComputedHeight = true
	}
	if f.keepOverlays {
		cfg.Renderer.KeepOverlays = true
	}
}

// applyCaptureFlags overrides cfg with capture flags that were set.
func applyCaptureFlags(f *captureFlags, cfg *config.Config) {
	applyRendererFlags(&f.renderer, f.changed, &cfg.Renderer)
	if f.changed("stylesheet") {
		cfg.Renderer.BaseStylesheet = f.stylesheet
	}
}
