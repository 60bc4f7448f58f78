package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/config"
	"github.com/alnah/go-planprint/internal/hints"
	"github.com/alnah/go-planprint/internal/logging"
)

// envPrefix namespaces every recognized environment variable.
const envPrefix = "PLANPRINT_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // PLANPRINT_CONFIG: config file path or name
	Addr       string        // PLANPRINT_ADDR: listen address
	WebRoot    string        // PLANPRINT_WEB_ROOT: served web root
	Upstream   string        // PLANPRINT_PLANNER_UPSTREAM: planning view server
	Secret     string        // PLANPRINT_JWT_SECRET: bearer token secret
	Timeout    time.Duration // PLANPRINT_TIMEOUT: hard capture timeout

	// Tier 2 - Renderer
	BaseURL  string        // PLANPRINT_BASE_URL: callback base URL
	Backend  string        // PLANPRINT_RENDERER_BACKEND: exec or rod
	Binary   string        // PLANPRINT_RENDERER_BINARY: exec backend binary
	KillMode string        // PLANPRINT_KILL_MODE: process-group or name
	Delay    time.Duration // PLANPRINT_DELAY: capture delay
	PoolSize int           // PLANPRINT_POOL_SIZE: concurrent captures

	// Tier 3 - Logging and storage
	LogLevel    string // PLANPRINT_LOG_LEVEL
	LogFormat   string // PLANPRINT_LOG_FORMAT
	S3Bucket    string // PLANPRINT_S3_BUCKET: enables S3 publication
	S3Endpoint  string // PLANPRINT_S3_ENDPOINT
	S3Region    string // PLANPRINT_S3_REGION
	S3AccessKey string // PLANPRINT_S3_ACCESS_KEY
	S3SecretKey string // PLANPRINT_S3_SECRET_KEY
}

// knownEnvVars lists valid PLANPRINT_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"PLANPRINT_CONFIG":           true,
	"PLANPRINT_ADDR":             true,
	"PLANPRINT_WEB_ROOT":         true,
	"PLANPRINT_PLANNER_UPSTREAM": true,
	"PLANPRINT_JWT_SECRET":       true,
	"PLANPRINT_TIMEOUT":          true,
	// Tier 2 - Renderer
	"PLANPRINT_BASE_URL":         true,
	"PLANPRINT_RENDERER_BACKEND": true,
	"PLANPRINT_RENDERER_BINARY":  true,
	"PLANPRINT_KILL_MODE":        true,
	"PLANPRINT_DELAY":            true,
	"PLANPRINT_POOL_SIZE":        true,
	// Tier 3 - Logging and storage
	"PLANPRINT_LOG_LEVEL":     true,
	"PLANPRINT_LOG_FORMAT":    true,
	"PLANPRINT_S3_BUCKET":     true,
	"PLANPRINT_S3_ENDPOINT":   true,
	"PLANPRINT_S3_REGION":     true,
	"PLANPRINT_S3_ACCESS_KEY": true,
	"PLANPRINT_S3_SECRET_KEY": true,
}

// loadEnvConfig reads configuration from getenv. Malformed numeric and
// duration values are ignored and reported as warnings.
func loadEnvConfig(getenv func(string) string) (*envConfig, []string) {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: getenv("PLANPRINT_CONFIG"),
		Addr:       getenv("PLANPRINT_ADDR"),
		WebRoot:    getenv("PLANPRINT_WEB_ROOT"),
		Upstream:   getenv("PLANPRINT_PLANNER_UPSTREAM"),
		Secret:     getenv("PLANPRINT_JWT_SECRET"),
		// Tier 2
		BaseURL:  getenv("PLANPRINT_BASE_URL"),
		Backend:  getenv("PLANPRINT_RENDERER_BACKEND"),
		Binary:   getenv("PLANPRINT_RENDERER_BINARY"),
		KillMode: getenv("PLANPRINT_KILL_MODE"),
		// Tier 3
		LogLevel:    getenv("PLANPRINT_LOG_LEVEL"),
		LogFormat:   getenv("PLANPRINT_LOG_FORMAT"),
		S3Bucket:    getenv("PLANPRINT_S3_BUCKET"),
		S3Endpoint:  getenv("PLANPRINT_S3_ENDPOINT"),
		S3Region:    getenv("PLANPRINT_S3_REGION"),
		S3AccessKey: getenv("PLANPRINT_S3_ACCESS_KEY"),
		S3SecretKey: getenv("PLANPRINT_S3_SECRET_KEY"),
	}

	var warnings []string
	parseDuration := func(name string, dst *time.Duration) {
		v := getenv(name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			warnings = append(warnings, fmt.Sprintf("ignoring %s=%q: want a positive duration like 45s", name, v))
			return
		}
		*dst = d
	}
	parseDuration("PLANPRINT_TIMEOUT", &cfg.Timeout)
	parseDuration("PLANPRINT_DELAY", &cfg.Delay)

	if v := getenv("PLANPRINT_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			warnings = append(warnings, fmt.Sprintf("ignoring PLANPRINT_POOL_SIZE=%q: want a positive integer", v))
		} else {
			cfg.PoolSize = n
		}
	}

	return cfg, warnings
}

// warnUnknownEnvVars prints warnings for unrecognized PLANPRINT_* variables.
// Helps catch typos like PLANPRINT_TIMOUT.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overrides cfg with every variable that is set.
// Precedence: CLI flags > env vars > config file > defaults
// (flags are applied afterwards by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	// Tier 1
	setString(&cfg.Server.Addr, env.Addr)
	setString(&cfg.Server.WebRoot, env.WebRoot)
	setString(&cfg.Planner.Upstream, env.Upstream)
	setString(&cfg.Auth.Secret, env.Secret)
	if env.Timeout > 0 {
		cfg.Renderer.Timeout = env.Timeout
	}

	// Tier 2
	setString(&cfg.Server.BaseURL, env.BaseURL)
	setString(&cfg.Renderer.Backend, env.Backend)
	setString(&cfg.Renderer.Binary, env.Binary)
	setString(&cfg.Renderer.KillMode, env.KillMode)
	if env.Delay > 0 {
		cfg.Renderer.Delay = env.Delay
	}
	if env.PoolSize > 0 {
		cfg.Renderer.PoolSize = env.PoolSize
	}

	// Tier 3
	setString(&cfg.Logging.Level, env.LogLevel)
	setString(&cfg.Logging.Format, env.LogFormat)
	if env.S3Bucket != "" {
		cfg.Storage.S3.Enabled = true
		cfg.Storage.S3.Bucket = env.S3Bucket
	}
	setString(&cfg.Storage.S3.Endpoint, env.S3Endpoint)
	setString(&cfg.Storage.S3.Region, env.S3Region)
	setString(&cfg.Storage.S3.AccessKey, env.S3AccessKey)
	setString(&cfg.Storage.S3.SecretKey, env.S3SecretKey)
}

// resolveConfig builds the effective configuration: the config file named
// by path (or PLANPRINT_CONFIG) layered over defaults, then environment
// overrides. The result is not validated; callers validate after applying
// their flags.
func resolveConfig(path string, env *Environment) (*config.Config, error) {
	warnUnknownEnvVars(env.Stderr, env.Environ())
	envCfg, warnings := loadEnvConfig(env.Getenv)
	for _, w := range warnings {
		fmt.Fprintf(env.Stderr, "warning: %s\n", w)
	}

	if path == "" {
		path = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !strings.ContainsAny(path, `/\`) {
				return nil, withHint(err, hints.ForConfigNotFound(config.SearchPaths(path)))
			}
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level and
// --log-format overrides the configured encoder.
func newLogger(cfg *config.Config, common *commonFlags) (*zap.Logger, error) {
	lc := cfg.Logging.Logger()
	if common.verbose {
		lc.Level = "debug"
	}
	if common.logFormat != "" {
		lc.Format = common.logFormat
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("%w: logging: %v", config.ErrInvalidField, err)
	}
	return logger, nil
}
