// Package config loads the planprint server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"

	planprint "github.com/alnah/go-planprint"
	"github.com/alnah/go-planprint/internal/artifact"
	"github.com/alnah/go-planprint/internal/auth"
	"github.com/alnah/go-planprint/internal/callback"
	"github.com/alnah/go-planprint/internal/logging"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidField    = errors.New("invalid config field")
)

// AppName names the user config directory (~/.config/go-planprint).
const AppName = "go-planprint"

// Defaults applied by DefaultConfig.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultTokenTTL        = time.Hour
)

// Config holds the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Renderer RendererConfig `yaml:"renderer"`
	Callback CallbackConfig `yaml:"callback"`
	Auth     AuthConfig     `yaml:"auth"`
	Planner  PlannerConfig  `yaml:"planner"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig defines the HTTP listener and the served web root.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	WebRoot         string        `yaml:"webRoot"`
	BaseURL         string        `yaml:"baseURL"` // Empty = the serving connection's local address
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RendererConfig defines how captures are produced.
type RendererConfig struct {
	Backend        string        `yaml:"backend"`  // "exec" or "rod"
	Binary         string        `yaml:"binary"`   // exec backend only
	KillMode       string        `yaml:"killMode"` // "process-group" or "name"
	Timeout        time.Duration `yaml:"timeout"`
	Delay          time.Duration `yaml:"delay"`
	PoolSize       int           `yaml:"poolSize"` // 0 = from GOMAXPROCS
	ComputedHeight bool          `yaml:"computedHeight"`
	Strict         bool          `yaml:"strict"`
	KeepOverlays   bool          `yaml:"keepOverlays"`
	OverlayDir     string        `yaml:"overlayDir"`
	BaseStylesheet string        `yaml:"baseStylesheet"` // Empty = <webRoot>/planner/css/print.css
	AssetsDir      string        `yaml:"assetsDir"`      // Custom styles/print.css, installed when the web root lacks one
}

// CallbackConfig defines single-use callback lifetime.
type CallbackConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AuthConfig defines bearer token checks on the print API.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Roles    []string      `yaml:"roles"` // Any of these is required; empty = any authenticated user
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// PlannerConfig locates the planning view captures are taken of.
type PlannerConfig struct {
	Upstream string   `yaml:"upstream"`
	View     string   `yaml:"view"`
	Locales  []string `yaml:"locales"` // BCP 47; the first is the fallback
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StorageConfig defines where artifacts are published.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config mirrors artifact.S3Config.
type S3Config struct {
	Enabled       bool          `yaml:"enabled"`
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	UseSSL        bool          `yaml:"useSSL"`
	UsePathStyle  bool          `yaml:"usePathStyle"`
	PresignExpiry time.Duration `yaml:"presignExpiry"`
	KeepLocal     bool          `yaml:"keepLocal"`
}

// DefaultConfig returns a configuration that serves ./web on :8080 with the
// exec backend.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			WebRoot:         "web",
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Renderer: RendererConfig{
			Backend:  string(planprint.BackendExec),
			Binary:   planprint.DefaultRendererBinary,
			KillMode: string(planprint.KillProcessGroup),
			Timeout:  planprint.DefaultTimeout,
			Delay:    planprint.DefaultCaptureDelay,
		},
		Callback: CallbackConfig{TTL: callback.DefaultTTL},
		Auth: AuthConfig{
			Issuer:   auth.DefaultIssuer,
			TokenTTL: DefaultTokenTTL,
		},
		Planner: PlannerConfig{
			View:    planprint.DefaultView,
			Locales: []string{"en"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Storage: StorageConfig{
			S3: S3Config{PresignExpiry: artifact.DefaultPresignExpiration},
		},
	}
}

// Validate checks value ranges and cross-field requirements.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "required")
	}
	if c.Server.WebRoot == "" {
		return invalid("server.webRoot", "required")
	}
	if c.Server.BaseURL != "" {
		if err := validateHTTPURL(c.Server.BaseURL); err != nil {
			return invalid("server.baseURL", err.Error())
		}
	}
	if c.Server.ShutdownTimeout < 0 {
		return invalid("server.shutdownTimeout", "must not be negative")
	}

	switch planprint.Backend(c.Renderer.Backend) {
	case planprint.BackendExec:
		if c.Renderer.Binary == "" {
			return invalid("renderer.binary", "required for the exec backend")
		}
	case planprint.BackendRod:
	default:
		return invalid("renderer.backend", fmt.Sprintf("%q (must be exec or rod)", c.Renderer.Backend))
	}
	switch planprint.KillMode(c.Renderer.KillMode) {
	case planprint.KillProcessGroup, planprint.KillByName:
	default:
		return invalid("renderer.killMode", fmt.Sprintf("%q (must be process-group or name)", c.Renderer.KillMode))
	}
	if c.Renderer.Timeout <= 0 {
		return invalid("renderer.timeout", "must be positive")
	}
	if c.Renderer.Delay < 0 {
		return invalid("renderer.delay", "must not be negative")
	}
	if c.Renderer.Delay >= c.Renderer.Timeout {
		return invalid("renderer.delay", fmt.Sprintf("%v leaves no time before the %v timeout", c.Renderer.Delay, c.Renderer.Timeout))
	}
	if c.Renderer.PoolSize < 0 || c.Renderer.PoolSize > planprint.MaxPoolSize {
		return invalid("renderer.poolSize", fmt.Sprintf("%d (must be 0-%d)", c.Renderer.PoolSize, planprint.MaxPoolSize))
	}

	if c.Callback.TTL <= 0 {
		return invalid("callback.ttl", "must be positive")
	}
	if c.Callback.TTL < c.Renderer.Timeout {
		return invalid("callback.ttl", fmt.Sprintf("%v is shorter than the renderer timeout", c.Callback.TTL))
	}

	if c.Auth.Secret != "" && len(c.Auth.Secret) < auth.MinSecretLength {
		return invalid("auth.secret", fmt.Sprintf("must be at least %d bytes", auth.MinSecretLength))
	}
	if c.Auth.TokenTTL < 0 {
		return invalid("auth.tokenTTL", "must not be negative")
	}

	if c.Planner.Upstream != "" {
		if err := validateHTTPURL(c.Planner.Upstream); err != nil {
			return invalid("planner.upstream", err.Error())
		}
	}
	if _, err := c.Planner.Tags(); err != nil {
		return err
	}

	if err := logging.ValidateFormat(c.Logging.Format); err != nil {
		return invalid("logging.format", err.Error())
	}

	if c.Storage.S3.Enabled {
		if err := c.Storage.S3.Artifact().Validate(); err != nil {
			return invalid("storage.s3", err.Error())
		}
	}
	return nil
}

// Tags parses the configured locales.
func (p PlannerConfig) Tags() ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(p.Locales))
	for i, l := range p.Locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, invalid(fmt.Sprintf("planner.locales[%d]", i), fmt.Sprintf("%q: %v", l, err))
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Logger converts to the logging package configuration.
func (l LoggingConfig) Logger() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, Output: l.Output}
}

// Artifact converts to the artifact package configuration.
func (s S3Config) Artifact() artifact.S3Config {
	return artifact.S3Config{
		Endpoint:          s.Endpoint,
		Region:            s.Region,
		Bucket:            s.Bucket,
		Prefix:            s.Prefix,
		AccessKey:         s.AccessKey,
		SecretKey:         s.SecretKey,
		UseSSL:            s.UseSSL,
		UsePathStyle:      s.UsePathStyle,
		PresignExpiration: s.PresignExpiry,
		KeepLocal:         s.KeepLocal,
	}
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidField, field, reason)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q must be http(s)://host[:port]", raw)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name on top of
// DefaultConfig. If nameOrPath contains a path separator it is a file path,
// otherwise a name searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists where a config name is looked up, in order:
// ./{name}.yaml, ./{name}.yml, then the same under ~/.config/go-planprint/.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, AppName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing SearchPaths entry.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
