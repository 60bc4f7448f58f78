package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits config input to prevent memory exhaustion (1MB).
const MaxInputSize = 1 << 20

var (
	ErrEmptyInput    = errors.New("config input is empty")
	ErrInputTooLarge = errors.New("config input exceeds maximum size")
)

// decodeStrict parses data into v and rejects unknown fields, so typos in
// key names surface as errors instead of silently keeping defaults.
func decodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyInput
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return nil
}

// Marshal renders cfg as YAML, e.g. for `planprint serve --print-config`.
// Secrets are masked.
func Marshal(cfg *Config) ([]byte, error) {
	c := *cfg
	c.Auth.Secret = mask(c.Auth.Secret)
	c.Storage.S3.SecretKey = mask(c.Storage.S3.SecretKey)
	out, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}
	return out, nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
