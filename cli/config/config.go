package config

import (
	"fmt"
	"time"
)

// Config represents a meeting-summary.yaml configuration file.
// All values are optional and act as defaults for run flags.
// CLI flags always override config values.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Upload  UploadConfig  `yaml:"upload"`
	Capture CaptureConfig `yaml:"capture"`
	Notify  NotifyConfig  `yaml:"notify"`
	TUI     bool          `yaml:"tui"`
}

// BackendConfig holds backend connection defaults from the config file.
type BackendConfig struct {
	URL           string   `yaml:"url"`
	UploadTimeout Duration `yaml:"upload_timeout"`
}

// UploadConfig selects how recordings reach the backend.
type UploadConfig struct {
	// Driver is the upload transport: http (default) or s3.
	Driver string   `yaml:"driver"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3 upload defaults from the config file.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// CaptureConfig holds stream capture defaults from the config file.
// An empty Dir disables capture.
type CaptureConfig struct {
	Dir string `yaml:"dir"`
}

// NotifyConfig holds notification adapter defaults from the config file.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
