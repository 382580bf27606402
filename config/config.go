package config

import (
	"fmt"
	"sort"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/observability"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultEnvironment = "development"
	DefaultSampleRate  = 16000
	DefaultCaptureTool = "sox"
)

// Config is the configuration of a speechkit program.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Backend names the entry of Backends used when none is chosen
	// explicitly.
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Backends holds the factory configuration of each backend by name.
	Backends map[string]map[string]any `yaml:"backends" mapstructure:"backends"`

	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	Capture       CaptureConfig       `yaml:"capture" mapstructure:"capture"`
}

// TelemetryConfig switches OpenTelemetry export on.
type TelemetryConfig struct {
	Enabled bool                       `yaml:"enabled" mapstructure:"enabled"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// TranscriptionConfig holds per-call defaults.
type TranscriptionConfig struct {
	Model      string `yaml:"model" mapstructure:"model"`
	Language   string `yaml:"language" mapstructure:"language"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0"`
	Stream     bool   `yaml:"stream" mapstructure:"stream"`
}

// CaptureConfig configures live microphone capture.
type CaptureConfig struct {
	Tool       string `yaml:"tool" mapstructure:"tool"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.Environment == DefaultEnvironment {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()

	if c.Backend == "" && len(c.Backends) == 1 {
		for name := range c.Backends {
			c.Backend = name
		}
	}
	if c.Transcription.SampleRate == 0 {
		c.Transcription.SampleRate = DefaultSampleRate
	}
	if c.Capture.Tool == "" {
		c.Capture.Tool = DefaultCaptureTool
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = c.Transcription.SampleRate
	}

	if c.Telemetry.Tracing.ServiceName == "" {
		def := observability.DefaultTracerConfig(c.Name)
		def.Environment = c.Environment
		if c.Version != "" {
			def.ServiceVersion = c.Version
		}
		c.Telemetry.Tracing = mergeTracer(def, c.Telemetry.Tracing)
	}
	if c.Telemetry.Metrics.ServiceName == "" {
		def := observability.DefaultMeterConfig(c.Name)
		def.Environment = c.Environment
		if c.Version != "" {
			def.ServiceVersion = c.Version
		}
		c.Telemetry.Metrics = mergeMeter(def, c.Telemetry.Metrics)
	}
}

// Validate checks struct tags, the logging section and that the default
// backend is configured.
func (c *Config) Validate() error {
	fields := structErrors(c)
	if err := c.Logging.Validate(); err != nil {
		fields = append(fields, FieldError{Field: "logging", Message: err.Error()})
	}
	if c.Backend != "" {
		if _, ok := c.Backends[c.Backend]; !ok {
			fields = append(fields, FieldError{
				Field:   "backend",
				Message: fmt.Sprintf("has no backends.%s section (configured: %v)", c.Backend, c.BackendNames()),
			})
		}
	}
	return fieldsError(fields)
}

// BackendNames returns the configured backend names in sorted order.
func (c *Config) BackendNames() []string {
	names := make([]string, 0, len(c.Backends))
	for name := range c.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackendConfig returns the factory configuration of the named backend.
func (c *Config) BackendConfig(name string) (map[string]any, error) {
	cfg, ok := c.Backends[name]
	if !ok {
		return nil, apperrors.NotFound("backend config", name)
	}
	return cfg, nil
}

func mergeTracer(def, cfg observability.TracerConfig) observability.TracerConfig {
	if cfg.Endpoint != "" {
		def.Endpoint = cfg.Endpoint
	}
	if cfg.ServiceVersion != "" {
		def.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.Environment != "" {
		def.Environment = cfg.Environment
	}
	if cfg.SampleRate > 0 {
		def.SampleRate = cfg.SampleRate
	}
	def.Insecure = def.Insecure || cfg.Insecure
	return def
}

func mergeMeter(def, cfg observability.MeterConfig) observability.MeterConfig {
	if cfg.Endpoint != "" {
		def.Endpoint = cfg.Endpoint
	}
	if cfg.ServiceVersion != "" {
		def.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.Environment != "" {
		def.Environment = cfg.Environment
	}
	if cfg.Interval > 0 {
		def.Interval = cfg.Interval
	}
	def.Insecure = def.Insecure || cfg.Insecure
	return def
}
