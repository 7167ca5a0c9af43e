// Package config holds the application configuration, loadable from
// configuration files, environment variables and command-line flags.
package config

import (
	"fmt"

	"github.com/invopipe/invopipe/internal/pipeline"
	"github.com/invopipe/invopipe/internal/tier"
)

// Config is the complete configuration for the invopipe application,
// covering the extract and serve commands.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Tier string `mapstructure:"tier" yaml:"tier" json:"tier"`
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`

	Acquisition AcquisitionConfig `mapstructure:"acquisition" yaml:"acquisition" json:"acquisition"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	OCR         OCRConfig         `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
}

// AcquisitionConfig contains the text acquisition tunables. These are
// empirically chosen and deliberately configurable rather than fixed.
type AcquisitionConfig struct {
	SufficiencyThreshold int     `mapstructure:"sufficiency_threshold" yaml:"sufficiency_threshold" json:"sufficiency_threshold"`
	OCRPageBudget        int     `mapstructure:"ocr_page_budget" yaml:"ocr_page_budget" json:"ocr_page_budget"`
	OCRCharBudget        int     `mapstructure:"ocr_char_budget" yaml:"ocr_char_budget" json:"ocr_char_budget"`
	RasterScale          float64 `mapstructure:"raster_scale" yaml:"raster_scale" json:"raster_scale"`
}

// PipelineConfig contains batch processing settings.
type PipelineConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// OCRConfig contains recognition settings.
type OCRConfig struct {
	Language string `mapstructure:"language" yaml:"language" json:"language"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Rate limiting is disabled when all three ceilings are zero.
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	DailyRequestQuota  int   `mapstructure:"daily_request_quota" yaml:"daily_request_quota" json:"daily_request_quota"`
	DailyUploadQuotaMB int64 `mapstructure:"daily_upload_quota_mb" yaml:"daily_upload_quota_mb" json:"daily_upload_quota_mb"`
}

// DefaultConfig returns the configuration used when no file, environment
// variable or flag overrides a value.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Tier:     "free",
		Mode:     string(pipeline.ModeStandard),
		Acquisition: AcquisitionConfig{
			SufficiencyThreshold: 50,
			OCRPageBudget:        3,
			OCRCharBudget:        4000,
			RasterScale:          2.0,
		},
		Pipeline: PipelineConfig{
			Workers: pipeline.DefaultWorkers,
		},
		OCR: OCRConfig{
			Language: "eng",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:               "localhost",
			Port:               8080,
			MaxUploadMB:        100,
			TimeoutSec:         120,
			ShutdownTimeout:    10,
			RateLimitPerMinute: 0,
			DailyRequestQuota:  0,
			DailyUploadQuotaMB: 0,
		},
	}
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
	"csv":  true,
	"xlsx": true,
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", c.LogLevel)
	}

	if _, err := tier.ByName(c.Tier); err != nil {
		return err
	}
	if _, err := pipeline.ParseMode(c.Mode); err != nil {
		return err
	}

	if c.Acquisition.SufficiencyThreshold < 0 {
		return fmt.Errorf("acquisition.sufficiency_threshold must not be negative")
	}
	if c.Acquisition.OCRPageBudget < 1 {
		return fmt.Errorf("acquisition.ocr_page_budget must be at least 1")
	}
	if c.Acquisition.OCRCharBudget < 1 {
		return fmt.Errorf("acquisition.ocr_char_budget must be at least 1")
	}
	if c.Acquisition.RasterScale <= 0 {
		return fmt.Errorf("acquisition.raster_scale must be positive")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}

	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format %q (expected text, json, csv or xlsx)", c.Output.Format)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be at least 1")
	}

	return nil
}
