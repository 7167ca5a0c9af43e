package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "free", cfg.Tier)
	assert.Equal(t, "standard", cfg.Mode)
	assert.Equal(t, 50, cfg.Acquisition.SufficiencyThreshold)
	assert.Equal(t, 3, cfg.Acquisition.OCRPageBudget)
	assert.Equal(t, 4000, cfg.Acquisition.OCRCharBudget)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		substr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log level"},
		{"bad tier", func(c *Config) { c.Tier = "platinum" }, "tier"},
		{"bad mode", func(c *Config) { c.Mode = "turbo" }, "mode"},
		{"negative threshold", func(c *Config) { c.Acquisition.SufficiencyThreshold = -1 }, "sufficiency_threshold"},
		{"zero page budget", func(c *Config) { c.Acquisition.OCRPageBudget = 0 }, "ocr_page_budget"},
		{"zero char budget", func(c *Config) { c.Acquisition.OCRCharBudget = 0 }, "ocr_char_budget"},
		{"zero raster scale", func(c *Config) { c.Acquisition.RasterScale = 0 }, "raster_scale"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"bad format", func(c *Config) { c.Output.Format = "pdf" }, "format"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestLoaderDefaults(t *testing.T) {
	l := NewLoader()
	l.setDefaults()

	v := l.GetViper()
	assert.Equal(t, 50, v.GetInt("acquisition.sufficiency_threshold"))
	assert.Equal(t, "free", v.GetString("tier"))
	assert.Equal(t, "localhost", v.GetString("server.host"))
}
