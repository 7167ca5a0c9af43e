// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invopipe/invopipe/internal/acquire"
	"github.com/invopipe/invopipe/internal/config"
	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/pipeline"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	coordinator *pipeline.Coordinator
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	defaultTier string
	defaultMode string
	logger      *slog.Logger
}

// Config holds server construction parameters.
type Config struct {
	CORSOrigin         string
	MaxUploadMB        int64
	DefaultTier        string
	DefaultMode        string
	RateLimitPerMinute int
	DailyRequestQuota  int
	DailyUploadQuotaMB int64
	Acquisition        config.AcquisitionConfig
	Workers            int
	OCRLanguage        string
	Logger             *slog.Logger
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// TierInfo describes one tier preset in the /tiers listing.
type TierInfo struct {
	Name             string   `json:"name"`
	MaxFilesPerBatch int      `json:"max_files_per_batch"`
	MaxFileSizeMB    int64    `json:"max_file_size_mb"`
	MaxPDFPages      int      `json:"max_pdf_pages"`
	DocumentTypes    []string `json:"document_types"`
	OCREnabled       bool     `json:"ocr_enabled"`
}

// TiersResponse is the /tiers payload.
type TiersResponse struct {
	Tiers []TierInfo `json:"tiers"`
	Count int        `json:"count"`
}

// ErrorResponse is the JSON body of any failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates an extraction server instance.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	orch := acquire.NewOrchestrator(acquire.Config{
		SufficiencyThreshold: cfg.Acquisition.SufficiencyThreshold,
		OCRPageBudget:        cfg.Acquisition.OCRPageBudget,
		OCRCharBudget:        cfg.Acquisition.OCRCharBudget,
	}, cfg.Acquisition.RasterScale, logger)

	engines := ocr.EngineFactory(func() (ocr.Engine, error) {
		return ocr.NewTesseract(cfg.OCRLanguage), nil
	})

	var limiter *RateLimiter
	if cfg.RateLimitPerMinute > 0 || cfg.DailyRequestQuota > 0 || cfg.DailyUploadQuotaMB > 0 {
		limiter = NewRateLimiter(cfg.RateLimitPerMinute, cfg.DailyRequestQuota, cfg.DailyUploadQuotaMB<<20)
	}

	return &Server{
		coordinator: pipeline.NewCoordinator(orch, engines, cfg.Workers, logger),
		rateLimiter: limiter,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		defaultTier: cfg.DefaultTier,
		defaultMode: cfg.DefaultMode,
		logger:      logger,
	}, nil
}

// SetupRoutes registers all endpoints on the given mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/tiers", s.corsMiddleware(s.tiersHandler))
	mux.HandleFunc("/extract", s.corsMiddleware(s.rateLimitMiddleware(s.extractHandler)))
	mux.Handle("/metrics", promhttp.Handler())
}
