package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/invopipe/invopipe/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for invoice extraction",
	Long: `Start an HTTP server exposing the extraction pipeline.

Endpoints:
  GET  /health   - health check
  GET  /tiers    - tier presets and their limits
  POST /extract  - multipart batch extraction (fields: files, tier, mode, format)
  GET  /metrics  - Prometheus metrics

Examples:
  invopipe serve
  invopipe serve --port 9090 --default-tier pro
  invopipe serve --host 0.0.0.0 --max-upload-size 200`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	maxUploadMB := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	timeout := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetInt("timeout")
	}
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	rateLimitPerMinute := cfg.Server.RateLimitPerMinute
	if cmd.Flags().Changed("rate-limit") {
		rateLimitPerMinute, _ = cmd.Flags().GetInt("rate-limit")
	}
	dailyRequestQuota := cfg.Server.DailyRequestQuota
	if cmd.Flags().Changed("daily-request-quota") {
		dailyRequestQuota, _ = cmd.Flags().GetInt("daily-request-quota")
	}
	dailyUploadQuotaMB := cfg.Server.DailyUploadQuotaMB
	if cmd.Flags().Changed("daily-upload-quota") {
		v, _ := cmd.Flags().GetInt("daily-upload-quota")
		dailyUploadQuotaMB = int64(v)
	}
	corsOrigin, _ := cmd.Flags().GetString("cors-origin")
	defaultTier, _ := cmd.Flags().GetString("default-tier")
	defaultMode, _ := cmd.Flags().GetString("default-mode")
	language, _ := cmd.Flags().GetString("language")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	srv, err := server.NewServer(server.Config{
		CORSOrigin:         corsOrigin,
		MaxUploadMB:        int64(maxUploadMB),
		DefaultTier:        defaultTier,
		DefaultMode:        defaultMode,
		RateLimitPerMinute: rateLimitPerMinute,
		DailyRequestQuota:  dailyRequestQuota,
		DailyUploadQuotaMB: dailyUploadQuotaMB,
		Acquisition:        cfg.Acquisition,
		Workers:            cfg.Pipeline.Workers,
		OCRLanguage:        language,
		Logger:             slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(timeout) * time.Second,
		WriteTimeout:      time.Duration(timeout) * time.Second,
	}

	go func() {
		slog.Info("Starting extraction server", "host", host, "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	slog.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 100, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("rate-limit", 0, "per-client requests per minute (0 disables)")
	serveCmd.Flags().Int("daily-request-quota", 0, "per-client requests per day (0 disables)")
	serveCmd.Flags().Int("daily-upload-quota", 0, "per-client upload quota in MB per day (0 disables)")
	serveCmd.Flags().String("default-tier", "free", "tier applied when a request names none")
	serveCmd.Flags().String("default-mode", "standard", "mode applied when a request names none")
	serveCmd.Flags().String("language", "eng", "OCR language")
}
