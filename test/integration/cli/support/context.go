// Package support holds the shared state and step definitions for the
// godog integration suite. Scenarios drive the real coordinator, export
// writers and HTTP server in-process; only text acquisition is scripted
// so the suite runs without a tesseract installation.
package support

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"

	"github.com/invopipe/invopipe/internal/invoice"
	"github.com/invopipe/invopipe/internal/pipeline"
)

// TestContext carries scenario state between steps.
type TestContext struct {
	TempDir string

	// Batch state
	Inputs   []pipeline.RawInput
	Scripted map[string]string
	TierName string
	ModeName string

	LastBatch    invoice.BatchResult
	LastBatchErr error
	LastOutput   string

	// Server state
	HTTPServer         *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastContentType    string

	Logger *slog.Logger
}

// NewTestContext creates a fresh context with sane batch defaults.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "invopipe-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		TempDir:  tempDir,
		TierName: "free",
		ModeName: "standard",
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}, nil
}

// Cleanup tears down the scenario state.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}
