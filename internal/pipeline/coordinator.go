// Package pipeline coordinates validation, text acquisition and field
// extraction over a batch of input files, preserving input order in the
// results regardless of processing concurrency.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/invopipe/invopipe/internal/acquire"
	"github.com/invopipe/invopipe/internal/invoice"
	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/tier"
)

// Mode selects the extraction strategy for a batch.
type Mode string

const (
	// ModeStandard runs the Standard Invoice pattern set on every file.
	ModeStandard Mode = "standard"
	// ModeEnhanced adds type-specific pattern sets after classification.
	ModeEnhanced Mode = "enhanced"
	// ModeOCR is ModeEnhanced plus OCR fallback for image-only inputs,
	// subject to the tier allowing OCR at all.
	ModeOCR Mode = "ocr"
)

// ParseMode resolves a mode flag value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStandard, ModeEnhanced, ModeOCR:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected standard, enhanced or ocr)", s)
	}
}

// DefaultWorkers is the pool size for text-layer batches. OCR batches are
// capped lower because each recognizer holds native resources.
const (
	DefaultWorkers = 4
	MaxOCRWorkers  = 2
)

// Acquirer is satisfied by acquire.Orchestrator; tests substitute stubs.
type Acquirer interface {
	Acquire(ctx context.Context, req acquire.Request) (acquire.AcquiredText, error)
}

// Coordinator drives batches through the pipeline. It is safe for
// concurrent use; per-worker state (OCR engines) is provisioned inside
// each run.
type Coordinator struct {
	acquirer Acquirer
	engines  ocr.EngineFactory
	parser   *invoice.LineItemParser
	workers  int
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator. A nil engine factory disables OCR
// regardless of tier and mode; workers <= 0 selects DefaultWorkers.
func NewCoordinator(acq Acquirer, engines ocr.EngineFactory, workers int, logger *slog.Logger) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		acquirer: acq,
		engines:  engines,
		parser:   invoice.NewLineItemParser(),
		workers:  workers,
		logger:   logger,
	}
}

type fileJob struct {
	index int
	input RawInput
}

type fileResult struct {
	index  int
	result invoice.ExtractionResult
}

// Process runs one batch under the given tier policy and mode. Batch-level
// gate violations return an error and no results; per-file failures are
// recorded in the corresponding result slot.
func (c *Coordinator) Process(ctx context.Context, inputs []RawInput, pol tier.Policy, mode Mode) (invoice.BatchResult, error) {
	start := time.Now()

	if len(inputs) == 0 {
		return invoice.BatchResult{}, ErrEmptyBatch
	}
	if pol.MaxFilesPerBatch > 0 && len(inputs) > pol.MaxFilesPerBatch {
		return invoice.BatchResult{}, fmt.Errorf(
			"%w: %d files, tier %s allows %d", ErrBatchTooLarge, len(inputs), pol.Name, pol.MaxFilesPerBatch)
	}
	batchSize.Observe(float64(len(inputs)))

	ocrActive := mode == ModeOCR && pol.OCREnabled && c.engines != nil

	workers := c.workers
	if ocrActive && workers > MaxOCRWorkers {
		workers = MaxOCRWorkers
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]invoice.ExtractionResult, len(inputs))
	if workers <= 1 {
		eng, err := c.provisionEngine(ocrActive)
		if err != nil {
			return invoice.BatchResult{}, err
		}
		if eng != nil {
			defer func() { _ = eng.Close() }()
		}
		for i, in := range inputs {
			results[i] = c.processFile(ctx, in, pol, mode, ocrActive, eng)
		}
	} else if err := c.runPool(ctx, inputs, pol, mode, ocrActive, workers, results); err != nil {
		return invoice.BatchResult{}, err
	}

	batch := invoice.BatchResult{
		Results:    results,
		TotalFiles: len(inputs),
		Timestamp:  time.Now().UTC(),
	}
	for i := range results {
		if !results[i].Failed() {
			batch.Succeeded++
		}
	}

	batchDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("batch complete",
		"files", batch.TotalFiles,
		"succeeded", batch.Succeeded,
		"tier", pol.Name,
		"mode", string(mode),
		"duration", time.Since(start))
	return batch, nil
}

// runPool fans the batch out over a fixed worker pool and reassembles
// results by input index.
func (c *Coordinator) runPool(ctx context.Context, inputs []RawInput, pol tier.Policy, mode Mode, ocrActive bool, workers int, out []invoice.ExtractionResult) error {
	jobs := make(chan fileJob, len(inputs))
	results := make(chan fileResult, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		eng, err := c.provisionEngine(ocrActive)
		if err != nil {
			close(jobs)
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if eng != nil {
				defer func() { _ = eng.Close() }()
			}
			for {
				select {
				case job, ok := <-jobs:
					if !ok {
						return
					}
					res := c.processFile(ctx, job.input, pol, mode, ocrActive, eng)
					select {
					case results <- fileResult{index: job.index, result: res}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- fileJob{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		out[res.index] = res.result
	}
	return ctx.Err()
}

func (c *Coordinator) provisionEngine(ocrActive bool) (ocr.Engine, error) {
	if !ocrActive {
		return nil, nil
	}
	eng, err := c.engines()
	if err != nil {
		return nil, fmt.Errorf("provision OCR engine: %w", err)
	}
	return eng, nil
}

// processFile validates, acquires and extracts one input. Every failure
// path produces a result with Error and ErrorKind set; data fields and
// Error are never both populated.
func (c *Coordinator) processFile(ctx context.Context, in RawInput, pol tier.Policy, mode Mode, ocrActive bool, eng ocr.Engine) invoice.ExtractionResult {
	res := invoice.ExtractionResult{Filename: in.Name}

	if ferr := c.validateFile(in, pol, ocrActive); ferr != nil {
		return failResult(in.Name, *ferr)
	}

	acq, err := c.acquirer.Acquire(ctx, acquire.Request{
		Name:       in.Name,
		Data:       in.Data,
		PDF:        in.IsPDF(),
		MaxPages:   pol.MaxPDFPages,
		OCREnabled: ocrActive,
		OCRTimeout: pol.OCRTimeout,
		Engine:     eng,
	})
	if err != nil {
		ferr := classifyError(err)
		c.logger.Warn("acquisition failed", "file", in.Name, "kind", ferr.Kind, "error", err)
		return failResult(in.Name, ferr)
	}
	acquisitionMethodTotal.WithLabelValues(string(acq.Method)).Inc()
	acquiredTextLength.Observe(float64(acq.CharCount))

	docType := invoice.Classify(acq.Text)

	// Unlicensed document types are not rejected; they fall back to the
	// standard pattern table, same as standard mode.
	useTypeRules := mode != ModeStandard && pol.Allows(docType)
	fields := invoice.ExtractFields(acq.Text, docType, useTypeRules)

	res.DocumentType = docType
	res.AcquisitionMethod = string(acq.Method)
	res.InvoiceNumber = fields.InvoiceNumber
	res.Date = fields.Date
	res.Vendor = fields.Vendor
	res.Subtotal = fields.Subtotal
	res.Tax = fields.Tax
	res.TaxRate = fields.TaxRate
	res.Total = fields.Total
	res.LineItems = c.parser.Parse(acq.Text)

	filesProcessedTotal.WithLabelValues("ok", string(docType)).Inc()
	return res
}

// validateFile enforces the per-file gate before any bytes are parsed.
func (c *Coordinator) validateFile(in RawInput, pol tier.Policy, ocrActive bool) *FileError {
	if pol.MaxFileSizeBytes > 0 && int64(len(in.Data)) > pol.MaxFileSizeBytes {
		return &FileError{
			Kind:    KindValidation,
			Message: fmt.Sprintf("file exceeds the %d MB limit for the %s tier", pol.MaxFileSizeBytes>>20, pol.Name),
		}
	}
	if ocrActive && pol.OCRMaxFileSizeBytes > 0 && int64(len(in.Data)) > pol.OCRMaxFileSizeBytes {
		return &FileError{
			Kind:    KindValidation,
			Message: fmt.Sprintf("file exceeds the %d MB OCR limit for the %s tier", pol.OCRMaxFileSizeBytes>>20, pol.Name),
		}
	}
	if !in.IsPDF() {
		if !in.IsRasterImage() {
			return &FileError{Kind: KindValidation, Message: "unsupported file type"}
		}
		if !ocrActive {
			return &FileError{Kind: KindValidation, Message: "image files require OCR mode"}
		}
	}
	return nil
}

func failResult(name string, ferr FileError) invoice.ExtractionResult {
	filesProcessedTotal.WithLabelValues("error", ferr.Kind).Inc()
	return invoice.ExtractionResult{
		Filename:  name,
		Error:     ferr.Message,
		ErrorKind: ferr.Kind,
	}
}
