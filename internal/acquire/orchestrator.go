// Package acquire composes native text-layer extraction, page rasterization
// and OCR into a deterministic fallback chain producing a single text blob
// per input file.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/pdf"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Method tags how the text of a file was acquired.
type Method string

const (
	MethodNativeText Method = "native-text"
	MethodPDFOCR     Method = "pdf-ocr-fallback"
	MethodImageOCR   Method = "direct-image-ocr"
)

// Acquisition failure sentinels. Messages are user-safe; the pipeline maps
// them onto its error taxonomy.
var (
	ErrEmptyFile = errors.New("file is empty")
	ErrNoText    = errors.New("no usable text layer and OCR is not enabled")
	ErrOCRNoText = errors.New("optical recognition produced no text")
	ErrBadImage  = errors.New("image format not recognized")
)

// AcquiredText is the output of a successful acquisition. It is consumed
// once by the extraction stage and not retained beyond the request.
type AcquiredText struct {
	SourceName string
	Text       string
	Method     Method
	CharCount  int
}

// DefaultSufficiencyThreshold is the minimum trimmed character count below
// which native text is treated as noise from a scanned document rather than
// a genuine text layer.
const DefaultSufficiencyThreshold = 50

// DefaultOCRPageBudget bounds how many leading pages are rasterized for
// OCR; recognition is far more expensive than a text-layer read.
const DefaultOCRPageBudget = 3

// DefaultOCRCharBudget stops per-page OCR early once enough text has been
// recognized for field extraction.
const DefaultOCRCharBudget = 4000

// Config carries the empirically chosen acquisition tunables.
type Config struct {
	SufficiencyThreshold int
	OCRPageBudget        int
	OCRCharBudget        int
}

// DefaultConfig returns the default acquisition tunables.
func DefaultConfig() Config {
	return Config{
		SufficiencyThreshold: DefaultSufficiencyThreshold,
		OCRPageBudget:        DefaultOCRPageBudget,
		OCRCharBudget:        DefaultOCRCharBudget,
	}
}

// textLayerReader and pageRenderer are satisfied by the internal/pdf types;
// they exist so tests can substitute fakes.
type textLayerReader interface {
	Extract(data []byte, maxPages int) (string, int, error)
}

type pageRenderer interface {
	RenderPages(data []byte, maxPages int) ([]image.Image, error)
}

// Request describes one acquisition attempt. The engine is supplied per
// call so the pipeline can provision one recognizer per worker.
type Request struct {
	Name       string
	Data       []byte
	PDF        bool
	MaxPages   int
	OCREnabled bool
	OCRTimeout time.Duration
	Engine     ocr.Engine
}

// Orchestrator runs the fallback chain: native text first, OCR only on
// demand. It holds no per-request state and is safe for concurrent use as
// long as engines are not shared between callers.
type Orchestrator struct {
	textLayer  textLayerReader
	rasterizer pageRenderer
	cfg        Config
	logger     *slog.Logger
}

// NewOrchestrator wires the default PDF readers with the given tunables.
func NewOrchestrator(cfg Config, rasterScale float64, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SufficiencyThreshold <= 0 {
		cfg.SufficiencyThreshold = DefaultSufficiencyThreshold
	}
	if cfg.OCRPageBudget <= 0 {
		cfg.OCRPageBudget = DefaultOCRPageBudget
	}
	if cfg.OCRCharBudget <= 0 {
		cfg.OCRCharBudget = DefaultOCRCharBudget
	}
	r := pdf.NewRasterizer()
	if rasterScale > 0 {
		r.Scale = rasterScale
	}
	return &Orchestrator{
		textLayer:  pdf.NewTextLayerExtractor(),
		rasterizer: r,
		cfg:        cfg,
		logger:     logger,
	}
}

// Acquire yields a text blob and its acquisition method for one input, or
// an error describing why every applicable strategy failed.
func (o *Orchestrator) Acquire(ctx context.Context, req Request) (AcquiredText, error) {
	if len(req.Data) == 0 {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrEmptyFile)
	}

	if !req.PDF {
		return o.directImageOCR(ctx, req)
	}

	text, pages, err := o.textLayer.Extract(req.Data, req.MaxPages)
	trimmed := strings.TrimSpace(text)
	switch {
	case err == nil && len(trimmed) >= o.cfg.SufficiencyThreshold:
		o.logger.Debug("native text layer sufficient",
			"file", req.Name, "pages", pages, "chars", len(trimmed))
		return acquired(req.Name, trimmed, MethodNativeText), nil
	case err != nil:
		o.logger.Debug("native text extraction failed", "file", req.Name, "error", err)
	default:
		// Sparse native text from a scanned document is usually garbage;
		// treat it as insufficient and fall through rather than return it.
		o.logger.Debug("native text below sufficiency threshold",
			"file", req.Name, "chars", len(trimmed), "threshold", o.cfg.SufficiencyThreshold)
	}

	if !req.OCREnabled || req.Engine == nil {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrNoText)
	}

	return o.pdfOCR(ctx, req)
}

// pdfOCR rasterizes the leading pages and recognizes them sequentially,
// stopping early once the character budget is reached. The whole attempt
// shares one deadline.
func (o *Orchestrator) pdfOCR(ctx context.Context, req Request) (AcquiredText, error) {
	maxPages := o.cfg.OCRPageBudget
	if req.MaxPages > 0 && req.MaxPages < maxPages {
		maxPages = req.MaxPages
	}

	images, err := o.rasterizer.RenderPages(req.Data, maxPages)
	if err != nil {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, err)
	}

	// The timeout covers the whole multi-page attempt, not each page.
	deadline := time.Time{}
	if req.OCRTimeout > 0 {
		deadline = time.Now().Add(req.OCRTimeout)
	}

	var b strings.Builder
	for _, img := range images {
		remaining := time.Duration(0)
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ocr.ErrTimeout)
			}
		}
		text, err := ocr.RecognizeWithDeadline(ctx, req.Engine, img, remaining)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = ocr.ErrTimeout
			}
			if errors.Is(err, ocr.ErrTimeout) {
				return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ocr.ErrTimeout)
			}
			o.logger.Debug("page recognition failed", "file", req.Name, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		if b.Len() >= o.cfg.OCRCharBudget {
			break
		}
	}

	trimmed := strings.TrimSpace(b.String())
	if trimmed == "" {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrOCRNoText)
	}
	return acquired(req.Name, trimmed, MethodPDFOCR), nil
}

// directImageOCR recognizes an uploaded raster image, same timeout
// discipline, no rasterization step.
func (o *Orchestrator) directImageOCR(ctx context.Context, req Request) (AcquiredText, error) {
	if req.Engine == nil {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrNoText)
	}

	img, _, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrBadImage)
	}

	text, err := ocr.RecognizeWithDeadline(ctx, req.Engine, img, req.OCRTimeout)
	if err != nil {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, err)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return AcquiredText{}, fmt.Errorf("%s: %w", req.Name, ErrOCRNoText)
	}
	return acquired(req.Name, trimmed, MethodImageOCR), nil
}

func acquired(name, text string, method Method) AcquiredText {
	return AcquiredText{
		SourceName: name,
		Text:       text,
		Method:     method,
		CharCount:  len(text),
	}
}
