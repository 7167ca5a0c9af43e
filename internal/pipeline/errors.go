package pipeline

import (
	"errors"

	"github.com/invopipe/invopipe/internal/acquire"
	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/pdf"
)

// Batch-level failures abort the whole request before any file is touched.
// They are distinct from per-file errors, which are recorded inside the
// corresponding ExtractionResult.
var (
	ErrEmptyBatch    = errors.New("batch contains no files")
	ErrBatchTooLarge = errors.New("batch exceeds the file limit for this tier")
)

// Per-file error kinds. The kind is machine-readable; Message stays
// user-safe and never embeds internal paths or stack detail.
const (
	KindValidation   = "validation"
	KindAcquisition  = "acquisition"
	KindCorruptedPDF = "corrupted_pdf"
	KindOCRTimeout   = "ocr_timeout"
	KindEmptyFile    = "empty_file"
)

// FileError is the per-file failure record attached to an ExtractionResult.
type FileError struct {
	Kind    string
	Message string
}

func (e FileError) Error() string { return e.Message }

// classifyError maps acquisition failures onto the per-file error taxonomy.
func classifyError(err error) FileError {
	switch {
	case errors.Is(err, acquire.ErrEmptyFile):
		return FileError{Kind: KindEmptyFile, Message: "file is empty"}
	case errors.Is(err, ocr.ErrTimeout):
		return FileError{Kind: KindOCRTimeout, Message: "OCR timed out"}
	case errors.Is(err, pdf.ErrCorrupt):
		return FileError{Kind: KindCorruptedPDF, Message: "PDF format not supported or corrupted"}
	case errors.Is(err, acquire.ErrNoText):
		return FileError{Kind: KindAcquisition, Message: "no usable text layer and OCR is not enabled"}
	case errors.Is(err, acquire.ErrOCRNoText):
		return FileError{Kind: KindAcquisition, Message: "optical recognition produced no text"}
	case errors.Is(err, acquire.ErrBadImage):
		return FileError{Kind: KindValidation, Message: "image format not recognized"}
	default:
		return FileError{Kind: KindAcquisition, Message: "text acquisition failed"}
	}
}
