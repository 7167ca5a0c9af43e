package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"
)

// RawInput is one file handed to the coordinator. MediaType is optional;
// when empty the type is inferred from the filename extension and, for
// PDFs, the leading magic bytes.
type RawInput struct {
	Name      string
	Data      []byte
	MediaType string
}

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the input should be routed through the PDF
// acquisition chain.
func (in RawInput) IsPDF() bool {
	switch {
	case in.MediaType == "application/pdf":
		return true
	case strings.EqualFold(filepath.Ext(in.Name), ".pdf"):
		return true
	default:
		return bytes.HasPrefix(in.Data, pdfMagic)
	}
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

var imageMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/tiff": true,
	"image/bmp":  true,
}

// IsRasterImage reports whether the input is a supported scan image,
// processable only when OCR is active.
func (in RawInput) IsRasterImage() bool {
	if imageMediaTypes[in.MediaType] {
		return true
	}
	return imageExts[strings.ToLower(filepath.Ext(in.Name))]
}
