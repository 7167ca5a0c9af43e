// Package tier defines the subscription-tier resource policies consulted by
// the extraction pipeline before any processing begins. Policies are plain
// data: constructed once per request and never mutated.
package tier

import (
	"fmt"
	"time"

	"github.com/invopipe/invopipe/internal/invoice"
)

// Policy describes the resource limits and enabled capabilities of one
// subscription tier.
type Policy struct {
	Name                 string
	MaxFilesPerBatch     int
	MaxFileSizeBytes     int64
	MaxPDFPages          int
	AllowedDocumentTypes map[invoice.DocumentType]bool
	OCREnabled           bool
	OCRMaxFileSizeBytes  int64
	OCRTimeout           time.Duration
}

// Allows reports whether the tier licenses processing the given document
// type with its own pattern set.
func (p Policy) Allows(dt invoice.DocumentType) bool {
	return p.AllowedDocumentTypes[dt]
}

// Free is the entry tier: small batches, Standard Invoice only, no OCR.
func Free() Policy {
	return Policy{
		Name:             "free",
		MaxFilesPerBatch: 5,
		MaxFileSizeBytes: 10 << 20,
		MaxPDFPages:      10,
		AllowedDocumentTypes: map[invoice.DocumentType]bool{
			invoice.StandardInvoice: true,
		},
		OCREnabled: false,
	}
}

// Pro unlocks all document types and OCR with a stricter OCR file ceiling.
func Pro() Policy {
	return Policy{
		Name:                 "pro",
		MaxFilesPerBatch:     20,
		MaxFileSizeBytes:     25 << 20,
		MaxPDFPages:          50,
		AllowedDocumentTypes: allTypes(),
		OCREnabled:           true,
		OCRMaxFileSizeBytes:  10 << 20,
		OCRTimeout:           30 * time.Second,
	}
}

// Business raises every ceiling for high-volume callers.
func Business() Policy {
	return Policy{
		Name:                 "business",
		MaxFilesPerBatch:     100,
		MaxFileSizeBytes:     50 << 20,
		MaxPDFPages:          200,
		AllowedDocumentTypes: allTypes(),
		OCREnabled:           true,
		OCRMaxFileSizeBytes:  25 << 20,
		OCRTimeout:           60 * time.Second,
	}
}

// ByName resolves a tier preset from its name.
func ByName(name string) (Policy, error) {
	switch name {
	case "free":
		return Free(), nil
	case "pro":
		return Pro(), nil
	case "business":
		return Business(), nil
	default:
		return Policy{}, fmt.Errorf("unknown tier %q (expected free, pro or business)", name)
	}
}

func allTypes() map[invoice.DocumentType]bool {
	out := make(map[invoice.DocumentType]bool)
	for _, dt := range invoice.AllDocumentTypes() {
		out[dt] = true
	}
	return out
}
