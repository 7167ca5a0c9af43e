package invoice

import "time"

// DocumentType identifies the kind of financial document a text blob
// represents. Tier policies restrict which types a caller may process.
type DocumentType string

const (
	StandardInvoice DocumentType = "standard_invoice"
	Receipt         DocumentType = "receipt"
	PurchaseOrder   DocumentType = "purchase_order"
	Contract        DocumentType = "contract"
	BankStatement   DocumentType = "bank_statement"
)

// AllDocumentTypes lists every supported document type.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{StandardInvoice, Receipt, PurchaseOrder, Contract, BankStatement}
}

// LineItem is a single row of an itemized table. Amount is mandatory and
// always positive; rows without a valid amount are discarded during parsing.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Amount      float64  `json:"amount"`
}

// ExtractionResult holds the structured data extracted from one input file.
// Error and the data fields are mutually exclusive: a failed file carries
// only Filename and Error.
type ExtractionResult struct {
	Filename          string       `json:"filename"`
	InvoiceNumber     string       `json:"invoice_number,omitempty"`
	Date              string       `json:"date,omitempty"`
	Vendor            string       `json:"vendor,omitempty"`
	Subtotal          string       `json:"subtotal,omitempty"`
	Tax               string       `json:"tax,omitempty"`
	TaxRate           string       `json:"tax_rate,omitempty"`
	Total             string       `json:"total,omitempty"`
	LineItems         []LineItem   `json:"line_items,omitempty"`
	DocumentType      DocumentType `json:"document_type,omitempty"`
	AcquisitionMethod string       `json:"acquisition_method,omitempty"`
	Error             string       `json:"error,omitempty"`
	ErrorKind         string       `json:"error_kind,omitempty"`
}

// Failed reports whether this result represents a per-file failure.
func (r *ExtractionResult) Failed() bool { return r.Error != "" }

// BatchResult aggregates per-file results. Results is parallel to the input
// order regardless of processing concurrency.
type BatchResult struct {
	Results    []ExtractionResult `json:"results"`
	TotalFiles int                `json:"total_files"`
	Succeeded  int                `json:"succeeded"`
	Timestamp  time.Time          `json:"timestamp"`
}
