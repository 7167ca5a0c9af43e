package invoice

import (
	"regexp"
	"strconv"
	"strings"
)

// field identifies a target slot on an ExtractionResult.
type field string

const (
	fieldInvoiceNumber field = "invoice_number"
	fieldDate          field = "date"
	fieldVendor        field = "vendor"
	fieldSubtotal      field = "subtotal"
	fieldTax           field = "tax"
	fieldTotal         field = "total"
)

// extractionFields is the fixed evaluation order. Fields are independent:
// failing one never blocks the others.
var extractionFields = []field{
	fieldInvoiceNumber, fieldDate, fieldVendor, fieldSubtotal, fieldTax, fieldTotal,
}

// validator normalizes a captured value and reports whether it is usable.
type validator func(raw string) (string, bool)

// fieldRule pairs a compiled pattern with its validity check. Rules for a
// field are ordered most-specific first; the first rule whose capture
// validates wins and the rest are skipped.
type fieldRule struct {
	re       *regexp.Regexp
	validate validator
}

const dateToken = `(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{4}-\d{2}-\d{2})`

// standardPatterns is the Standard Invoice pattern table. It doubles as the
// fallback for unrecognized or unlicensed document types.
var standardPatterns = map[field][]fieldRule{
	fieldInvoiceNumber: {
		{regexp.MustCompile(`(?i)invoice\s*(?:number|no\.?|num\.?|#)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]+)`), validReference},
		{regexp.MustCompile(`(?im)^\s*(?:ref(?:erence)?)\s*(?:number|no\.?)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9\-/]+)`), validReference},
		{regexp.MustCompile(`#([A-Za-z0-9][A-Za-z0-9\-]{2,})`), validReference},
	},
	fieldDate: {
		{regexp.MustCompile(`(?i)(?:invoice|issue|billing)\s+date\s*[:.]?\s*` + dateToken), validDate},
		{regexp.MustCompile(`(?i)\bdate\s*[:.]?\s*` + dateToken), validDate},
		{regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`), validDate},
		{regexp.MustCompile(`(?i)\b((?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2},?\s+\d{4})\b`), validDate},
	},
	fieldVendor: {
		{regexp.MustCompile(`(?im)^\s*(?:vendor|sold\s+by|bill(?:ed)?\s+from|supplier|from)\s*:\s*(.+)$`), validName},
		{regexp.MustCompile(`(?im)^\s*company(?:\s+name)?\s*:\s*(.+)$`), validName},
	},
	fieldSubtotal: {
		{regexp.MustCompile(`(?i)\bsub[\s-]?total\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
	},
	fieldTax: {
		{regexp.MustCompile(`(?i)\b(?:sales\s+tax|tax\s+rate|vat|tax)\b\s*(?:\([^)]*\))?\s*:?\s*([$€£]?\s*[\d,]+(?:\.\d{1,2})?\s*%?)`), validAmount},
	},
	fieldTotal: {
		{regexp.MustCompile(`(?im)^\s*(?:grand\s+total|total\s+due|amount\s+due|balance\s+due)\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
		{regexp.MustCompile(`(?im)^\s*total\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
		{regexp.MustCompile(`(?i)(?:grand\s+total|amount\s+due)\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
	},
}

// typePatterns holds the per-type pattern sets for elevated document types.
// Each set is tried before the standard table; missing fields fall through to
// the standard rules.
var typePatterns = map[DocumentType]map[field][]fieldRule{
	Receipt: {
		fieldInvoiceNumber: {
			{regexp.MustCompile(`(?i)receipt\s*(?:number|no\.?|#)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]+)`), validReference},
			{regexp.MustCompile(`(?i)transaction\s*(?:id|number|#)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-]+)`), validReference},
		},
		fieldVendor: {
			{regexp.MustCompile(`(?im)^\s*(?:store|merchant)\s*:?\s*(.+)$`), validName},
		},
		fieldTotal: {
			{regexp.MustCompile(`(?im)^\s*(?:total\s+paid|amount\s+paid)\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
		},
	},
	PurchaseOrder: {
		fieldInvoiceNumber: {
			{regexp.MustCompile(`(?i)p\.?\s?o\.?\s*(?:number|no\.?)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9\-/]+)`), validReference},
			{regexp.MustCompile(`(?i)purchase\s+order\s*(?:number|no\.?|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-/]+)`), validReference},
		},
		fieldDate: {
			{regexp.MustCompile(`(?i)order\s+date\s*[:.]?\s*` + dateToken), validDate},
		},
		fieldVendor: {
			{regexp.MustCompile(`(?im)^\s*supplier\s*:\s*(.+)$`), validName},
		},
	},
	Contract: {
		fieldDate: {
			{regexp.MustCompile(`(?i)(?:effective|execution|agreement)\s+date\s*[:.]?\s*` + dateToken), validDate},
		},
		fieldVendor: {
			{regexp.MustCompile(`(?im)^\s*(?:party|between)\s*:?\s*(.+)$`), validName},
		},
		fieldTotal: {
			{regexp.MustCompile(`(?i)contract\s+(?:value|amount)\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
		},
	},
	BankStatement: {
		fieldDate: {
			{regexp.MustCompile(`(?i)statement\s+(?:date|period)\s*[:.]?\s*` + dateToken), validDate},
		},
		fieldVendor: {
			{regexp.MustCompile(`(?im)^\s*(?:bank|institution)\s*:?\s*(.+)$`), validName},
		},
		fieldTotal: {
			{regexp.MustCompile(`(?i)(?:closing|ending)\s+balance\s*:?\s*[$€£]?\s*([\d,]+(?:\.\d{1,2})?)`), validAmount},
		},
	},
}

// validAmount parses a monetary capture. Thousands separators and currency
// symbols are stripped; the value must be positive. Output is a plain
// two-decimal string.
func validAmount(raw string) (string, bool) {
	v, ok := parseAmount(raw)
	if !ok || v <= 0 {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

// validRate parses a percentage capture (the "%" itself is optional by the
// time it reaches here). Rates outside (0, 100] are rejected.
func validRate(raw string) (string, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	v, ok := parseAmount(raw)
	if !ok || v <= 0 || v > 100 {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

// validName accepts vendor-like captures within a plausible length window
// after trimming trailing punctuation.
func validName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	name = strings.TrimRight(name, ".,;:-|")
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 100 {
		return "", false
	}
	return name, true
}

// validReference accepts identifier-like captures that contain at least one
// digit, which filters out bare words picked up by the loose "#" heuristic.
func validReference(raw string) (string, bool) {
	ref := strings.TrimSpace(raw)
	ref = strings.TrimRight(ref, ".,;:")
	if len(ref) < 3 || len(ref) > 40 {
		return "", false
	}
	if !strings.ContainsAny(ref, "0123456789") {
		return "", false
	}
	return ref, true
}

func validDate(raw string) (string, bool) {
	date := strings.TrimSpace(raw)
	if date == "" {
		return "", false
	}
	return date, true
}

// parseAmount strips currency symbols, spaces and thousands separators and
// parses the remainder as a float.
func parseAmount(raw string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
