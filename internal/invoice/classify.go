package invoice

import "strings"

// classifier markers, tested in priority order. First match wins; the
// fallthrough default is StandardInvoice, so classification never fails.
var classifierChecks = []struct {
	docType DocumentType
	markers []string
}{
	{PurchaseOrder, []string{"purchase order", "po number"}},
	{Contract, []string{"contract", "agreement"}},
	{BankStatement, []string{"bank statement", "account balance"}},
}

// Classify inspects acquired text for vocabulary markers and returns the
// document type. It is total and deterministic: identical text always yields
// the identical type.
func Classify(text string) DocumentType {
	lower := strings.ToLower(text)

	for _, check := range classifierChecks {
		for _, marker := range check.markers {
			if strings.Contains(lower, marker) {
				return check.docType
			}
		}
	}

	// "receipt" alone is ambiguous: invoices often say "payment receipt",
	// so a receipt is only recognized when no invoice vocabulary is present.
	if strings.Contains(lower, "receipt") && !strings.Contains(lower, "invoice") {
		return Receipt
	}

	return StandardInvoice
}
