package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected DocumentType
	}{
		{
			name:     "purchase order by phrase",
			text:     "Purchase Order\nPO Number: 1234",
			expected: PurchaseOrder,
		},
		{
			name:     "purchase order by po number",
			text:     "Document\npo number: 99-A",
			expected: PurchaseOrder,
		},
		{
			name:     "contract by agreement marker",
			text:     "Service Agreement between parties",
			expected: Contract,
		},
		{
			name:     "bank statement",
			text:     "Monthly Bank Statement for account 123",
			expected: BankStatement,
		},
		{
			name:     "bank statement by account balance",
			text:     "Your account balance is 500.00",
			expected: BankStatement,
		},
		{
			name:     "receipt without invoice vocabulary",
			text:     "Receipt #4411\nTotal Paid: 10.00",
			expected: Receipt,
		},
		{
			name:     "payment receipt on an invoice stays invoice",
			text:     "Invoice INV-1\nThis document serves as your payment receipt",
			expected: StandardInvoice,
		},
		{
			name:     "plain invoice",
			text:     "Invoice #INV-1\nTotal: 10.00",
			expected: StandardInvoice,
		},
		{
			name:     "no markers defaults to standard invoice",
			text:     "completely unrelated text",
			expected: StandardInvoice,
		},
		{
			name:     "empty text",
			text:     "",
			expected: StandardInvoice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "Receipt #123 from the corner store"
	first := Classify(text)
	for range 50 {
		assert.Equal(t, first, Classify(text))
	}
}
