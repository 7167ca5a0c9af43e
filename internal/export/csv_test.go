package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invopipe/invopipe/internal/invoice"
)

func floatPtr(v float64) *float64 { return &v }

func sampleBatch() invoice.BatchResult {
	return invoice.BatchResult{
		Results: []invoice.ExtractionResult{
			{
				Filename:          "itemized.pdf",
				InvoiceNumber:     "INV-1",
				Date:              "03/15/2024",
				Vendor:            "ACME Corp",
				Total:             "162.38",
				DocumentType:      invoice.StandardInvoice,
				AcquisitionMethod: "native-text",
				LineItems: []invoice.LineItem{
					{Description: "Widget Assembly", Quantity: floatPtr(3), UnitPrice: floatPtr(10), Amount: 30},
					{Description: "Premium Support Plan", Amount: 120},
				},
			},
			{
				Filename:          "sparse.pdf",
				Total:             "99.00",
				DocumentType:      invoice.StandardInvoice,
				AcquisitionMethod: "native-text",
			},
			{
				Filename:  "broken.pdf",
				Error:     "PDF format not supported or corrupted",
				ErrorKind: "corrupted_pdf",
			},
		},
		TotalFiles: 3,
		Succeeded:  2,
		Timestamp:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSVRowSemantics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatch()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// Header plus: two item rows, one summary row, one error row.
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])

	// One row per line item with parent fields repeated.
	assert.Equal(t, "itemized.pdf", rows[1][0])
	assert.Equal(t, "INV-1", rows[1][2])
	assert.Equal(t, "Widget Assembly", rows[1][9])
	assert.Equal(t, "3", rows[1][10])
	assert.Equal(t, "10", rows[1][11])
	assert.Equal(t, "30.00", rows[1][12])

	assert.Equal(t, "itemized.pdf", rows[2][0])
	assert.Equal(t, "INV-1", rows[2][2], "parent fields repeat on every item row")
	assert.Equal(t, "Premium Support Plan", rows[2][9])
	assert.Empty(t, rows[2][10], "absent quantity stays empty")

	// Exactly one summary row for an item-less file.
	assert.Equal(t, "sparse.pdf", rows[3][0])
	assert.Equal(t, "99.00", rows[3][8])
	assert.Empty(t, rows[3][9])

	// Exactly one error row for a failed file.
	assert.Equal(t, "broken.pdf", rows[4][0])
	assert.Empty(t, rows[4][2])
	assert.Equal(t, "PDF format not supported or corrupted", rows[4][14])
}

func TestWriteCSVEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, invoice.BatchResult{}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestWriteXLSX(t *testing.T) {
	data, err := WriteXLSX(sampleBatch())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// XLSX files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}
