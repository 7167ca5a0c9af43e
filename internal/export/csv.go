// Package export renders batch results as CSV or XLSX documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/invopipe/invopipe/internal/invoice"
)

var csvHeader = []string{
	"filename",
	"document_type",
	"invoice_number",
	"date",
	"vendor",
	"subtotal",
	"tax",
	"tax_rate",
	"total",
	"line_description",
	"line_quantity",
	"line_unit_price",
	"line_amount",
	"acquisition_method",
	"error",
}

// WriteCSV renders a batch. A file with line items gets one row per item
// with its header fields repeated; a file without items gets one summary
// row; a failed file gets one row carrying only the filename and error.
func WriteCSV(w io.Writer, batch invoice.BatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for i := range batch.Results {
		for _, row := range resultRows(&batch.Results[i]) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func resultRows(r *invoice.ExtractionResult) [][]string {
	if r.Failed() {
		row := emptyRow()
		row[0] = r.Filename
		row[14] = r.Error
		return [][]string{row}
	}

	if len(r.LineItems) == 0 {
		return [][]string{summaryRow(r, nil)}
	}

	rows := make([][]string, 0, len(r.LineItems))
	for i := range r.LineItems {
		rows = append(rows, summaryRow(r, &r.LineItems[i]))
	}
	return rows
}

func summaryRow(r *invoice.ExtractionResult, item *invoice.LineItem) []string {
	row := emptyRow()
	row[0] = r.Filename
	row[1] = string(r.DocumentType)
	row[2] = r.InvoiceNumber
	row[3] = r.Date
	row[4] = r.Vendor
	row[5] = r.Subtotal
	row[6] = r.Tax
	row[7] = r.TaxRate
	row[8] = r.Total
	if item != nil {
		row[9] = item.Description
		row[10] = formatOptional(item.Quantity)
		row[11] = formatOptional(item.UnitPrice)
		row[12] = strconv.FormatFloat(item.Amount, 'f', 2, 64)
	}
	row[13] = r.AcquisitionMethod
	return row
}

func emptyRow() []string {
	return make([]string, len(csvHeader))
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
