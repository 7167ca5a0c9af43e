package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/invopipe/invopipe/internal/invoice"
)

// WriteXLSX renders a batch as a single-sheet workbook with the same row
// semantics as the CSV export.
func WriteXLSX(batch invoice.BatchResult) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowNum := 2
	for i := range batch.Results {
		for _, row := range resultRows(&batch.Results[i]) {
			for col, v := range row {
				if v == "" {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
				_ = f.SetCellValue(sheet, cell, v)
			}
			rowNum++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // filename
	_ = f.SetColWidth(sheet, "B", "B", 18) // document type
	_ = f.SetColWidth(sheet, "C", "C", 20) // invoice number
	_ = f.SetColWidth(sheet, "E", "E", 26) // vendor
	_ = f.SetColWidth(sheet, "J", "J", 36) // line description
	_ = f.SetColWidth(sheet, "O", "O", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
