package support

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"github.com/invopipe/invopipe/internal/export"
)

func (testCtx *TestContext) iExportTheBatchAsCSV() error {
	var b strings.Builder
	if err := export.WriteCSV(&b, testCtx.LastBatch); err != nil {
		return fmt.Errorf("CSV export failed: %w", err)
	}
	testCtx.LastOutput = b.String()
	return nil
}

func (testCtx *TestContext) iRenderTheBatchAsJSON() error {
	data, err := json.MarshalIndent(testCtx.LastBatch, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON render failed: %w", err)
	}
	testCtx.LastOutput = string(data)
	return nil
}

// parseCSVOutput splits the last output into header and data rows.
func (testCtx *TestContext) parseCSVOutput() ([]string, [][]string, error) {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse CSV output: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("CSV output has no header row")
	}
	return records[0], records[1:], nil
}

func (testCtx *TestContext) theCSVShouldHaveDataRows(count int) error {
	_, rows, err := testCtx.parseCSVOutput()
	if err != nil {
		return err
	}
	if len(rows) != count {
		return fmt.Errorf("expected %d data rows, got %d", count, len(rows))
	}
	return nil
}

func (testCtx *TestContext) csvRowShouldHaveInColumn(row int, expected, column string) error {
	header, rows, err := testCtx.parseCSVOutput()
	if err != nil {
		return err
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range, CSV has %d data rows", row, len(rows))
	}

	col := -1
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("no column %q in header %v", column, header)
	}

	got := rows[row-1][col]
	if got != expected {
		return fmt.Errorf("row %d column %s: expected %q, got %q", row, column, expected, got)
	}
	return nil
}

func (testCtx *TestContext) everyDataRowShouldCarryInColumn(expected, column string) error {
	header, rows, err := testCtx.parseCSVOutput()
	if err != nil {
		return err
	}

	col := -1
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("no column %q in header %v", column, header)
	}

	for i, row := range rows {
		if row[col] != expected {
			return fmt.Errorf("row %d column %s: expected %q, got %q", i+1, column, expected, row[col])
		}
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(substr string) error {
	if !strings.Contains(testCtx.LastOutput, substr) {
		return fmt.Errorf("output does not contain %q:\n%s", substr, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(substr string) error {
	if strings.Contains(testCtx.LastOutput, substr) {
		return fmt.Errorf("output unexpectedly contains %q:\n%s", substr, testCtx.LastOutput)
	}
	return nil
}

// RegisterExportSteps wires the export step definitions.
func (testCtx *TestContext) RegisterExportSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I export the batch as CSV$`, testCtx.iExportTheBatchAsCSV)
	sc.Step(`^I render the batch as JSON$`, testCtx.iRenderTheBatchAsJSON)
	sc.Step(`^the CSV should have (\d+) data rows$`, testCtx.theCSVShouldHaveDataRows)
	sc.Step(`^CSV row (\d+) should have "([^"]*)" in the "([^"]*)" column$`, testCtx.csvRowShouldHaveInColumn)
	sc.Step(`^every CSV data row should carry "([^"]*)" in the "([^"]*)" column$`, testCtx.everyDataRowShouldCarryInColumn)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
}
