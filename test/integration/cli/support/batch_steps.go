package support

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/cucumber/godog"
	"github.com/invopipe/invopipe/internal/acquire"
	"github.com/invopipe/invopipe/internal/config"
	"github.com/invopipe/invopipe/internal/invoice"
	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/pipeline"
	"github.com/invopipe/invopipe/internal/testutil"
	"github.com/invopipe/invopipe/internal/tier"
)

// scriptedAcquirer returns canned text for filenames registered by the
// scenario and hands everything else to the real orchestrator, so the
// acquisition failure paths still run through the production chain.
type scriptedAcquirer struct {
	texts map[string]string
	real  *acquire.Orchestrator
}

func (a *scriptedAcquirer) Acquire(ctx context.Context, req acquire.Request) (acquire.AcquiredText, error) {
	if text, ok := a.texts[req.Name]; ok && len(req.Data) > 0 {
		return acquire.AcquiredText{
			SourceName: req.Name,
			Text:       text,
			Method:     acquire.MethodNativeText,
			CharCount:  len(text),
		}, nil
	}
	return a.real.Acquire(ctx, req)
}

// stubEngine stands in for tesseract. Scenarios that exercise OCR mode
// only cover failure paths that reject the file before recognition, so
// Recognize never runs against real content.
type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	return "", nil
}

func (stubEngine) Close() error { return nil }

func (testCtx *TestContext) scriptDocument(name, text string) {
	if testCtx.Scripted == nil {
		testCtx.Scripted = map[string]string{}
	}
	testCtx.Scripted[name] = text
	testCtx.Inputs = append(testCtx.Inputs, pipeline.RawInput{
		Name: name,
		Data: []byte("%PDF-1.4 scripted"),
	})
}

func (testCtx *TestContext) findResult(name string) (*invoice.ExtractionResult, error) {
	for i := range testCtx.LastBatch.Results {
		if testCtx.LastBatch.Results[i].Filename == name {
			return &testCtx.LastBatch.Results[i], nil
		}
	}
	return nil, fmt.Errorf("no result for file %q in batch of %d", name, len(testCtx.LastBatch.Results))
}

func (testCtx *TestContext) aPDFContainingAStandardInvoice(name string) error {
	testCtx.scriptDocument(name, testutil.SampleInvoiceText)
	return nil
}

func (testCtx *TestContext) aPDFContainingARetailReceipt(name string) error {
	testCtx.scriptDocument(name, testutil.SampleReceiptText)
	return nil
}

func (testCtx *TestContext) aPDFContainingAPurchaseOrder(name string) error {
	testCtx.scriptDocument(name, testutil.SamplePurchaseOrderText)
	return nil
}

func (testCtx *TestContext) aZeroBytePDF(name string) error {
	testCtx.Inputs = append(testCtx.Inputs, pipeline.RawInput{Name: name})
	return nil
}

func (testCtx *TestContext) anUnparseablePDF(name string) error {
	testCtx.Inputs = append(testCtx.Inputs, pipeline.RawInput{
		Name: name,
		Data: []byte("%PDF-1.7\nthis is not a real pdf body"),
	})
	return nil
}

func (testCtx *TestContext) aScannedImageNamed(name string) error {
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := range 24 {
		for x := range 24 {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode test image: %w", err)
	}
	testCtx.Inputs = append(testCtx.Inputs, pipeline.RawInput{Name: name, Data: buf.Bytes()})
	return nil
}

func (testCtx *TestContext) pdfInvoices(count int) error {
	for i := 1; i <= count; i++ {
		testCtx.scriptDocument(fmt.Sprintf("invoice-%03d.pdf", i), testutil.SampleInvoiceText)
	}
	return nil
}

func (testCtx *TestContext) theTier(name string) error {
	testCtx.TierName = name
	return nil
}

func (testCtx *TestContext) theMode(name string) error {
	testCtx.ModeName = name
	return nil
}

func (testCtx *TestContext) iProcessTheBatch() error {
	pol, err := tier.ByName(testCtx.TierName)
	if err != nil {
		return err
	}
	mode, err := pipeline.ParseMode(testCtx.ModeName)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	orch := acquire.NewOrchestrator(acquire.Config{
		SufficiencyThreshold: cfg.Acquisition.SufficiencyThreshold,
		OCRPageBudget:        cfg.Acquisition.OCRPageBudget,
		OCRCharBudget:        cfg.Acquisition.OCRCharBudget,
	}, cfg.Acquisition.RasterScale, testCtx.Logger)

	engines := ocr.EngineFactory(func() (ocr.Engine, error) { return stubEngine{}, nil })
	coord := pipeline.NewCoordinator(
		&scriptedAcquirer{texts: testCtx.Scripted, real: orch},
		engines, cfg.Pipeline.Workers, testCtx.Logger)

	testCtx.LastBatch, testCtx.LastBatchErr = coord.Process(context.Background(), testCtx.Inputs, pol, mode)
	return nil
}

func (testCtx *TestContext) theBatchShouldSucceed() error {
	if testCtx.LastBatchErr != nil {
		return fmt.Errorf("batch failed: %v", testCtx.LastBatchErr)
	}
	return nil
}

func (testCtx *TestContext) theBatchShouldFailMentioning(substr string) error {
	if testCtx.LastBatchErr == nil {
		return fmt.Errorf("expected a batch-level error, got %d results", len(testCtx.LastBatch.Results))
	}
	if !strings.Contains(testCtx.LastBatchErr.Error(), substr) {
		return fmt.Errorf("batch error %q does not mention %q", testCtx.LastBatchErr, substr)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldHaveField(name, field, expected string) error {
	res, err := testCtx.findResult(name)
	if err != nil {
		return err
	}

	var got string
	switch field {
	case "invoice number":
		got = res.InvoiceNumber
	case "date":
		got = res.Date
	case "vendor":
		got = res.Vendor
	case "subtotal":
		got = res.Subtotal
	case "tax":
		got = res.Tax
	case "total":
		got = res.Total
	case "document type":
		got = string(res.DocumentType)
	case "acquisition method":
		got = res.AcquisitionMethod
	case "error kind":
		got = res.ErrorKind
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	if got != expected {
		return fmt.Errorf("%s of %s: expected %q, got %q", field, name, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldSucceed(name string) error {
	res, err := testCtx.findResult(name)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s failed: %s (%s)", name, res.Error, res.ErrorKind)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldHaveNoDocumentType(name string) error {
	res, err := testCtx.findResult(name)
	if err != nil {
		return err
	}
	if res.DocumentType != "" {
		return fmt.Errorf("%s unexpectedly classified as %s", name, res.DocumentType)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldHaveLineItems(name string, count int) error {
	res, err := testCtx.findResult(name)
	if err != nil {
		return err
	}
	if len(res.LineItems) != count {
		return fmt.Errorf("%s: expected %d line items, got %d", name, count, len(res.LineItems))
	}
	return nil
}

func (testCtx *TestContext) resultsShouldBeInInputOrder() error {
	if len(testCtx.LastBatch.Results) != len(testCtx.Inputs) {
		return fmt.Errorf("expected %d results, got %d", len(testCtx.Inputs), len(testCtx.LastBatch.Results))
	}
	for i, in := range testCtx.Inputs {
		if testCtx.LastBatch.Results[i].Filename != in.Name {
			return fmt.Errorf("result %d: expected %s, got %s", i, in.Name, testCtx.LastBatch.Results[i].Filename)
		}
	}
	return nil
}

func (testCtx *TestContext) filesShouldSucceed(succeeded, total int) error {
	if testCtx.LastBatch.TotalFiles != total {
		return fmt.Errorf("expected %d total files, got %d", total, testCtx.LastBatch.TotalFiles)
	}
	if testCtx.LastBatch.Succeeded != succeeded {
		return fmt.Errorf("expected %d succeeded, got %d", succeeded, testCtx.LastBatch.Succeeded)
	}
	return nil
}

// RegisterBatchSteps wires the batch-processing step definitions.
func (testCtx *TestContext) RegisterBatchSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF named "([^"]*)" containing a standard invoice$`, testCtx.aPDFContainingAStandardInvoice)
	sc.Step(`^a PDF named "([^"]*)" containing a retail receipt$`, testCtx.aPDFContainingARetailReceipt)
	sc.Step(`^a PDF named "([^"]*)" containing a purchase order$`, testCtx.aPDFContainingAPurchaseOrder)
	sc.Step(`^a zero-byte PDF named "([^"]*)"$`, testCtx.aZeroBytePDF)
	sc.Step(`^an unparseable PDF named "([^"]*)"$`, testCtx.anUnparseablePDF)
	sc.Step(`^a scanned image named "([^"]*)"$`, testCtx.aScannedImageNamed)
	sc.Step(`^(\d+) PDF invoices$`, testCtx.pdfInvoices)
	sc.Step(`^the "([^"]*)" tier$`, testCtx.theTier)
	sc.Step(`^"([^"]*)" mode$`, testCtx.theMode)
	sc.Step(`^I process the batch$`, testCtx.iProcessTheBatch)
	sc.Step(`^the batch should succeed$`, testCtx.theBatchShouldSucceed)
	sc.Step(`^the batch should fail mentioning "([^"]*)"$`, testCtx.theBatchShouldFailMentioning)
	sc.Step(`^the result for "([^"]*)" should have (invoice number|date|vendor|subtotal|tax|total|document type|acquisition method|error kind) "([^"]*)"$`, testCtx.theResultShouldHaveField)
	sc.Step(`^the result for "([^"]*)" should succeed$`, testCtx.theResultShouldSucceed)
	sc.Step(`^the result for "([^"]*)" should have no document type$`, testCtx.theResultShouldHaveNoDocumentType)
	sc.Step(`^the result for "([^"]*)" should have (\d+) line items$`, testCtx.theResultShouldHaveLineItems)
	sc.Step(`^the results should be in input order$`, testCtx.resultsShouldBeInInputOrder)
	sc.Step(`^(\d+) of (\d+) files should succeed$`, testCtx.filesShouldSucceed)
}
