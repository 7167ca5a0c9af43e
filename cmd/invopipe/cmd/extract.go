package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invopipe/invopipe/internal/acquire"
	"github.com/invopipe/invopipe/internal/config"
	"github.com/invopipe/invopipe/internal/export"
	"github.com/invopipe/invopipe/internal/invoice"
	"github.com/invopipe/invopipe/internal/ocr"
	"github.com/invopipe/invopipe/internal/pipeline"
	"github.com/invopipe/invopipe/internal/tier"
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract structured data from invoice and receipt files",
	Long: `Extract invoice fields and line items from one or more PDF or image
files. Files are processed concurrently; results are reported in input order.

Supported formats: PDF, JPEG, PNG, BMP, TIFF (images require --mode ocr)

Examples:
  invopipe extract invoice.pdf
  invopipe extract invoices/ --recursive --tier business
  invopipe extract scan.png --tier pro --mode ocr
  invopipe extract *.pdf --format csv --output results.csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runExtractCommand,
}

var extractExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	tierName := cfg.Tier
	if cmd.Flags().Changed("tier") {
		tierName, _ = cmd.Flags().GetString("tier")
	}
	pol, err := tier.ByName(tierName)
	if err != nil {
		return err
	}

	modeName := cfg.Mode
	if cmd.Flags().Changed("mode") {
		modeName, _ = cmd.Flags().GetString("mode")
	}
	if ocrFlag, _ := cmd.Flags().GetBool("ocr"); ocrFlag {
		modeName = string(pipeline.ModeOCR)
	}
	mode, err := pipeline.ParseMode(modeName)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	workers := cfg.Pipeline.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	language := cfg.OCR.Language
	if cmd.Flags().Changed("language") {
		language, _ = cmd.Flags().GetString("language")
	}
	recursive, _ := cmd.Flags().GetBool("recursive")

	files, err := collectInputFiles(args, recursive)
	if err != nil {
		return err
	}

	inputs := make([]pipeline.RawInput, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		inputs = append(inputs, pipeline.RawInput{Name: filepath.Base(path), Data: data})
	}

	coord := buildCoordinator(cfg.Acquisition, workers, language)
	batch, err := coord.Process(cmd.Context(), inputs, pol, mode)
	if err != nil {
		return err
	}

	if err := renderBatch(cmd.OutOrStdout(), batch, format, outputFile); err != nil {
		return err
	}

	if batch.Succeeded < batch.TotalFiles {
		slog.Warn("some files failed",
			"failed", batch.TotalFiles-batch.Succeeded, "total", batch.TotalFiles)
	}
	return nil
}

func buildCoordinator(acq config.AcquisitionConfig, workers int, language string) *pipeline.Coordinator {
	orch := acquire.NewOrchestrator(acquire.Config{
		SufficiencyThreshold: acq.SufficiencyThreshold,
		OCRPageBudget:        acq.OCRPageBudget,
		OCRCharBudget:        acq.OCRCharBudget,
	}, acq.RasterScale, slog.Default())

	engines := ocr.EngineFactory(func() (ocr.Engine, error) {
		return ocr.NewTesseract(language), nil
	})

	return pipeline.NewCoordinator(orch, engines, workers, slog.Default())
}

// collectInputFiles expands the argument list into a flat, ordered list of
// processable files. Directories require --recursive.
func collectInputFiles(args []string, recursive bool) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("%s is a directory (use --recursive to process directories)", arg)
		}
		err = filepath.Walk(arg, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && extractExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no processable files found")
	}
	return files, nil
}

// renderBatch writes the batch in the requested format to the output file,
// or to stdout when none is given.
func renderBatch(stdout io.Writer, batch invoice.BatchResult, format, outputFile string) error {
	var w io.Writer = stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	switch format {
	case "text":
		return writeTextSummary(w, batch)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	case "csv":
		return export.WriteCSV(w, batch)
	case "xlsx":
		data, err := export.WriteXLSX(batch)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (expected text, json, csv or xlsx)", format)
	}
}

func writeTextSummary(w io.Writer, batch invoice.BatchResult) error {
	for i := range batch.Results {
		r := &batch.Results[i]
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", r.Filename)
		if r.Failed() {
			fmt.Fprintf(w, "  error: %s (%s)\n", r.Error, r.ErrorKind)
			continue
		}
		fmt.Fprintf(w, "  type: %s (via %s)\n", r.DocumentType, r.AcquisitionMethod)
		writeField(w, "invoice number", r.InvoiceNumber)
		writeField(w, "date", r.Date)
		writeField(w, "vendor", r.Vendor)
		writeField(w, "subtotal", r.Subtotal)
		writeField(w, "tax", r.Tax)
		writeField(w, "tax rate", r.TaxRate)
		writeField(w, "total", r.Total)
		for _, item := range r.LineItems {
			fmt.Fprintf(w, "  item: %s", item.Description)
			if item.Quantity != nil {
				fmt.Fprintf(w, " x%g", *item.Quantity)
			}
			if item.UnitPrice != nil {
				fmt.Fprintf(w, " @ %.2f", *item.UnitPrice)
			}
			fmt.Fprintf(w, " = %.2f\n", item.Amount)
		}
	}
	fmt.Fprintf(w, "\n%d/%d files succeeded\n", batch.Succeeded, batch.TotalFiles)
	return nil
}

func writeField(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "  %s: %s\n", label, value)
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("tier", "t", "free", "tier preset (free, pro, business)")
	extractCmd.Flags().StringP("mode", "m", "standard", "extraction mode (standard, enhanced, ocr)")
	extractCmd.Flags().Bool("ocr", false, "shorthand for --mode ocr")
	extractCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv, xlsx)")
	extractCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	extractCmd.Flags().IntP("workers", "w", pipeline.DefaultWorkers, "number of parallel workers")
	extractCmd.Flags().String("language", "eng", "OCR language")
	extractCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
}
