package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/invopipe/invopipe/internal/export"
	"github.com/invopipe/invopipe/internal/invoice"
	"github.com/invopipe/invopipe/internal/pipeline"
	"github.com/invopipe/invopipe/internal/tier"
	"github.com/invopipe/invopipe/internal/version"
)

const formatJSON = "json"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// tiersHandler lists the available tier presets and their limits.
func (s *Server) tiersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	presets := []tier.Policy{tier.Free(), tier.Pro(), tier.Business()}
	infos := make([]TierInfo, len(presets))
	for i, p := range presets {
		types := make([]string, 0, len(p.AllowedDocumentTypes))
		for _, dt := range invoice.AllDocumentTypes() {
			if p.AllowedDocumentTypes[dt] {
				types = append(types, string(dt))
			}
		}
		infos[i] = TierInfo{
			Name:             p.Name,
			MaxFilesPerBatch: p.MaxFilesPerBatch,
			MaxFileSizeMB:    p.MaxFileSizeBytes >> 20,
			MaxPDFPages:      p.MaxPDFPages,
			DocumentTypes:    types,
			OCREnabled:       p.OCREnabled,
		}
	}

	response := TiersResponse{Tiers: infos, Count: len(infos)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding tiers response: %v\n", err)
	}
}

// extractHandler processes a multipart batch of invoice files.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	pol, mode, ok := s.resolveBatchParams(w, r)
	if !ok {
		return
	}

	inputs, ok := s.readUploads(w, r)
	if !ok {
		return
	}

	batch, err := s.coordinator.Process(r.Context(), inputs, pol, mode)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyBatch):
			s.writeErrorResponse(w, "No files provided", http.StatusBadRequest)
		case errors.Is(err, pipeline.ErrBatchTooLarge):
			s.writeErrorResponse(w, err.Error(), http.StatusRequestEntityTooLarge)
		default:
			s.logger.Error("batch processing failed", "error", err)
			s.writeErrorResponse(w, "Batch processing failed", http.StatusInternalServerError)
		}
		return
	}

	s.writeBatchResponse(w, r, batch)
}

// resolveBatchParams reads tier and mode from the form, applying server
// defaults for missing values.
func (s *Server) resolveBatchParams(w http.ResponseWriter, r *http.Request) (tier.Policy, pipeline.Mode, bool) {
	tierName := r.FormValue("tier")
	if tierName == "" {
		tierName = s.defaultTier
	}
	pol, err := tier.ByName(tierName)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return tier.Policy{}, "", false
	}

	modeName := r.FormValue("mode")
	if modeName == "" {
		modeName = s.defaultMode
	}
	mode, err := pipeline.ParseMode(modeName)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return tier.Policy{}, "", false
	}

	return pol, mode, true
}

// readUploads collects the uploaded files in form order.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]pipeline.RawInput, bool) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		s.writeErrorResponse(w, "No files provided", http.StatusBadRequest)
		return nil, false
	}

	headers := r.MultipartForm.File["files"]
	inputs := make([]pipeline.RawInput, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Failed to open upload %q", hdr.Filename), http.StatusBadRequest)
			return nil, false
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Failed to read upload %q", hdr.Filename), http.StatusBadRequest)
			return nil, false
		}
		uploadSizeBytes.Observe(float64(len(data)))
		inputs = append(inputs, pipeline.RawInput{
			Name:      hdr.Filename,
			Data:      data,
			MediaType: hdr.Header.Get("Content-Type"),
		})
	}
	return inputs, true
}

// writeBatchResponse renders the batch in the requested format, JSON by
// default.
func (s *Server) writeBatchResponse(w http.ResponseWriter, r *http.Request, batch invoice.BatchResult) {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="extractions.csv"`)
		if err := export.WriteCSV(w, batch); err != nil {
			s.logger.Error("CSV render failed", "error", err)
		}
	case "xlsx":
		data, err := export.WriteXLSX(batch)
		if err != nil {
			s.writeErrorResponse(w, "XLSX rendering failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="extractions.xlsx"`)
		_, _ = w.Write(data)
	case "", formatJSON:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(batch); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding batch response: %v\n", err)
		}
	default:
		s.writeErrorResponse(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
