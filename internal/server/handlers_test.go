package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invopipe/invopipe/internal/config"
	"github.com/invopipe/invopipe/internal/invoice"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		DefaultTier: "free",
		DefaultMode: "standard",
		Acquisition: config.DefaultConfig().Acquisition,
		Workers:     2,
		OCRLanguage: "eng",
	})
	require.NoError(t, err)
	return srv
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	newTestServer(t).SetupRoutes(mux)
	return mux
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthEndpointRejectsPost(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTiersEndpoint(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/tiers", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TiersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "free", resp.Tiers[0].Name)
	assert.False(t, resp.Tiers[0].OCREnabled)
	assert.Equal(t, []string{"standard_invoice"}, resp.Tiers[0].DocumentTypes)
	assert.True(t, resp.Tiers[1].OCREnabled)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestExtractEndpointNoFiles(t *testing.T) {
	mux := newTestMux(t)

	body, contentType := multipartBody(t, map[string]string{"tier": "free"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "No files")
}

func TestExtractEndpointUnknownTier(t *testing.T) {
	mux := newTestMux(t)

	body, contentType := multipartBody(t,
		map[string]string{"tier": "platinum"},
		map[string][]byte{"a.pdf": []byte("%PDF-1.4")})
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractEndpointBatchTooLarge(t *testing.T) {
	mux := newTestMux(t)

	files := make(map[string][]byte, 6)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files[name+".pdf"] = []byte("%PDF-1.4 " + name)
	}
	body, contentType := multipartBody(t, map[string]string{"tier": "free"}, files)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestExtractEndpointEmptyPDF(t *testing.T) {
	mux := newTestMux(t)

	body, contentType := multipartBody(t, nil, map[string][]byte{"zero.pdf": {}})
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var batch invoice.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Results, 1)
	assert.Equal(t, 0, batch.Succeeded)
	assert.Equal(t, "zero.pdf", batch.Results[0].Filename)
	assert.Equal(t, "empty_file", batch.Results[0].ErrorKind)
}

func TestExtractEndpointCSVFormat(t *testing.T) {
	mux := newTestMux(t)

	body, contentType := multipartBody(t,
		map[string]string{"format": "csv"},
		map[string][]byte{"zero.pdf": {}})
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2, "header plus one error row")
	assert.True(t, strings.HasPrefix(lines[0], "filename,"))
	assert.True(t, strings.HasPrefix(lines[1], "zero.pdf,"))
}

func TestExtractEndpointRejectsGet(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/extract", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
