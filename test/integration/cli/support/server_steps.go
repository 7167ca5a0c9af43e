package support

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/invopipe/invopipe/internal/config"
	"github.com/invopipe/invopipe/internal/server"
)

func (testCtx *TestContext) theExtractionServerIsRunning() error {
	if testCtx.HTTPServer != nil {
		return nil
	}

	srv, err := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 100,
		DefaultTier: "free",
		DefaultMode: "standard",
		Acquisition: config.DefaultConfig().Acquisition,
		Workers:     2,
		OCRLanguage: "eng",
		Logger:      testCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPServer = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastContentType = resp.Header.Get("Content-Type")
	return nil
}

func (testCtx *TestContext) iRequestGET(path string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(testCtx.HTTPServer.URL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

// postExtract uploads the scenario's staged inputs as a multipart request.
func (testCtx *TestContext) postExtract(params map[string]string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, value := range params {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	for _, in := range testCtx.Inputs {
		part, err := mw.CreateFormFile("files", in.Name)
		if err != nil {
			return fmt.Errorf("create form part for %s: %w", in.Name, err)
		}
		if _, err := part.Write(in.Data); err != nil {
			return fmt.Errorf("write form part for %s: %w", in.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(testCtx.HTTPServer.URL+"/extract", mw.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("POST /extract: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iUploadTheBatchToTheExtractEndpoint() error {
	return testCtx.postExtract(map[string]string{
		"tier": testCtx.TierName,
		"mode": testCtx.ModeName,
	})
}

func (testCtx *TestContext) iUploadTheBatchWithFormat(format string) error {
	return testCtx.postExtract(map[string]string{
		"tier":   testCtx.TierName,
		"mode":   testCtx.ModeName,
		"format": format,
	})
}

func (testCtx *TestContext) iUploadTheBatchWithTier(tierName string) error {
	return testCtx.postExtract(map[string]string{
		"tier": tierName,
		"mode": testCtx.ModeName,
	})
}

func (testCtx *TestContext) iPostToTheExtractEndpointWithNoFiles() error {
	return testCtx.postExtract(map[string]string{"tier": testCtx.TierName})
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s",
			status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(substr string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, substr) {
		return fmt.Errorf("response does not contain %q:\n%s", substr, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseContentTypeShouldBe(contentType string) error {
	if !strings.HasPrefix(testCtx.LastContentType, contentType) {
		return fmt.Errorf("expected content type %q, got %q", contentType, testCtx.LastContentType)
	}
	return nil
}

// RegisterServerSteps wires the HTTP server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the extraction server is running$`, testCtx.theExtractionServerIsRunning)
	sc.Step(`^I request GET "([^"]*)"$`, testCtx.iRequestGET)
	sc.Step(`^I upload the batch to the extract endpoint$`, testCtx.iUploadTheBatchToTheExtractEndpoint)
	sc.Step(`^I upload the batch with format "([^"]*)"$`, testCtx.iUploadTheBatchWithFormat)
	sc.Step(`^I upload the batch with tier "([^"]*)"$`, testCtx.iUploadTheBatchWithTier)
	sc.Step(`^I post to the extract endpoint with no files$`, testCtx.iPostToTheExtractEndpointWithNoFiles)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response content type should be "([^"]*)"$`, testCtx.theResponseContentTypeShouldBe)
}
