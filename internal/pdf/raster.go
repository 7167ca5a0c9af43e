package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrCorrupt indicates a PDF that could not be decoded even with relaxed
// validation. The message is safe to surface to end users.
var ErrCorrupt = errors.New("PDF format not supported or corrupted")

// Rasterizer renders the leading pages of a PDF into bitmap images for OCR.
// Scale multiplies the native image resolution; values below 1 trade
// recognition quality for speed and memory.
type Rasterizer struct {
	Scale float64
}

// NewRasterizer returns a rasterizer rendering at native resolution.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Scale: 1.0}
}

// RenderPages extracts page images for up to maxPages leading pages. If the
// first extraction attempt fails, one alternate decode configuration
// (relaxed validation, halved scale) is tried before giving up with
// ErrCorrupt.
func (r *Rasterizer) RenderPages(data []byte, maxPages int) ([]image.Image, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	tmpFile, err := os.CreateTemp("", "invopipe-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp pdf: %w", err)
	}

	images, err := r.extractPageImages(tmpFile.Name(), maxPages, nil, r.Scale)
	if err == nil && len(images) > 0 {
		return images, nil
	}

	// Alternate attempt: relaxed validation and a lower resolution. Covers
	// slightly malformed scans that strict parsing rejects.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	images, retryErr := r.extractPageImages(tmpFile.Name(), maxPages, conf, r.Scale/2)
	if retryErr != nil || len(images) == 0 {
		return nil, ErrCorrupt
	}
	return images, nil
}

// extractPageImages runs pdfcpu image extraction into a temp directory and
// decodes the per-page results in page order.
func (r *Rasterizer) extractPageImages(filename string, maxPages int, conf *model.Configuration, scale float64) ([]image.Image, error) {
	pageCount, err := api.PageCountFile(filename)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if pageCount == 0 {
		return nil, ErrNoPages
	}
	if pageCount > maxPages {
		pageCount = maxPages
	}

	tmpDir, err := os.MkdirTemp("", "invopipe-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pages = append(pages, strconv.Itoa(i))
	}

	if err := api.ExtractImagesFile(filename, tmpDir, pages, conf); err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	byPage, err := collectPageImages(tmpDir)
	if err != nil {
		return nil, err
	}

	pageNums := make([]int, 0, len(byPage))
	for n := range byPage {
		pageNums = append(pageNums, n)
	}
	sort.Ints(pageNums)

	var out []image.Image
	for _, n := range pageNums {
		for _, img := range byPage[n] {
			out = append(out, scaleImage(img, scale))
		}
	}
	return out, nil
}

// collectPageImages walks the extraction directory and groups decoded images
// by page number, expecting pdfcpu's page_<num>_image_<idx>.<ext> naming.
func collectPageImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil {
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// parsePageFromFilename extracts the page number from a pdfcpu output name.
func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

func scaleImage(img image.Image, scale float64) image.Image {
	if scale <= 0 || scale == 1.0 {
		return img
	}
	bounds := img.Bounds()
	w := int(math.Round(float64(bounds.Dx()) * scale))
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, 0, imaging.Lanczos)
}
