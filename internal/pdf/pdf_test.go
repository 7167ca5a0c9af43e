package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLayerExtractorRejectsGarbage(t *testing.T) {
	e := NewTextLayerExtractor()

	_, _, err := e.Extract([]byte("this is not a pdf at all"), 10)
	assert.Error(t, err)
}

func TestTextLayerExtractorRejectsEmpty(t *testing.T) {
	e := NewTextLayerExtractor()

	_, _, err := e.Extract(nil, 10)
	assert.Error(t, err)
}

func TestRasterizerRejectsGarbage(t *testing.T) {
	r := NewRasterizer()

	_, err := r.RenderPages([]byte("%PDF-1.4 truncated nonsense"), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		page     int
		wantErr  bool
	}{
		{"standard image name", "page_3_image_1.png", 3, false},
		{"first page", "page_1_Im0.jpg", 1, false},
		{"no page marker", "thumbnail.png", 0, true},
		{"malformed number", "page_x_image.png", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := parsePageFromFilename(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, page)
		})
	}
}
