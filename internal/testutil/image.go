// Package testutil provides shared helpers for tests: synthetic document
// images and canonical sample document texts.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CreateTestImage returns a solid-color image of the given size.
func CreateTestImage(width, height int, background color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	return img
}

// GenerateTextImage renders text lines onto a white background with the
// basic fixed font. Good enough for exercising image plumbing; not meant to
// be OCR-accurate.
func GenerateTextImage(text string, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	y := 20
	for _, line := range strings.Split(text, "\n") {
		d := &font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{C: color.Black},
			Face: face,
			Dot:  fixed.P(10, y),
		}
		d.DrawString(line)
		y += face.Height + 4
	}
	return img
}

// EncodePNG returns the PNG bytes of an image.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
