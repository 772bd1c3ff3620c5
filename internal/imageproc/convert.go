// Package imageproc turns raw tender scan images into displayable,
// branded assets.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

// Format is an image container format recognized by magic bytes.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWEBP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatUnknown Format = "unknown"
)

// Extension returns the filename extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	case FormatWEBP:
		return "webp"
	case FormatGIF:
		return "gif"
	default:
		return "bin"
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// DetectFormat sniffs the container format from the first bytes.
// Content-Type headers from the source lie often enough that the bytes
// are the only thing trusted.
func DetectFormat(data []byte) Format {
	if len(data) < 12 {
		return FormatUnknown
	}

	switch {
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FormatPNG
	case data[0] == 0xFF && data[1] == 0xD8:
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWEBP
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return FormatGIF
	default:
		return FormatUnknown
	}
}

// ToPNG re-encodes image bytes as a static PNG. Animated GIFs keep only
// their first frame, and any transparency is flattened onto a white
// background so scans do not bleed through dark UI themes.
func ToPNG(data []byte) ([]byte, error) {
	var src image.Image
	var err error

	if DetectFormat(data) == FormatGIF {
		g, gerr := gif.DecodeAll(bytes.NewReader(data))
		if gerr != nil {
			return nil, fmt.Errorf("decode gif: %w", gerr)
		}
		if len(g.Image) == 0 {
			return nil, fmt.Errorf("gif has no frames")
		}
		src = g.Image[0]
	} else {
		src, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}

	flattened := flattenOnWhite(src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flattened); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG writes the image at the pipeline's output quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func flattenOnWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)
	return dst
}
