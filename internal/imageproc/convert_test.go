package imageproc

import (
	"bytes"
	"image"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", pngBytes(t, 4, 4), FormatPNG},
		{"jpeg", jpegBytes(t, 4, 4), FormatJPEG},
		{"gif", gifBytes(t, 4, 4), FormatGIF},
		{"webp header", append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...), FormatWEBP},
		{"garbage", []byte("this is definitely not an image"), FormatUnknown},
		{"too short", []byte{0x89, 0x50}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestToPNGFromGIF(t *testing.T) {
	t.Parallel()

	out, err := ToPNG(gifBytes(t, 8, 6))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, DetectFormat(out))

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestToPNGFlattensTransparency(t *testing.T) {
	t.Parallel()

	// Fully transparent input must come out white, not black.
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := ToPNG(buf.Bytes())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestToPNGRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ToPNG([]byte("not an image at all, sorry"))
	assert.Error(t, err)
}

func TestFormatMetadata(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jpg", FormatJPEG.Extension())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
	assert.Equal(t, "png", FormatPNG.Extension())
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "bin", FormatUnknown.Extension())
}
