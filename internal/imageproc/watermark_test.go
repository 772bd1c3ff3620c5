package imageproc

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyWatermark(t *testing.T) {
	t.Parallel()

	out, err := ApplyWatermark(pngBytes(t, 200, 300), "TENDERSPRO.CO")
	require.NoError(t, err)

	assert.Equal(t, FormatJPEG, DetectFormat(out), "branded output is always JPEG")

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestApplyWatermarkChangesPixels(t *testing.T) {
	t.Parallel()

	src := pngBytes(t, 120, 120)

	plain, err := ApplyWatermark(src, " ")
	require.NoError(t, err)
	marked, err := ApplyWatermark(src, "TENDERSPRO.CO")
	require.NoError(t, err)

	assert.NotEqual(t, plain, marked, "the mark must actually land on the image")
}

func TestApplyWatermarkTinyImage(t *testing.T) {
	t.Parallel()

	// Degenerate sizes must not panic the scaler.
	out, err := ApplyWatermark(pngBytes(t, 2, 2), "TENDERSPRO.CO")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestApplyWatermarkRejectsEmptyText(t *testing.T) {
	t.Parallel()

	_, err := ApplyWatermark(pngBytes(t, 10, 10), "")
	assert.Error(t, err)
}

func TestApplyWatermarkRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ApplyWatermark([]byte("garbage"), "TENDERSPRO.CO")
	assert.Error(t, err)
}
