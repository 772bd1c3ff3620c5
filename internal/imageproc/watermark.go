package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// watermarkOpacity is deliberately faint; the mark deters reuse
	// without obscuring the tender text.
	watermarkOpacity = 0.08

	// watermarkHeightRatio places the mark near the bottom of the scan.
	watermarkHeightRatio = 0.85

	// watermarkWidthRatio bounds the rendered text width.
	watermarkWidthRatio = 0.6

	// jpegQuality is the final encode quality for branded output.
	jpegQuality = 70
)

// ApplyWatermark composites the brand text onto the image near the
// bottom edge and re-encodes as JPEG. The input may be any decodable
// format.
func ApplyWatermark(data []byte, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("watermark text is empty")
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := flattenOnWhite(src)
	stampText(dst, text)

	return EncodeJPEG(dst, jpegQuality)
}

// stampText renders the text into a small mask, scales it to the target
// width, and blends it centered at the configured height.
func stampText(dst *image.RGBA, text string) {
	mask := renderText(text)
	if mask == nil {
		return
	}

	bounds := dst.Bounds()
	targetW := int(float64(bounds.Dx()) * watermarkWidthRatio)
	if targetW < 1 {
		targetW = 1
	}
	scale := float64(targetW) / float64(mask.Bounds().Dx())
	targetH := int(float64(mask.Bounds().Dy()) * scale)
	if targetH < 1 {
		targetH = 1
	}

	scaled := image.NewAlpha(image.Rect(0, 0, targetW, targetH))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), xdraw.Over, nil)

	x := bounds.Min.X + (bounds.Dx()-targetW)/2
	y := bounds.Min.Y + int(float64(bounds.Dy())*watermarkHeightRatio) - targetH/2

	opacity := watermarkOpacity
	ink := color.NRGBA{A: uint8(math.Round(255 * opacity))}
	target := image.Rect(x, y, x+targetW, y+targetH)
	draw.DrawMask(dst, target, image.NewUniform(ink), image.Point{}, scaled, image.Point{}, draw.Over)
}

// renderText draws the text with the embedded bitmap face into an alpha
// mask sized to fit it exactly.
func renderText(text string) *image.Alpha {
	face := basicfont.Face7x13

	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	if width < 1 || height < 1 {
		return nil
	}

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
	return mask
}
