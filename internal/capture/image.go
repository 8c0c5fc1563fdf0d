package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Image is a captured screen region. Pix holds row-major pixel samples,
// four bytes each in blue, green, red, alpha order; the alpha channel is
// ignored. Left and Top are the absolute screen coordinates of the
// upper-left corner of the capture.
type Image struct {
	Pix    []byte
	Left   int
	Top    int
	Width  int
	Height int
}

// Validate checks that the pixel payload matches the declared dimensions.
func (img Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid capture dimensions %dx%d", img.Width, img.Height)
	}
	if want := img.Width * img.Height * 4; len(img.Pix) != want {
		return fmt.Errorf("capture payload is %d bytes, expected %d", len(img.Pix), want)
	}
	return nil
}

// ToRGBA converts the BGRX samples into a standard RGBA image with an
// opaque alpha channel.
func (img Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i+3 < len(img.Pix); i += 4 {
		out.Pix[i] = img.Pix[i+2]
		out.Pix[i+1] = img.Pix[i+1]
		out.Pix[i+2] = img.Pix[i]
		out.Pix[i+3] = 0xff
	}
	return out
}

// FromRGBA builds a capture from a decoded image, converting back to the
// BGRX sample order. Used by the one-shot CLI where the input is a file
// rather than a live capture.
func FromRGBA(src image.Image, left, top int) Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba, ok := src.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Copy(rgba, image.Point{}, src, bounds, draw.Src, nil)
	}
	pix := make([]byte, w*h*4)
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		pix[i] = rgba.Pix[i+2]
		pix[i+1] = rgba.Pix[i+1]
		pix[i+2] = rgba.Pix[i]
		pix[i+3] = 0
	}
	return Image{Pix: pix, Left: left, Top: top, Width: w, Height: h}
}

// EncodePNG renders the capture as PNG bytes for backends that consume
// encoded images. Captures narrower than minWidth are upscaled with
// bilinear interpolation; small screen regions recognize poorly at native
// resolution. The returned scale factor (>= 1) must be divided back out of
// any coordinates the backend reports.
func EncodePNG(img Image, minWidth int) ([]byte, int, error) {
	if err := img.Validate(); err != nil {
		return nil, 0, err
	}
	src := img.ToRGBA()
	scale := 1
	if minWidth > 0 && img.Width < minWidth {
		scale = (minWidth + img.Width - 1) / img.Width
		scaled := image.NewRGBA(image.Rect(0, 0, img.Width*scale, img.Height*scale))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		src = scaled
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, 0, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), scale, nil
}
