package texture

import (
	"image"

	"github.com/Faultbox/midgard-extrude/pkg/extrude"
)

// Source exposes an NRGBA image as an extrude.PixelSource. Row 0 is the
// bottom of the image, matching how UVs sample the texture.
type Source struct {
	img *image.NRGBA
}

// NewSource wraps img. The image is not copied.
func NewSource(img *image.NRGBA) *Source {
	return &Source{img: img}
}

// Alpha returns A/255 at bottom-up coordinates, or 0 outside the image.
func (s *Source) Alpha(x, y int) float32 {
	b := s.img.Rect
	if x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
		return 0
	}
	i := s.img.PixOffset(b.Min.X+x, b.Max.Y-1-y)
	return float32(s.img.Pix[i+3]) / 255
}

// Size returns the image dimensions.
func (s *Source) Size() (int, int) {
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

// Image returns the wrapped image.
func (s *Source) Image() *image.NRGBA {
	return s.img
}

// FlipRect converts a top-left-origin rectangle into a bottom-up region of
// an image with the given height.
func FlipRect(rect image.Rectangle, height int) extrude.Region {
	rect = rect.Canon()
	return extrude.Region{
		X:      rect.Min.X,
		Y:      height - rect.Max.Y,
		Width:  rect.Dx(),
		Height: rect.Dy(),
	}
}

// FlipVertical returns a copy of img with its rows reversed.
func FlipVertical(img *image.NRGBA) *image.NRGBA {
	b := img.Rect
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Max.Y-1-y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rowLen], img.Pix[src:src+rowLen])
	}
	return out
}
