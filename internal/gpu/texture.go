// Package gpu holds the OpenGL helpers shared by the viewer: texture upload,
// pixel readback, offscreen framebuffers and shader compilation. All calls
// must run on the thread that owns the GL context.
package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-extrude/internal/texture"
)

// ErrGL wraps a non-zero glGetError result.
var ErrGL = errors.New("opengl error")

// Texture is a 2D RGBA texture living on the GPU. Its pixels are not
// CPU-readable; use Readback to fetch them.
type Texture struct {
	ID     uint32
	Width  int
	Height int
}

// Bounds returns the texture size with a top-left origin.
func (t *Texture) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.Width, t.Height)
}

// Upload creates a nearest-filtered texture from img. Rows are flipped so
// GL row 0 is the bottom of the image, matching mesh UVs.
func Upload(img *image.NRGBA) (*Texture, error) {
	flipped := texture.FlipVertical(img)
	w, h := int32(flipped.Rect.Dx()), int32(flipped.Rect.Dy())
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("upload: empty image %v", img.Rect)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(flipped.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := checkError("upload"); err != nil {
		gl.DeleteTextures(1, &id)
		return nil, err
	}
	return &Texture{ID: id, Width: int(w), Height: int(h)}, nil
}

// Delete releases the GL texture.
func (t *Texture) Delete() {
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
		t.ID = 0
	}
}

// checkError drains the GL error queue and reports the first error.
func checkError(op string) error {
	first := gl.GetError()
	if first == gl.NO_ERROR {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}
	return fmt.Errorf("%s: %w 0x%x", op, ErrGL, first)
}
