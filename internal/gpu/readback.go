package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-extrude/internal/sprite"
	"github.com/Faultbox/midgard-extrude/internal/texture"
)

// Readback errors.
var (
	ErrNotGPUTexture = errors.New("texture is not a GPU texture")
	ErrIncomplete    = errors.New("framebuffer incomplete")
)

// Readback copies a GPU texture back into CPU memory through a temporary
// framebuffer. It satisfies sprite.Readback.
func Readback(tex sprite.Texture) (*image.NRGBA, error) {
	t, ok := tex.(*Texture)
	if !ok || t.ID == 0 {
		return nil, fmt.Errorf("%w: %T", ErrNotGPUTexture, tex)
	}

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	defer func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
		gl.DeleteFramebuffers(1, &fbo)
	}()

	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.ID, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("readback: %w: 0x%x", ErrIncomplete, status)
	}

	// GL rows are bottom-up; the result is flipped back to a top-left origin.
	bottomUp := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(t.Width), int32(t.Height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(bottomUp.Pix))
	if err := checkError("readback"); err != nil {
		return nil, err
	}
	return texture.FlipVertical(bottomUp), nil
}
