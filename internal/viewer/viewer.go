// Package viewer is an interactive SDL2/OpenGL host for one sprite mesh.
// Keys change the extrusion settings and regenerate the mesh on the spot.
package viewer

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/gpu"
	"github.com/Faultbox/midgard-extrude/internal/logger"
	"github.com/Faultbox/midgard-extrude/internal/preview"
	"github.com/Faultbox/midgard-extrude/internal/sprite"
	"github.com/Faultbox/midgard-extrude/pkg/math"
)

// Options configures the viewer.
type Options struct {
	Window WindowConfig
	// GPUReadback uploads the sprite to a GL texture and lets the component
	// read it back, as it would for a texture that is not CPU-readable.
	GPUReadback bool
	// SnapshotDir receives the images written by the snapshot key.
	SnapshotDir string
}

// Viewer renders the mesh produced by a sprite component. It implements
// sprite.Sink; Apply must run on the GL thread, which holds as long as the
// component is only driven from Run.
type Viewer struct {
	opts Options
	comp *sprite.Component
	log  *zap.Logger

	win    *window
	in     input
	cam    *OrbitCamera
	mesh   *meshRenderer
	source *gpu.Texture

	faces     int
	fitted    bool
	snapshots int
}

// New opens the window and attaches the viewer to comp as its sink.
func New(opts Options, comp *sprite.Component) (*Viewer, error) {
	log := logger.Named("viewer")

	win, err := openWindow(opts.Window, log)
	if err != nil {
		return nil, err
	}

	mesh, err := newMeshRenderer()
	if err != nil {
		win.close()
		return nil, err
	}

	v := &Viewer{
		opts: opts,
		comp: comp,
		log:  log,
		win:  win,
		cam:  NewOrbitCamera(),
		mesh: mesh,
	}

	if opts.GPUReadback {
		if err := v.moveToGPU(); err != nil {
			v.Close()
			return nil, err
		}
	}

	comp.SetSink(v)
	return v, nil
}

// moveToGPU swaps the sprite's readable image for a GPU texture.
func (v *Viewer) moveToGPU() error {
	s := v.comp.Sprite()
	img, ok := s.Texture.(*image.NRGBA)
	if !ok {
		return fmt.Errorf("gpu readback: sprite %s texture is %T, want *image.NRGBA", s.Name, s.Texture)
	}
	tex, err := gpu.Upload(img)
	if err != nil {
		return fmt.Errorf("gpu readback: %w", err)
	}
	v.source = tex
	s.Texture = tex
	v.comp.SetSprite(s)
	v.comp.SetReadback(gpu.Readback)
	v.log.Info("sprite texture moved to GPU", zap.Uint32("texture", tex.ID))
	return nil
}

// Apply uploads a freshly generated mesh and its texture.
func (v *Viewer) Apply(res sprite.Result) error {
	if err := v.mesh.setTexture(res.Image); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	v.mesh.upload(res.Mesh)
	v.faces = res.Mesh.FaceCount()

	if !v.fitted && !res.Mesh.Empty() {
		lo, hi := res.Mesh.Bounds()
		lo.Z, hi.Z = -hi.Z, -lo.Z
		v.cam.FitToBounds(lo, hi)
		v.fitted = true
	}
	return nil
}

// Run generates the first mesh and drives the event loop until quit.
func (v *Viewer) Run() error {
	if _, err := v.comp.Regenerate(); err != nil {
		return err
	}
	v.updateTitle()

	for {
		v.in.poll()
		if v.in.quit {
			return nil
		}
		for _, key := range v.in.keys {
			if keyActions[key] == ActionQuit {
				return nil
			}
			v.handle(keyActions[key])
		}
		if v.in.dragX != 0 || v.in.dragY != 0 {
			v.cam.HandleDrag(v.in.dragX, v.in.dragY)
		}
		if v.in.wheel != 0 {
			v.cam.HandleZoom(v.in.wheel)
		}

		w, h := v.win.drawableSize()
		gl.Viewport(0, 0, w, h)
		v.render(w, h)
		v.win.swap()
	}
}

func (v *Viewer) handle(a Action) {
	switch a {
	case ActionNone:
		return
	case ActionRegenerate:
		if _, err := v.comp.Regenerate(); err != nil {
			v.log.Warn("regenerate failed", zap.Error(err))
		}
	case ActionSnapshot:
		if err := v.snapshot(); err != nil {
			v.log.Warn("snapshot failed", zap.Error(err))
		}
	default:
		settings, changed := Adjust(v.comp.Settings(), a)
		if !changed {
			return
		}
		if _, err := v.comp.SetSettings(settings); err != nil {
			v.log.Warn("settings rejected", zap.Error(err))
		}
	}
	v.updateTitle()
}

func (v *Viewer) render(w, h int32) {
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	aspect := float32(w) / float32(max(h, 1))
	proj := math.Perspective(0.8, aspect, 0.01, 100)
	v.mesh.draw(proj.Mul(v.cam.ViewMatrix()))
}

// snapshot renders the current view offscreen and saves it as WebP.
func (v *Viewer) snapshot() error {
	w, h := v.win.drawableSize()
	fb, err := gpu.NewFramebuffer(w, h)
	if err != nil {
		return err
	}
	defer fb.Destroy()

	restore := fb.Bind()
	v.render(w, h)
	img, err := fb.Image()
	restore()
	if err != nil {
		return err
	}

	if v.opts.SnapshotDir != "" {
		if err := os.MkdirAll(v.opts.SnapshotDir, 0755); err != nil {
			return err
		}
	}

	v.snapshots++
	name := fmt.Sprintf("%s_%s_%d.webp", v.comp.Sprite().Name, time.Now().Format("20060102_150405"), v.snapshots)
	path := filepath.Join(v.opts.SnapshotDir, name)
	if err := preview.Save(path, img); err != nil {
		return err
	}
	v.log.Info("snapshot saved", zap.String("path", path))
	return nil
}

func (v *Viewer) updateTitle() {
	s := v.comp.Settings()
	depth := "auto"
	if !s.AutoBorderDepth {
		depth = fmt.Sprintf("%.2f", s.BorderDepth)
	}
	v.win.setTitle(fmt.Sprintf("%s | %d faces | border %v | depth %s | threshold %.2f",
		v.opts.Window.Title, v.faces, s.GenerateBorder, depth, s.Threshold))
}

// Close releases GL resources and the window.
func (v *Viewer) Close() {
	if v.mesh != nil {
		v.mesh.destroy()
	}
	if v.source != nil {
		v.source.Delete()
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		v.log.Debug("closing with pending gl error", zap.Uint32("code", code))
	}
	v.win.close()
}
