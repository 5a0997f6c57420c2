// Package sprite wires a sprite texture to the extruder and hands generated
// meshes to a renderable host object.
package sprite

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/Faultbox/midgard-extrude/internal/texture"
	"github.com/Faultbox/midgard-extrude/pkg/extrude"
)

// Errors returned while resolving a sprite's pixels.
var (
	ErrNotReadable = errors.New("texture is not CPU-readable and no readback is set")
	ErrNoTexture   = errors.New("sprite has no texture")
	ErrRect        = errors.New("sprite rect outside texture")
	ErrSettings    = errors.New("invalid settings")
)

// Texture is anything with pixel bounds. An image.Image is readable directly;
// other textures (GPU handles) need a Readback.
type Texture interface {
	Bounds() image.Rectangle
}

// Readback converts a non-readable texture into pixels. It may fail.
type Readback func(tex Texture) (*image.NRGBA, error)

// Sprite is a rectangle of a texture. Rect uses top-left origin like
// image.Rectangle; an empty Rect selects the whole texture.
type Sprite struct {
	Name    string
	Texture Texture
	Rect    image.Rectangle
}

// Settings are the user-tunable extrusion parameters.
type Settings struct {
	GenerateBorder  bool
	AutoBorderDepth bool
	BorderDepth     float32
	Threshold       float32
}

// DefaultSettings returns threshold 0.1 with an auto-depth border.
func DefaultSettings() Settings {
	return Settings{
		GenerateBorder:  true,
		AutoBorderDepth: true,
		BorderDepth:     0.1,
		Threshold:       0.1,
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	// Negated comparisons also reject NaN.
	if !(s.Threshold >= 0 && s.Threshold <= 1) {
		return fmt.Errorf("%w: threshold %v outside [0,1]", ErrSettings, s.Threshold)
	}
	if !(s.BorderDepth >= 0) || math.IsInf(float64(s.BorderDepth), 1) {
		return fmt.Errorf("%w: border depth %v is not a finite non-negative value", ErrSettings, s.BorderDepth)
	}
	return nil
}

// Options converts the settings to extruder options.
func (s Settings) Options() extrude.Options {
	return extrude.Options{
		Threshold: s.Threshold,
		Border:    s.GenerateBorder,
		AutoDepth: s.AutoBorderDepth,
		Depth:     s.BorderDepth,
	}
}

// Result is one generated mesh with the pixels it was built from.
type Result struct {
	Sprite Sprite
	Mesh   *extrude.Mesh
	Image  *image.NRGBA // full readable texture, top-left origin
	Stats  extrude.Stats
}

// Sink receives generated meshes, typically a renderer.
type Sink interface {
	Apply(Result) error
}

// Pixels returns the sprite texture as NRGBA, using rb for
// textures that are not image.Images.
func Pixels(s Sprite, rb Readback) (*image.NRGBA, error) {
	if s.Texture == nil {
		return nil, ErrNoTexture
	}
	if img, ok := s.Texture.(image.Image); ok {
		return texture.ToNRGBA(img), nil
	}
	if rb == nil {
		return nil, ErrNotReadable
	}
	img, err := rb(s.Texture)
	if err != nil {
		return nil, fmt.Errorf("readback %s: %w", s.Name, err)
	}
	return img, nil
}

// Region returns the sprite's bottom-up extrusion region inside an image of
// the given size.
func (s Sprite) Region(size image.Point) (extrude.Region, error) {
	full := image.Rectangle{Max: size}
	rect := s.Rect
	if rect.Empty() {
		rect = full
	}
	if !rect.In(full) {
		return extrude.Region{}, fmt.Errorf("%w: %v not in %v", ErrRect, rect, full)
	}
	return texture.FlipRect(rect, size.Y), nil
}

// Generate builds the mesh for one sprite without any host state.
func Generate(s Sprite, settings Settings, rb Readback) (Result, error) {
	if err := settings.Validate(); err != nil {
		return Result{}, err
	}
	img, err := Pixels(s, rb)
	if err != nil {
		return Result{}, err
	}
	region, err := s.Region(img.Rect.Size())
	if err != nil {
		return Result{}, err
	}

	mesh, stats := extrude.GenerateWithStats(texture.NewSource(img), region, settings.Options())
	return Result{Sprite: s, Mesh: mesh, Image: img, Stats: stats}, nil
}
