package sprite

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/logger"
)

// Component owns a sprite and its settings. Nothing regenerates on its own:
// callers invoke Regenerate when the sprite loads and SetSettings when a
// parameter changes.
type Component struct {
	mu       sync.Mutex
	sprite   Sprite
	settings Settings
	readback Readback
	sink     Sink

	last    Result
	hasLast bool
}

// NewComponent creates a component with the given settings.
func NewComponent(s Sprite, settings Settings) *Component {
	return &Component{sprite: s, settings: settings}
}

// SetReadback sets the fallback used for non-readable textures.
func (c *Component) SetReadback(rb Readback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readback = rb
}

// SetSink sets the object that receives each generated mesh.
func (c *Component) SetSink(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Sprite returns the current sprite.
func (c *Component) Sprite() Sprite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sprite
}

// SetSprite replaces the sprite without regenerating.
func (c *Component) SetSprite(s Sprite) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sprite = s
}

// Settings returns the current settings.
func (c *Component) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the settings and regenerates. Invalid settings are
// rejected and the previous ones kept.
func (c *Component) SetSettings(s Settings) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return c.Regenerate()
}

// Regenerate rebuilds the mesh and hands it to the sink. On failure the
// previous result stays current.
func (c *Component) Regenerate() (Result, error) {
	c.mu.Lock()
	s, settings, rb, sink := c.sprite, c.settings, c.readback, c.sink
	c.mu.Unlock()

	log := logger.Named("sprite")
	start := time.Now()

	res, err := Generate(s, settings, rb)
	if err != nil {
		log.Warn("regenerate failed", zap.String("sprite", s.Name), zap.Error(err))
		return Result{}, err
	}

	log.Debug("regenerated",
		zap.String("sprite", s.Name),
		zap.Int("opaque", res.Stats.Opaque),
		zap.Int("faces", res.Mesh.FaceCount()),
		zap.Float32("depth", res.Mesh.Depth),
		zap.Duration("took", time.Since(start)),
	)

	if sink != nil {
		if err := sink.Apply(res); err != nil {
			return Result{}, fmt.Errorf("apply mesh %s: %w", s.Name, err)
		}
	}

	c.mu.Lock()
	c.last, c.hasLast = res, true
	c.mu.Unlock()
	return res, nil
}

// Last returns the most recent successful result.
func (c *Component) Last() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}
