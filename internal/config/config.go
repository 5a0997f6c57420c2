// Package config handles tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/Faultbox/midgard-extrude/internal/sprite"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Extrude ExtrudeConfig `yaml:"extrude"`
	Export  ExportConfig  `yaml:"export"`
	Batch   BatchConfig   `yaml:"batch"`
	Data    DataConfig    `yaml:"data"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExtrudeConfig holds mesh generation settings.
type ExtrudeConfig struct {
	Threshold float32 `yaml:"threshold"`  // alpha cutoff in [0,1]
	Border    bool    `yaml:"border"`     // back and side faces
	AutoDepth bool    `yaml:"auto_depth"` // depth = 1/max(w,h)
	Depth     float32 `yaml:"depth"`      // used when auto_depth is off
}

// ExportConfig holds output settings for build and batch.
type ExportConfig struct {
	OutputDir     string  `yaml:"output_dir"`
	Preview       bool    `yaml:"preview"`
	PreviewFormat string  `yaml:"preview_format"` // webp or png
	PreviewSize   int     `yaml:"preview_size"`
	Supersample   int     `yaml:"supersample"`
	Yaw           float64 `yaml:"yaw"`   // radians
	Pitch         float64 `yaml:"pitch"` // radians
	Scale         float32 `yaml:"scale"` // OBJ vertex scale
	Center        bool    `yaml:"center"`
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 = one per CPU
}

// DataConfig holds game data file paths.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths"`
}

// ViewerConfig holds interactive viewer settings.
type ViewerConfig struct {
	Width       int  `yaml:"width"`
	Height      int  `yaml:"height"`
	Fullscreen  bool `yaml:"fullscreen"`
	VSync       bool `yaml:"vsync"`
	GPUReadback bool `yaml:"gpu_readback"` // read sprite pixels back from a GL texture
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Extrude: ExtrudeConfig{
			Threshold: 0.1,
			Border:    true,
			AutoDepth: true,
			Depth:     0.1,
		},
		Export: ExportConfig{
			OutputDir:     "out",
			Preview:       true,
			PreviewFormat: "webp",
			PreviewSize:   256,
			Supersample:   2,
			Yaw:           0.6,
			Pitch:         0.35,
			Scale:         1,
			Center:        false,
		},
		Batch: BatchConfig{
			Workers: 0,
		},
		Data: DataConfig{
			GRFPaths: []string{"data.grf"},
		},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	// Negated comparisons also reject NaN.
	if !(c.Extrude.Threshold >= 0 && c.Extrude.Threshold <= 1) {
		return fmt.Errorf("%w: extrude.threshold %v outside [0,1]", ErrInvalid, c.Extrude.Threshold)
	}
	if !(c.Extrude.Depth >= 0) || math.IsInf(float64(c.Extrude.Depth), 1) {
		return fmt.Errorf("%w: extrude.depth %v is not a finite non-negative value", ErrInvalid, c.Extrude.Depth)
	}
	switch c.Export.PreviewFormat {
	case "webp", "png":
	default:
		return fmt.Errorf("%w: export.preview_format %q (want webp or png)", ErrInvalid, c.Export.PreviewFormat)
	}
	if c.Export.PreviewSize <= 0 {
		return fmt.Errorf("%w: export.preview_size %d", ErrInvalid, c.Export.PreviewSize)
	}
	if c.Export.Supersample < 1 {
		return fmt.Errorf("%w: export.supersample %d", ErrInvalid, c.Export.Supersample)
	}
	if c.Export.Scale <= 0 {
		return fmt.Errorf("%w: export.scale %v", ErrInvalid, c.Export.Scale)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: batch.workers %d", ErrInvalid, c.Batch.Workers)
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("%w: viewer size %dx%d", ErrInvalid, c.Viewer.Width, c.Viewer.Height)
	}
	return nil
}

// SpriteSettings converts the extrude section to component settings.
func (c *Config) SpriteSettings() sprite.Settings {
	return sprite.Settings{
		GenerateBorder:  c.Extrude.Border,
		AutoBorderDepth: c.Extrude.AutoDepth,
		BorderDepth:     c.Extrude.Depth,
		Threshold:       c.Extrude.Threshold,
	}
}

// Workers returns the effective worker count.
func (c *Config) Workers() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}
