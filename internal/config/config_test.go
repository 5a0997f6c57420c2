package config

import (
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Extrude.Threshold != 0.1 {
		t.Errorf("expected threshold 0.1, got %v", cfg.Extrude.Threshold)
	}
	if !cfg.Extrude.Border {
		t.Error("expected border to be on by default")
	}
	if !cfg.Extrude.AutoDepth {
		t.Error("expected auto depth to be on by default")
	}
	if cfg.Extrude.Depth != 0.1 {
		t.Errorf("expected depth 0.1, got %v", cfg.Extrude.Depth)
	}
	if cfg.Export.PreviewFormat != "webp" {
		t.Errorf("expected preview format webp, got %s", cfg.Export.PreviewFormat)
	}
	if cfg.Viewer.Width != 1280 || cfg.Viewer.Height != 720 {
		t.Errorf("expected viewer 1280x720, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "extrude.yaml")

	yamlContent := `
extrude:
  threshold: 0.5
  border: false
  auto_depth: false
  depth: 0.25

export:
  output_dir: "meshes"
  preview_format: "png"
  preview_size: 512
  supersample: 3

batch:
  workers: 4

data:
  grf_paths: ["rdata.grf", "data.grf"]

viewer:
  width: 800
  height: 600
  gpu_readback: true

logging:
  level: "debug"
  log_file: "extrude.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Extrude.Threshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Extrude.Threshold)
	}
	if cfg.Extrude.Border {
		t.Error("expected border to be false")
	}
	if cfg.Extrude.AutoDepth {
		t.Error("expected auto depth to be false")
	}
	if cfg.Extrude.Depth != 0.25 {
		t.Errorf("expected depth 0.25, got %v", cfg.Extrude.Depth)
	}
	if cfg.Export.OutputDir != "meshes" || cfg.Export.PreviewFormat != "png" {
		t.Errorf("unexpected export section: %+v", cfg.Export)
	}
	if cfg.Export.PreviewSize != 512 || cfg.Export.Supersample != 3 {
		t.Errorf("unexpected preview size: %+v", cfg.Export)
	}
	// Unset fields keep defaults.
	if cfg.Export.Scale != 1 {
		t.Errorf("expected default scale 1, got %v", cfg.Export.Scale)
	}
	if cfg.Workers() != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers())
	}
	if len(cfg.Data.GRFPaths) != 2 {
		t.Errorf("expected 2 GRF paths, got %v", cfg.Data.GRFPaths)
	}
	if !cfg.Viewer.GPUReadback || cfg.Viewer.Width != 800 {
		t.Errorf("unexpected viewer section: %+v", cfg.Viewer)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "extrude.log" {
		t.Errorf("unexpected logging section: %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
extrude:
  threshold: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Extrude.Threshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Extrude.Threshold = -0.1 }},
		{"negative depth", func(c *Config) { c.Extrude.Depth = -1 }},
		{"NaN threshold", func(c *Config) { c.Extrude.Threshold = float32(math.NaN()) }},
		{"NaN depth", func(c *Config) { c.Extrude.Depth = float32(math.NaN()) }},
		{"infinite depth", func(c *Config) { c.Extrude.Depth = float32(math.Inf(1)) }},
		{"unknown preview format", func(c *Config) { c.Export.PreviewFormat = "gif" }},
		{"zero preview size", func(c *Config) { c.Export.PreviewSize = 0 }},
		{"zero supersample", func(c *Config) { c.Export.Supersample = 0 }},
		{"zero scale", func(c *Config) { c.Export.Scale = 0 }},
		{"negative workers", func(c *Config) { c.Batch.Workers = -2 }},
		{"zero viewer width", func(c *Config) { c.Viewer.Width = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "extrude.yaml")
	if err := os.WriteFile(configPath, []byte("extrude:\n  threshold: 0.2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find extrude.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "border off overrides default",
			args: []string{"-border=false"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Extrude.Border {
					t.Error("expected border to be off")
				}
			},
		},
		{
			name: "depth implies manual mode",
			args: []string{"-depth", "0.5"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Extrude.AutoDepth {
					t.Error("expected auto depth off after -depth")
				}
				if cfg.Extrude.Depth != 0.5 {
					t.Errorf("expected depth 0.5, got %v", cfg.Extrude.Depth)
				}
			},
		},
		{
			name: "explicit auto depth wins over depth",
			args: []string{"-depth", "0.5", "-auto-depth=true"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Extrude.AutoDepth {
					t.Error("expected auto depth to stay on")
				}
			},
		},
		{
			name: "threshold and workers",
			args: []string{"-threshold", "0.75", "-workers", "3"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Extrude.Threshold != 0.75 {
					t.Errorf("expected threshold 0.75, got %v", cfg.Extrude.Threshold)
				}
				if cfg.Batch.Workers != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Batch.Workers)
				}
			},
		},
		{
			name: "unset flags leave defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Extrude.Threshold != 0.1 {
					t.Errorf("expected default threshold, got %v", cfg.Extrude.Threshold)
				}
				if cfg.Export.OutputDir != "out" {
					t.Errorf("expected default output dir, got %s", cfg.Export.OutputDir)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			flags.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "extrude.yaml")

	yamlContent := `
extrude:
  threshold: 0.3
  depth: 0.2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-threshold", "0.6"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Threshold from flag, depth from file.
	if cfg.Extrude.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6 from flag, got %v", cfg.Extrude.Threshold)
	}
	if cfg.Extrude.Depth != 0.2 {
		t.Errorf("expected depth 0.2 from file, got %v", cfg.Extrude.Depth)
	}
}

func TestLoadRejectsInvalidFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", "/nonexistent/x.yaml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Load(flags); err == nil {
		t.Error("expected error for missing explicit config")
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	flags = RegisterFlags(fs)
	configPath := filepath.Join(t.TempDir(), "ok.yaml")
	os.WriteFile(configPath, []byte("{}\n"), 0644)
	if err := fs.Parse([]string{"-config", configPath, "-threshold", "2"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Load(flags); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	for _, args := range [][]string{{"-threshold", "NaN"}, {"-depth", "NaN"}} {
		fs = flag.NewFlagSet("test", flag.ContinueOnError)
		flags = RegisterFlags(fs)
		if err := fs.Parse(append([]string{"-config", configPath}, args...)); err != nil {
			t.Fatalf("parse %v: %v", args, err)
		}
		if _, err := Load(flags); !errors.Is(err, ErrInvalid) {
			t.Errorf("%v: expected ErrInvalid, got %v", args, err)
		}
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Extrude.Threshold = 0.42
	cfg.Export.PreviewFormat = "png"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Extrude.Threshold != 0.42 || loaded.Export.PreviewFormat != "png" {
		t.Errorf("round trip lost values: %+v %+v", loaded.Extrude, loaded.Export)
	}
}

func TestSpriteSettings(t *testing.T) {
	cfg := Default()
	cfg.Extrude = ExtrudeConfig{Threshold: 0.3, Border: false, AutoDepth: false, Depth: 0.7}

	s := cfg.SpriteSettings()
	if s.Threshold != 0.3 || s.GenerateBorder || s.AutoBorderDepth || s.BorderDepth != 0.7 {
		t.Errorf("unexpected settings: %+v", s)
	}
}
