package config

import "flag"

// Flags holds command-line overrides bound to one flag set. Only flags the
// user actually set are applied, so -border=false can turn a file setting off.
type Flags struct {
	fs *flag.FlagSet

	Config      *string
	Debug       *bool
	LogFile     *string
	Threshold   *float64
	Border      *bool
	AutoDepth   *bool
	Depth       *float64
	Output      *string
	Preview     *bool
	PreviewSize *int
	Workers     *int
	Width       *int
	Height      *int
	Fullscreen  *bool
	GPUReadback *bool
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:          fs,
		Config:      fs.String("config", "", "Path to config file"),
		Debug:       fs.Bool("debug", false, "Enable debug logging"),
		LogFile:     fs.String("log-file", "", "Also log to this file (rotated)"),
		Threshold:   fs.Float64("threshold", 0, "Alpha threshold in [0,1]"),
		Border:      fs.Bool("border", true, "Generate back and side faces"),
		AutoDepth:   fs.Bool("auto-depth", true, "Derive border depth from sprite size"),
		Depth:       fs.Float64("depth", 0, "Manual border depth (with -auto-depth=false)"),
		Output:      fs.String("o", "", "Output path or directory"),
		Preview:     fs.Bool("preview", true, "Write a rendered preview image"),
		PreviewSize: fs.Int("preview-size", 0, "Preview image size in pixels"),
		Workers:     fs.Int("workers", 0, "Worker goroutines (0 = NumCPU)"),
		Width:       fs.Int("width", 0, "Viewer window width"),
		Height:      fs.Int("height", 0, "Viewer window height"),
		Fullscreen:  fs.Bool("fullscreen", false, "Viewer fullscreen"),
		GPUReadback: fs.Bool("gpu-readback", false, "Read sprite pixels back from a GL texture"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// apply copies explicitly set flags into cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if *f.Debug {
				cfg.Logging.Level = "debug"
			}
		case "log-file":
			cfg.Logging.LogFile = *f.LogFile
		case "threshold":
			cfg.Extrude.Threshold = float32(*f.Threshold)
		case "border":
			cfg.Extrude.Border = *f.Border
		case "auto-depth":
			cfg.Extrude.AutoDepth = *f.AutoDepth
		case "depth":
			cfg.Extrude.Depth = float32(*f.Depth)
			// An explicit depth implies manual mode unless -auto-depth is also given.
			if !isSet(f.fs, "auto-depth") {
				cfg.Extrude.AutoDepth = false
			}
		case "o":
			cfg.Export.OutputDir = *f.Output
		case "preview":
			cfg.Export.Preview = *f.Preview
		case "preview-size":
			cfg.Export.PreviewSize = *f.PreviewSize
		case "workers":
			cfg.Batch.Workers = *f.Workers
		case "width":
			cfg.Viewer.Width = *f.Width
		case "height":
			cfg.Viewer.Height = *f.Height
		case "fullscreen":
			cfg.Viewer.Fullscreen = *f.Fullscreen
		case "gpu-readback":
			cfg.Viewer.GPUReadback = *f.GPUReadback
		}
	})
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}
