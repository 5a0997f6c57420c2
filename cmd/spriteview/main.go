// spriteview opens an interactive window showing the extruded mesh of one sprite.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/assets"
	"github.com/Faultbox/midgard-extrude/internal/config"
	"github.com/Faultbox/midgard-extrude/internal/logger"
	"github.com/Faultbox/midgard-extrude/internal/sprite"
	"github.com/Faultbox/midgard-extrude/internal/viewer"
)

func main() {
	fs := flag.NewFlagSet("spriteview", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	rectFlag := fs.String("rect", "", "Sprite rect x,y,w,h (top-left origin, default whole image)")
	frame := fs.Int("frame", 0, "Frame index for SPR input")
	archive := fs.String("grf", "", "Read input from this GRF archive")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spriteview [flags] <image|file.spr>")
		fmt.Fprintln(os.Stderr, "Keys: B border, A auto depth, [ ] threshold, - = depth, R regenerate, P snapshot, Esc quit")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Sprite Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg, fs.Arg(0), *rectFlag, *frame, *archive); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config, input, rectArg string, frame int, archive string) error {
	rect, err := sprite.ParseRect(rectArg)
	if err != nil {
		return err
	}

	mgr := assets.NewManager()
	defer mgr.Close()

	paths := cfg.Data.GRFPaths
	if archive != "" {
		paths = []string{archive}
	}
	missing, err := mgr.AddArchives(paths)
	if err != nil {
		return err
	}
	for _, p := range missing {
		logger.Debug("archive not found, skipping", zap.String("path", p))
	}

	ref := assets.Ref{Path: input, Frame: frame}
	img, err := mgr.Image(ref)
	if err != nil {
		return err
	}

	comp := sprite.NewComponent(sprite.Sprite{Name: ref.Name(), Texture: img, Rect: rect}, cfg.SpriteSettings())

	v, err := viewer.New(viewer.Options{
		Window: viewer.WindowConfig{
			Title:      "spriteview - " + ref.Name(),
			Width:      cfg.Viewer.Width,
			Height:     cfg.Viewer.Height,
			Fullscreen: cfg.Viewer.Fullscreen,
			VSync:      cfg.Viewer.VSync,
		},
		GPUReadback: cfg.Viewer.GPUReadback,
		SnapshotDir: cfg.Export.OutputDir,
	}, comp)
	if err != nil {
		return fmt.Errorf("creating viewer: %w", err)
	}
	defer v.Close()

	return v.Run()
}
