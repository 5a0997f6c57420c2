// spritemesh extrudes sprite images into textured OBJ meshes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/assets"
	"github.com/Faultbox/midgard-extrude/internal/batch"
	"github.com/Faultbox/midgard-extrude/internal/config"
	"github.com/Faultbox/midgard-extrude/internal/logger"
	"github.com/Faultbox/midgard-extrude/internal/preview"
	"github.com/Faultbox/midgard-extrude/internal/sprite"
	"github.com/Faultbox/midgard-extrude/pkg/extrude"
	"github.com/Faultbox/midgard-extrude/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "build":
		err = cmdBuild(args)
	case "info":
		err = cmdInfo(args)
	case "batch":
		err = cmdBatch(args)
	case "grf":
		cmdGRF(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func printUsage() {
	fmt.Println(`spritemesh - extrude sprite pixels into 3D meshes

Usage:
  spritemesh <command> [options]

Commands:
  build <input> [-rect x,y,w,h] [-frame n] [-grf archive] [-o out.obj]
                                     Write OBJ, MTL, texture and preview
  info <input> [-rect x,y,w,h] [-frame n] [-grf archive]
                                     Print mesh statistics
  batch <input.grf|files...> [-pattern glob] [-o dir] [-workers n]
                                     Extrude many sprites in parallel
  grf list <file.grf> [pattern]      List archive files (glob pattern)
  grf search <file.grf> <text>       Search archive files by substring

Extrusion flags (build, info, batch):
  -threshold f  -border  -auto-depth  -depth f  -config path  -debug

Examples:
  spritemesh build -rect 0,0,32,32 icons.png
  spritemesh build -grf data.grf -frame 3 data/sprite/poring.spr
  spritemesh batch -pattern "*.spr" -o meshes data.grf
  spritemesh grf list data.grf "*.bmp"`)
}

// fail prints the error and exits. The commands above return their errors
// instead, so deferred log syncs and closes run before the exit.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// setup loads config with flag overrides and initializes logging.
func setup(flags *config.Flags) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// spriteFlags are the source selection flags shared by build and info.
type spriteFlags struct {
	rect    *string
	frame   *int
	archive *string
}

func registerSpriteFlags(fs *flag.FlagSet) spriteFlags {
	return spriteFlags{
		rect:    fs.String("rect", "", "Sprite rect x,y,w,h (top-left origin, default whole image)"),
		frame:   fs.Int("frame", 0, "Frame index for SPR input"),
		archive: fs.String("grf", "", "Read input from this GRF archive"),
	}
}

// openSprite resolves the input through the configured archives.
func openSprite(cfg *config.Config, sf spriteFlags, input string) (sprite.Sprite, func(), error) {
	rect, err := sprite.ParseRect(*sf.rect)
	if err != nil {
		return sprite.Sprite{}, nil, err
	}

	mgr := assets.NewManager()
	paths := cfg.Data.GRFPaths
	if *sf.archive != "" {
		if err := mgr.AddArchive(*sf.archive); err != nil {
			return sprite.Sprite{}, nil, err
		}
		paths = nil
	}
	missing, err := mgr.AddArchives(paths)
	if err != nil {
		mgr.Close()
		return sprite.Sprite{}, nil, err
	}
	for _, p := range missing {
		logger.Debug("archive not found, skipping", zap.String("path", p))
	}

	ref := assets.Ref{Path: input, Frame: *sf.frame}
	img, err := mgr.Image(ref)
	if err != nil {
		mgr.Close()
		return sprite.Sprite{}, nil, err
	}
	return sprite.Sprite{Name: ref.Name(), Texture: img, Rect: rect}, mgr.Close, nil
}

// batchConfig maps the export section onto a batch run writing to dir.
func batchConfig(cfg *config.Config, dir string) batch.Config {
	opts := preview.DefaultOptions()
	opts.Size = cfg.Export.PreviewSize
	opts.Supersample = cfg.Export.Supersample
	opts.Yaw = cfg.Export.Yaw
	opts.Pitch = cfg.Export.Pitch

	return batch.Config{
		OutputDir:     dir,
		Settings:      cfg.SpriteSettings(),
		Preview:       opts,
		WritePreview:  cfg.Export.Preview,
		PreviewFormat: cfg.Export.PreviewFormat,
		Scale:         cfg.Export.Scale,
		Center:        cfg.Export.Center,
		Workers:       cfg.Workers(),
	}
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	sf := registerSpriteFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh build <input> [-rect x,y,w,h] [-frame n] [-grf archive] [-o out.obj]")
		os.Exit(1)
	}

	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, closeAssets, err := openSprite(cfg, sf, fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeAssets()

	// -o names either the .obj file or the output directory.
	dir, name := cfg.Export.OutputDir, s.Name
	if strings.EqualFold(filepath.Ext(dir), ".obj") {
		name = strings.TrimSuffix(filepath.Base(dir), filepath.Ext(dir))
		dir = filepath.Dir(dir)
	}

	job := batch.Job{
		Name: name,
		Load: func() (*image.NRGBA, error) { return sprite.Pixels(s, nil) },
		Rect: s.Rect,
	}
	results := batch.Run(context.Background(), batchConfig(cfg, dir), []batch.Job{job})
	res := results[0]
	if !res.Success {
		return fmt.Errorf("%s: %s", res.Name, res.Error)
	}

	fmt.Printf("%s: %d faces\n", res.Name, res.Faces)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	sf := registerSpriteFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh info <input> [-rect x,y,w,h] [-frame n] [-grf archive]")
		os.Exit(1)
	}

	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, closeAssets, err := openSprite(cfg, sf, fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeAssets()

	res, err := sprite.Generate(s, cfg.SpriteSettings(), nil)
	if err != nil {
		return err
	}

	size := res.Image.Bounds().Size()
	fmt.Printf("Sprite:    %s\n", s.Name)
	fmt.Printf("Texture:   %dx%d\n", size.X, size.Y)
	if !s.Rect.Empty() {
		fmt.Printf("Rect:      %v\n", s.Rect)
	}
	fmt.Printf("Pixels:    %d\n", res.Stats.Pixels)
	fmt.Printf("Opaque:    %d\n", res.Stats.Opaque)
	fmt.Printf("Depth:     %g\n", res.Mesh.Depth)
	fmt.Printf("Faces:     %d\n", res.Stats.FaceCount())
	for _, f := range extrude.Faces() {
		fmt.Printf("  %-8s %d\n", f, res.Stats.Faces[f])
	}
	fmt.Printf("Vertices:  %d\n", len(res.Mesh.Vertices))
	fmt.Printf("Triangles: %d\n", len(res.Mesh.Triangles)/3)
	return nil
}

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	pattern := fs.String("pattern", "*.spr", "Glob pattern for archive members")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh batch <input.grf|files...> [-pattern glob] [-o dir] [-workers n]")
		os.Exit(1)
	}

	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var jobs []batch.Job
	if fs.NArg() == 1 && strings.EqualFold(filepath.Ext(fs.Arg(0)), ".grf") {
		archive, err := grf.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer archive.Close()
		if jobs, err = batch.FromGRF(archive, *pattern); err != nil {
			return err
		}
	} else if jobs, err = batch.FromFiles(fs.Args()); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return errors.New("no sprites found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bcfg := batchConfig(cfg, cfg.Export.OutputDir)
	logger.Info("batch starting",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", bcfg.Workers),
		zap.String("output", bcfg.OutputDir))

	results := batch.Run(ctx, bcfg, jobs)
	summary := batch.Summarize(results)

	manifest := filepath.Join(bcfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifest, results); err != nil {
		logger.Warn("manifest not written", zap.Error(err))
	}

	fmt.Println(summary)
	if summary.Failed > 0 || summary.Cancelled > 0 {
		return fmt.Errorf("batch incomplete: %d failed, %d cancelled", summary.Failed, summary.Cancelled)
	}
	return nil
}

func cmdGRF(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh grf list|search <file.grf> [pattern]")
		os.Exit(1)
	}

	switch args[0] {
	case "list", "ls":
		grfList(args[1:])
	case "search", "find":
		grfSearch(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown grf command: %s\n", args[0])
		os.Exit(1)
	}
}

func grfList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh grf list <file.grf> [pattern]")
		os.Exit(1)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	defer archive.Close()

	files := archive.List()
	if fs.NArg() > 1 {
		if files, err = archive.Glob(fs.Arg(1)); err != nil {
			fail(err)
		}
	}

	for i, f := range files {
		if *limit > 0 && i >= *limit {
			break
		}
		fmt.Println(f)
	}
	fmt.Fprintf(os.Stderr, "\n(%d of %d files)\n", len(files), archive.Len())
}

func grfSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("n", 50, "Limit results (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: spritemesh grf search <file.grf> <text>")
		os.Exit(1)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	defer archive.Close()

	text := strings.ToLower(fs.Arg(1))
	count := 0
	for _, f := range archive.List() {
		if !strings.Contains(f, text) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			fmt.Fprintf(os.Stderr, "\n(showing first %d matches, use -n 0 for all)\n", *limit)
			return
		}
	}

	if count == 0 {
		fmt.Fprintln(os.Stderr, "No files found")
	} else {
		fmt.Fprintf(os.Stderr, "\n(%d files found)\n", count)
	}
}
