// Package batch extrudes many sprites in parallel and writes one set of
// output files per sprite.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/logger"
	"github.com/Faultbox/midgard-extrude/internal/preview"
	"github.com/Faultbox/midgard-extrude/internal/sprite"
	"github.com/Faultbox/midgard-extrude/pkg/formats"
)

// Job errors.
var (
	ErrCancelled = errors.New("cancelled")
	ErrEmptyMesh = errors.New("no pixels above threshold")
)

// Job is one sprite to extrude. Load is called on a worker goroutine.
type Job struct {
	Name string
	Load func() (*image.NRGBA, error)
	Rect image.Rectangle // top-left origin, empty for the whole image
}

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir     string
	Settings      sprite.Settings
	Preview       preview.Options
	WritePreview  bool
	PreviewFormat string  // "webp" or "png"
	Scale         float32 // OBJ vertex scale
	Center        bool    // center OBJ vertices on the origin
	Workers       int     // 0 = one per CPU
}

// Result holds the outcome of processing one job.
type Result struct {
	Name    string
	Faces   int
	Success bool
	Error   string
	Files   []string
}

// Run processes all jobs using a worker pool. Jobs that have not started when
// ctx is cancelled are reported with ErrCancelled.
func Run(ctx context.Context, cfg Config, jobs []Job) []Result {
	log := logger.Named("batch")

	total := len(jobs)
	results := make([]Result, total)
	for i, j := range jobs {
		results[i] = Result{Name: j.Name, Error: ErrCancelled.Error()}
	}
	if total == 0 {
		return results
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		for i := range results {
			results[i].Error = err.Error()
		}
		return results
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, total)

	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Float64("per_sec", rate))
				}
			}
		}
	}()

	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				results[idx] = processJob(cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

send:
	for i := range jobs {
		select {
		case jobChan <- i:
		case <-ctx.Done():
			break send
		}
	}
	close(jobChan)

	wg.Wait()
	close(done)

	s := Summarize(results)
	log.Info("batch finished",
		zap.Int("ok", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("cancelled", s.Cancelled),
		zap.Int("faces", s.Faces),
		zap.Duration("took", time.Since(start)))

	return results
}

func processJob(cfg Config, job Job) Result {
	res := Result{Name: job.Name}
	fail := func(err error) Result {
		res.Error = err.Error()
		logger.Named("batch").Warn("job failed", zap.String("name", job.Name), zap.Error(err))
		return res
	}

	img, err := job.Load()
	if err != nil {
		return fail(fmt.Errorf("load: %w", err))
	}

	gen, err := sprite.Generate(sprite.Sprite{Name: job.Name, Texture: img, Rect: job.Rect}, cfg.Settings, nil)
	if err != nil {
		return fail(err)
	}
	if gen.Mesh.Empty() {
		return fail(ErrEmptyMesh)
	}
	res.Faces = gen.Mesh.FaceCount()

	files, err := writeOutputs(cfg, job.Name, gen)
	res.Files = files
	if err != nil {
		return fail(err)
	}

	res.Success = true
	return res
}

// writeOutputs writes <name>.obj, <name>.mtl, <name>.png and the optional
// preview, returning the paths written.
func writeOutputs(cfg Config, name string, gen sprite.Result) ([]string, error) {
	base := filepath.Join(cfg.OutputDir, name)
	var files []string

	texPath := base + ".png"
	if err := writeFile(texPath, func(f *os.File) error { return png.Encode(f, gen.Image) }); err != nil {
		return files, fmt.Errorf("texture: %w", err)
	}
	files = append(files, texPath)

	mtlPath := base + ".mtl"
	if err := writeFile(mtlPath, func(f *os.File) error {
		return formats.WriteMTL(f, name, filepath.Base(texPath))
	}); err != nil {
		return files, fmt.Errorf("material: %w", err)
	}
	files = append(files, mtlPath)

	objPath := base + ".obj"
	opts := formats.OBJOptions{
		Name:        name,
		MaterialLib: filepath.Base(mtlPath),
		Material:    name,
		Scale:       cfg.Scale,
		Center:      cfg.Center,
	}
	if err := writeFile(objPath, func(f *os.File) error { return formats.WriteOBJ(f, gen.Mesh, opts) }); err != nil {
		return files, fmt.Errorf("obj: %w", err)
	}
	files = append(files, objPath)

	if cfg.WritePreview {
		previewPath := PreviewPath(base, cfg.PreviewFormat)
		if err := preview.Save(previewPath, preview.Render(gen.Mesh, gen.Image, cfg.Preview)); err != nil {
			return files, fmt.Errorf("preview: %w", err)
		}
		files = append(files, previewPath)
	}
	return files, nil
}

// PreviewPath returns the preview file for an output base path. PNG previews
// get a suffix so they do not replace the exported texture.
func PreviewPath(base, format string) string {
	if format == "png" {
		return base + ".preview.png"
	}
	return base + ".webp"
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
