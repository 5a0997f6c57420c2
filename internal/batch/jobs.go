package batch

import (
	"fmt"
	"image"
	"path"
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-extrude/internal/texture"
	"github.com/Faultbox/midgard-extrude/pkg/formats"
	"github.com/Faultbox/midgard-extrude/pkg/grf"
)

// FromSPR returns one job per frame of an SPR file.
func FromSPR(filename string) ([]Job, error) {
	spr, err := formats.ParseSPRFile(filename)
	if err != nil {
		return nil, err
	}
	return sprJobs(newNamer().claim(filename, len(spr.Images)), spr), nil
}

// sprJobs pairs frames with their names. Frames are decoded up front so Load
// only wraps them.
func sprJobs(names []string, spr *formats.SPR) []Job {
	jobs := make([]Job, len(spr.Images))
	for i := range spr.Images {
		frame := &spr.Images[i]
		jobs[i] = Job{
			Name: names[i],
			Load: func() (*image.NRGBA, error) { return frame.NRGBA(), nil },
		}
	}
	return jobs
}

// FromGRF returns jobs for every archive member matching pattern. SPR files
// expand to one job per frame; image files load lazily on the worker.
func FromGRF(archive *grf.Archive, pattern string) ([]Job, error) {
	names, err := archive.Glob(pattern)
	if err != nil {
		return nil, err
	}

	n := newNamer()
	var jobs []Job
	for _, name := range names {
		switch {
		case strings.EqualFold(path.Ext(name), ".spr"):
			data, err := archive.ReadFile(name)
			if err != nil {
				return nil, err
			}
			spr, err := formats.ParseSPR(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			jobs = append(jobs, sprJobs(n.claim(name, len(spr.Images)), spr)...)
		case texture.Supported(name):
			jobs = append(jobs, Job{
				Name: n.claim(name, 0)[0],
				Load: func() (*image.NRGBA, error) {
					data, err := archive.ReadFile(name)
					if err != nil {
						return nil, err
					}
					return texture.Decode(data, name)
				},
			})
		}
	}
	return jobs, nil
}

// FromFiles returns jobs for image and SPR files on disk.
func FromFiles(paths []string) ([]Job, error) {
	n := newNamer()
	var jobs []Job
	for _, p := range paths {
		switch {
		case strings.EqualFold(filepath.Ext(p), ".spr"):
			spr, err := formats.ParseSPRFile(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
			jobs = append(jobs, sprJobs(n.claim(p, len(spr.Images)), spr)...)
		case texture.Supported(p):
			jobs = append(jobs, Job{
				Name: n.claim(p, 0)[0],
				Load: func() (*image.NRGBA, error) { return texture.Load(p) },
			})
		default:
			return nil, fmt.Errorf("%s: %w", p, texture.ErrUnsupported)
		}
	}
	return jobs, nil
}

// namer hands out job names that are unique within one batch, since every
// name becomes a set of output files.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

// claim reserves names for a source file. frames > 0 yields <stem>_<index>
// per frame, 0 yields the bare stem. On a clash the parent directory is
// prefixed, then a numeric suffix is added.
func (n *namer) claim(name string, frames int) []string {
	slashed := filepath.ToSlash(name)
	s := stem(slashed)

	candidates := []string{s}
	if dir := path.Base(path.Dir(slashed)); dir != "." && dir != "/" {
		candidates = append(candidates, dir+"_"+s)
	}
	for i := 0; ; i++ {
		var base string
		if i < len(candidates) {
			base = candidates[i]
		} else {
			base = fmt.Sprintf("%s_%d", s, i-len(candidates)+2)
		}
		if names, ok := n.try(base, frames); ok {
			return names
		}
	}
}

func (n *namer) try(base string, frames int) ([]string, bool) {
	names := []string{base}
	if frames > 0 {
		names = make([]string, frames)
		for i := range names {
			names[i] = fmt.Sprintf("%s_%03d", base, i)
		}
	}
	for _, name := range names {
		if n.used[name] {
			return nil, false
		}
	}
	for _, name := range names {
		n.used[name] = true
	}
	return names, true
}

// stem returns the base name without extension, for archive or OS paths.
func stem(name string) string {
	name = filepath.ToSlash(name)
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}
