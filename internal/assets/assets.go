// Package assets resolves sprite sources from GRF archives and the local
// disk, with an in-memory cache of raw file data.
package assets

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Faultbox/midgard-extrude/internal/texture"
	"github.com/Faultbox/midgard-extrude/pkg/formats"
	"github.com/Faultbox/midgard-extrude/pkg/grf"
)

// ErrNotFound is returned when no archive or disk path holds a file.
var ErrNotFound = errors.New("asset not found")

// Ref names one sprite image: a file path and, for SPR files, a frame.
type Ref struct {
	Path  string
	Frame int
}

// IsSPR reports whether the ref points at an SPR file.
func (r Ref) IsSPR() bool {
	return strings.EqualFold(path.Ext(filepath.ToSlash(r.Path)), ".spr")
}

// Name returns an output name for the ref: the file stem, plus the frame
// index for SPR files.
func (r Ref) Name() string {
	base := path.Base(filepath.ToSlash(r.Path))
	name := strings.TrimSuffix(base, path.Ext(base))
	if r.IsSPR() {
		return fmt.Sprintf("%s_%03d", name, r.Frame)
	}
	return name
}

// Manager loads files from GRF archives, falling back to the disk.
type Manager struct {
	archives []*grf.Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddArchive adds a GRF archive to the manager.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()
	return nil
}

// AddArchives adds every archive that exists. Missing files are skipped and
// returned so callers can log them; any other open error stops the loop.
func (m *Manager) AddArchives(paths []string) (missing []string, err error) {
	for _, p := range paths {
		if _, statErr := os.Stat(p); errors.Is(statErr, fs.ErrNotExist) {
			missing = append(missing, p)
			continue
		}
		if err := m.AddArchive(p); err != nil {
			return missing, err
		}
	}
	return missing, nil
}

// Archives returns the number of open archives.
func (m *Manager) Archives() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.archives)
}

// Load returns the contents of name, checking the cache, then the archives,
// then the disk.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].ReadFile(name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, grf.ErrNotFound) {
			return nil, err
		}
	}

	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	m.cache.Set(name, data)
	return data, nil
}

// Image decodes the image a ref points at.
func (m *Manager) Image(ref Ref) (*image.NRGBA, error) {
	data, err := m.Load(ref.Path)
	if err != nil {
		return nil, err
	}
	if !ref.IsSPR() {
		return texture.Decode(data, ref.Path)
	}

	spr, err := formats.ParseSPR(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Path, err)
	}
	frame, err := spr.Frame(ref.Frame)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Path, err)
	}
	return frame.NRGBA(), nil
}

// Close closes all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
