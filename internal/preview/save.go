package preview

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// ErrFormat is returned for output extensions other than .webp and .png.
var ErrFormat = errors.New("unsupported preview format")

// Save writes img as lossless WebP or PNG, chosen by extension.
func Save(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".webp" && ext != ".png" {
		return fmt.Errorf("%w: %q", ErrFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if ext == ".webp" {
		err = nativewebp.Encode(f, img, nil)
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
