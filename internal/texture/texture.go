// Package texture decodes sprite images and exposes their alpha channel to
// the extruder.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// ErrUnsupported is returned when no decoder accepts the data.
var ErrUnsupported = errors.New("unsupported image format")

// Extensions lists the file extensions Decode understands.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tga", ".webp"}

// Supported reports whether name has a decodable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// byExtension decoders are tried when the magic sniff fails. TGA has no
// magic number so it is always chosen by extension.
var byExtension = map[string]func(io.Reader) (image.Image, error){
	".bmp":  bmp.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// Decode decodes image data. name is only used for its extension.
// BMP sprites get the magenta color key applied.
func Decode(data []byte, name string) (*image.NRGBA, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		img    image.Image
		format string
		err    error
	)
	if ext == ".tga" {
		img, err = tga.Decode(bytes.NewReader(data))
		format = "tga"
	} else {
		img, format, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			dec, ok := byExtension[ext]
			if !ok {
				return nil, fmt.Errorf("texture: decode %s: %w: %v", name, ErrUnsupported, err)
			}
			img, err = dec(bytes.NewReader(data))
			format = strings.TrimPrefix(ext, ".")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}

	out := ToNRGBA(img)
	if format == "bmp" {
		if out == img {
			out = clone(out)
		}
		ApplyMagentaKey(out)
	}
	return out, nil
}

// Load reads and decodes an image file.
func Load(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	return Decode(data, path)
}

// ToNRGBA converts any image to NRGBA with its origin at (0,0).
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha channel.
		draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
			}
		}
	}
	return dst
}

func clone(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

// IsMagentaKey checks if an RGB color matches the RO magenta transparency key.
// Uses tolerance (R >= 250, G <= 10, B >= 250) to handle BMP decoding variations.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ApplyMagentaKey makes magenta pixels transparent black in place.
// Black RGB keeps filtered edges from bleeding pink.
func ApplyMagentaKey(img *image.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			if IsMagentaKey(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				img.Pix[i] = 0
				img.Pix[i+1] = 0
				img.Pix[i+2] = 0
				img.Pix[i+3] = 0
			}
		}
	}
}
