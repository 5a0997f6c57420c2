package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-extrude/pkg/extrude"
	"golang.org/x/image/bmp"
)

// testImage is 2x3 with a distinct alpha per pixel: alpha = 10*(y*2+x+1).
func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: uint8(10 * (y*2 + x + 1))})
		}
	}
	return img
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := Decode(buf.Bytes(), "sprite.png")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	if got := img.NRGBAAt(1, 2).A; got != 60 {
		t.Errorf("alpha at (1,2) = %d, want 60", got)
	}
}

func TestDecodeBMPMagentaKey(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := Decode(buf.Bytes(), "sprite.bmp")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{}) {
		t.Errorf("magenta pixel = %v, want transparent black", c)
	}
	if c := img.NRGBAAt(1, 0); c.A != 255 || c.R != 10 {
		t.Errorf("solid pixel = %v", c)
	}
}

func TestDecodeTGA(t *testing.T) {
	// 1x1 uncompressed 32-bit true-color, BGRA pixel order.
	data := []byte{
		0, 0, 2, // id length, no color map, type 2
		0, 0, 0, 0, 0, // color map spec
		0, 0, 0, 0, // origin
		1, 0, 1, 0, // 1x1
		32, 0x28, // bpp, top-left origin + 8 alpha bits
		30, 20, 10, 255,
	}

	img, err := Decode(data, "sprite.tga")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := img.NRGBAAt(0, 0)
	if c.R != 10 || c.G != 20 || c.B != 30 || c.A != 255 {
		t.Errorf("pixel = %v, want {10 20 30 255}", c)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "notes.xyz")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprite.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, testImage()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"B.BMP", true},
		{"c.tga", true},
		{"d.webp", true},
		{"e.spr", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.name); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestToNRGBAOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.SetRGBA(6, 5, color.RGBA{R: 255, A: 255})

	out := ToNRGBA(src)
	if out.Rect.Min != (image.Point{}) {
		t.Fatalf("expected zero origin, got %v", out.Rect)
	}
	if c := out.NRGBAAt(1, 0); c.R != 255 || c.A != 255 {
		t.Errorf("pixel = %v", c)
	}
}

func TestApplyMagentaKeyTolerance(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 252, G: 8, B: 251, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 240, G: 0, B: 255, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 255, G: 0, B: 255, A: 128})

	ApplyMagentaKey(img)

	if img.NRGBAAt(0, 0).A != 0 {
		t.Error("near-magenta pixel should be keyed")
	}
	if img.NRGBAAt(1, 0).A != 255 {
		t.Error("pixel outside tolerance should be kept")
	}
	if img.NRGBAAt(2, 0).A != 0 {
		t.Error("magenta pixel should be keyed regardless of alpha")
	}
}

func TestSourceBottomUp(t *testing.T) {
	src := NewSource(testImage())

	w, h := src.Size()
	if w != 2 || h != 3 {
		t.Fatalf("Size = %dx%d", w, h)
	}

	// Bottom-up (0,0) is the image's last row.
	if got, want := src.Alpha(0, 0), float32(50)/255; got != want {
		t.Errorf("Alpha(0,0) = %v, want %v", got, want)
	}
	if got, want := src.Alpha(1, 2), float32(20)/255; got != want {
		t.Errorf("Alpha(1,2) = %v, want %v", got, want)
	}
	if got := src.Alpha(-1, 0); got != 0 {
		t.Errorf("out of range alpha = %v", got)
	}
	if got := src.Alpha(2, 0); got != 0 {
		t.Errorf("out of range alpha = %v", got)
	}
}

func TestFlipRect(t *testing.T) {
	tests := []struct {
		name   string
		rect   image.Rectangle
		height int
		want   extrude.Region
	}{
		{"whole image", image.Rect(0, 0, 4, 8), 8, extrude.Region{X: 0, Y: 0, Width: 4, Height: 8}},
		{"top rows", image.Rect(1, 0, 3, 2), 8, extrude.Region{X: 1, Y: 6, Width: 2, Height: 2}},
		{"bottom rows", image.Rect(0, 6, 4, 8), 8, extrude.Region{X: 0, Y: 0, Width: 4, Height: 2}},
		{"empty", image.Rectangle{}, 8, extrude.Region{X: 0, Y: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlipRect(tt.rect, tt.height); got != tt.want {
				t.Errorf("FlipRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFlipRectMatchesSource(t *testing.T) {
	img := testImage()
	src := NewSource(img)
	region := FlipRect(image.Rect(1, 0, 2, 1), 3)

	// Top-left pixel (1,0) of the image must be region-local (0,0).
	want := float32(img.NRGBAAt(1, 0).A) / 255
	if got := src.Alpha(region.X, region.Y); got != want {
		t.Errorf("alpha = %v, want %v", got, want)
	}
}

func TestFlipVertical(t *testing.T) {
	img := testImage()
	out := FlipVertical(img)

	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			if out.NRGBAAt(x, y) != img.NRGBAAt(x, 2-y) {
				t.Errorf("pixel (%d,%d) not flipped", x, y)
			}
		}
	}
	if img.NRGBAAt(0, 0).A != 10 {
		t.Error("FlipVertical modified its input")
	}
}
