package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
)

// SPR format errors.
var (
	ErrInvalidSPRMagic       = errors.New("invalid SPR magic: expected 'SP'")
	ErrUnsupportedSPRVersion = errors.New("unsupported SPR version")
	ErrTruncatedSPRData      = errors.New("truncated SPR data")
	ErrFrameIndex            = errors.New("SPR frame index out of range")
)

const sprPaletteSize = 256 * 4

// SPRVersion represents the SPR file version.
type SPRVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v SPRVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// usesRLE reports whether indexed frames are run-length encoded (v2.1+).
func (v SPRVersion) usesRLE() bool {
	return v.Major == 2 && v.Minor >= 1
}

// SPRImage is one decoded sprite frame.
type SPRImage struct {
	Width     uint16
	Height    uint16
	Pixels    []byte // RGBA, 4 bytes per pixel, rows top to bottom
	TrueColor bool   // stored as ABGR rather than palette indices
}

// NRGBA returns the frame as an image. Pixels are shared, not copied.
func (img *SPRImage) NRGBA() *image.NRGBA {
	w, h := int(img.Width), int(img.Height)
	return &image.NRGBA{
		Pix:    img.Pixels,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
}

// SPRColor represents an RGBA color.
type SPRColor struct {
	R, G, B, A uint8
}

// SPRPalette represents a 256-color palette.
type SPRPalette struct {
	Colors [256]SPRColor
}

// SPR represents a parsed sprite file. Indexed frames come first, followed
// by true-color frames.
type SPR struct {
	Version      SPRVersion
	Images       []SPRImage
	IndexedCount int
	Palette      *SPRPalette
}

// Frame returns frame i.
func (s *SPR) Frame(i int) (*SPRImage, error) {
	if i < 0 || i >= len(s.Images) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, i, len(s.Images))
	}
	return &s.Images[i], nil
}

// ParseSPR parses an SPR file from raw bytes.
func ParseSPR(data []byte) (*SPR, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedSPRData
	}
	if data[0] != 'S' || data[1] != 'P' {
		return nil, ErrInvalidSPRMagic
	}

	// Stored as minor, major.
	version := SPRVersion{Major: data[3], Minor: data[2]}
	if version.Major < 1 || version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSPRVersion, version)
	}
	if version.Major == 1 && version.Minor < 1 {
		return nil, fmt.Errorf("%w: %s (system palette not supported)", ErrUnsupportedSPRVersion, version)
	}
	if len(data) < 4+sprPaletteSize {
		return nil, fmt.Errorf("%w: no room for palette", ErrTruncatedSPRData)
	}

	// The palette trails the frame data.
	body := data[4 : len(data)-sprPaletteSize]
	p := &sprParser{r: bytes.NewReader(body)}

	indexedCount, err := p.u16("indexed count")
	if err != nil {
		return nil, err
	}
	var trueColorCount uint16
	if version.Major >= 2 {
		if trueColorCount, err = p.u16("true-color count"); err != nil {
			return nil, err
		}
	}

	spr := &SPR{
		Version:      version,
		Images:       make([]SPRImage, 0, int(indexedCount)+int(trueColorCount)),
		IndexedCount: int(indexedCount),
		Palette:      parsePalette(data[len(data)-sprPaletteSize:]),
	}

	for i := 0; i < int(indexedCount); i++ {
		img, err := p.indexed(spr.Palette, version.usesRLE())
		if err != nil {
			return nil, fmt.Errorf("parsing indexed image %d: %w", i, err)
		}
		spr.Images = append(spr.Images, img)
	}

	for i := 0; i < int(trueColorCount); i++ {
		// Some files declare more true-color frames than they carry.
		if p.r.Len() == 0 {
			break
		}
		img, err := p.trueColor()
		if err != nil {
			return nil, fmt.Errorf("parsing true-color image %d: %w", i, err)
		}
		spr.Images = append(spr.Images, img)
	}

	return spr, nil
}

// ParseSPRFile parses an SPR file from disk.
func ParseSPRFile(path string) (*SPR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SPR file: %w", err)
	}
	return ParseSPR(data)
}

// parsePalette parses 256 RGBA colors.
func parsePalette(data []byte) *SPRPalette {
	p := &SPRPalette{}
	for i := range p.Colors {
		c := data[i*4 : i*4+4]
		p.Colors[i] = SPRColor{R: c[0], G: c[1], B: c[2], A: c[3]}
	}
	return p
}

type sprParser struct {
	r *bytes.Reader
}

func (p *sprParser) u16(what string) (uint16, error) {
	var v uint16
	if err := binary.Read(p.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: reading %s", ErrTruncatedSPRData, what)
	}
	return v, nil
}

func (p *sprParser) bytes(n int, what string) ([]byte, error) {
	if n > p.r.Len() {
		return nil, fmt.Errorf("%w: reading %s", ErrTruncatedSPRData, what)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading %s", ErrTruncatedSPRData, what)
	}
	return buf, nil
}

// size reads frame dimensions. ok is false for placeholder frames.
func (p *sprParser) size() (w, h uint16, ok bool, err error) {
	if w, err = p.u16("width"); err != nil {
		return
	}
	if h, err = p.u16("height"); err != nil {
		return
	}
	ok = w != 0 && h != 0 && w != 0xFFFF && h != 0xFFFF
	return
}

// blankFrame stands in for zero-sized or invalid frames.
func blankFrame(trueColor bool) SPRImage {
	return SPRImage{Width: 1, Height: 1, Pixels: make([]byte, 4), TrueColor: trueColor}
}

// indexed reads a palette frame. Index 0 is transparent; all others are opaque.
func (p *sprParser) indexed(palette *SPRPalette, rle bool) (SPRImage, error) {
	w, h, ok, err := p.size()
	if err != nil {
		return SPRImage{}, err
	}
	if !ok {
		return blankFrame(false), nil
	}

	n := int(w) * int(h)
	var indices []byte
	if rle {
		size, err := p.u16("compressed size")
		if err != nil {
			return SPRImage{}, err
		}
		compressed, err := p.bytes(int(size), "compressed data")
		if err != nil {
			return SPRImage{}, err
		}
		indices = decompressRLE(compressed, n)
	} else if indices, err = p.bytes(n, "pixel indices"); err != nil {
		return SPRImage{}, err
	}

	pixels := make([]byte, n*4)
	for i, idx := range indices {
		if idx == 0 {
			continue
		}
		c := palette.Colors[idx]
		o := i * 4
		pixels[o], pixels[o+1], pixels[o+2], pixels[o+3] = c.R, c.G, c.B, 255
	}
	return SPRImage{Width: w, Height: h, Pixels: pixels}, nil
}

// trueColor reads an ABGR frame.
func (p *sprParser) trueColor() (SPRImage, error) {
	w, h, ok, err := p.size()
	if err != nil {
		return SPRImage{}, err
	}
	if !ok {
		return blankFrame(true), nil
	}

	abgr, err := p.bytes(int(w)*int(h)*4, "ABGR data")
	if err != nil {
		return SPRImage{}, err
	}
	pixels := make([]byte, len(abgr))
	for o := 0; o < len(abgr); o += 4 {
		pixels[o] = abgr[o+3]
		pixels[o+1] = abgr[o+2]
		pixels[o+2] = abgr[o+1]
		pixels[o+3] = abgr[o]
	}
	return SPRImage{Width: w, Height: h, Pixels: pixels, TrueColor: true}, nil
}

// decompressRLE expands zero runs: 0x00 N is N zeros (0x00 0x00 is a single
// zero) and any other byte is a literal. Output is padded to size.
func decompressRLE(compressed []byte, size int) []byte {
	out := make([]byte, 0, size)
	for i := 0; i < len(compressed) && len(out) < size; i++ {
		b := compressed[i]
		if b != 0 {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(compressed) {
			break
		}
		run := max(int(compressed[i]), 1)
		for j := 0; j < run && len(out) < size; j++ {
			out = append(out, 0)
		}
	}
	return out[:size]
}
