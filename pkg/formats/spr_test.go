package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSPR_InvalidMagic(t *testing.T) {
	data := []byte("XX\x01\x02")
	_, err := ParseSPR(data)
	if !errors.Is(err, ErrInvalidSPRMagic) {
		t.Errorf("expected ErrInvalidSPRMagic, got %v", err)
	}
}

func TestParseSPR_TruncatedData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"header only", []byte("SP")},
		{"no palette", []byte("SP\x01\x02\x01\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSPR(tt.data); !errors.Is(err, ErrTruncatedSPRData) {
				t.Errorf("expected ErrTruncatedSPRData, got %v", err)
			}
		})
	}
}

func TestParseSPR_UnsupportedVersion(t *testing.T) {
	tests := []struct {
		name         string
		minor, major byte
	}{
		{"system palette 1.0", 0, 1},
		{"future 3.0", 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, 1030)
			copy(data, []byte{'S', 'P', tt.minor, tt.major})
			if _, err := ParseSPR(data); !errors.Is(err, ErrUnsupportedSPRVersion) {
				t.Errorf("expected ErrUnsupportedSPRVersion, got %v", err)
			}
		})
	}
}

func TestParseSPR_Version11(t *testing.T) {
	parsed, err := ParseSPR(buildSyntheticSPR(1, 1, 1, 0, false))
	if err != nil {
		t.Fatalf("failed to parse synthetic v1.1 SPR: %v", err)
	}

	if parsed.Version.String() != "1.1" {
		t.Errorf("expected version 1.1, got %s", parsed.Version)
	}
	if len(parsed.Images) != 1 || parsed.IndexedCount != 1 {
		t.Fatalf("expected 1 indexed image, got %d (%d indexed)", len(parsed.Images), parsed.IndexedCount)
	}

	img := parsed.Images[0]
	if img.Width != 2 || img.Height != 2 {
		t.Errorf("expected 2x2 image, got %dx%d", img.Width, img.Height)
	}
	// Indices 0,1,2,3: transparent, red, green, blue.
	want := []byte{0, 0, 0, 0, 255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255}
	if !bytes.Equal(img.Pixels, want) {
		t.Errorf("pixels = %v, want %v", img.Pixels, want)
	}
}

func TestParseSPR_Version20(t *testing.T) {
	parsed, err := ParseSPR(buildSyntheticSPR(2, 0, 1, 1, false))
	if err != nil {
		t.Fatalf("failed to parse synthetic v2.0 SPR: %v", err)
	}

	if len(parsed.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(parsed.Images))
	}
	if parsed.Images[0].TrueColor || !parsed.Images[1].TrueColor {
		t.Error("expected indexed frame followed by true-color frame")
	}

	// ABGR -> RGBA
	tc := parsed.Images[1].Pixels
	if tc[0] != 255 || tc[1] != 0 || tc[2] != 0 || tc[3] != 255 {
		t.Errorf("first pixel should be red, got RGBA(%d,%d,%d,%d)", tc[0], tc[1], tc[2], tc[3])
	}
	if tc[15] != 128 {
		t.Errorf("last pixel alpha = %d, want 128", tc[15])
	}
}

func TestParseSPR_Version21_RLE(t *testing.T) {
	parsed, err := ParseSPR(buildSyntheticSPR(2, 1, 1, 0, true))
	if err != nil {
		t.Fatalf("failed to parse synthetic v2.1 SPR: %v", err)
	}

	img := parsed.Images[0]
	if img.Width != 4 || img.Height != 4 {
		t.Fatalf("expected 4x4 image, got %dx%d", img.Width, img.Height)
	}

	// 4 transparent, color1, 6 transparent, color2, 4 transparent
	opaque := map[int]bool{4: true, 11: true}
	for i := 0; i < 16; i++ {
		a := img.Pixels[i*4+3]
		if opaque[i] != (a == 255) {
			t.Errorf("pixel %d alpha = %d", i, a)
		}
	}
}

func TestParseSPR_DeclaredTrueColorMissing(t *testing.T) {
	data := buildSyntheticSPR(2, 0, 1, 1, false)

	// Claim two true-color frames while carrying one.
	data[6] = 2

	parsed, err := ParseSPR(data)
	if err != nil {
		t.Fatalf("ParseSPR: %v", err)
	}
	if len(parsed.Images) != 2 {
		t.Errorf("expected 2 images, got %d", len(parsed.Images))
	}
}

func TestParseSPR_TruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("SP\x00\x02")
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	buf.Write([]byte{1, 2, 3}) // 64 indices expected
	buf.Write(make([]byte, 1024))

	if _, err := ParseSPR(buf.Bytes()); !errors.Is(err, ErrTruncatedSPRData) {
		t.Errorf("expected ErrTruncatedSPRData, got %v", err)
	}
}

func TestDecompressRLE(t *testing.T) {
	tests := []struct {
		name       string
		compressed []byte
		targetSize int
		expected   []byte
	}{
		{
			name:       "literal bytes",
			compressed: []byte{1, 2, 3, 4},
			targetSize: 4,
			expected:   []byte{1, 2, 3, 4},
		},
		{
			name:       "run of zeros",
			compressed: []byte{0x00, 0x04},
			targetSize: 4,
			expected:   []byte{0, 0, 0, 0},
		},
		{
			name:       "single zero",
			compressed: []byte{0x00, 0x00},
			targetSize: 1,
			expected:   []byte{0},
		},
		{
			name:       "mixed",
			compressed: []byte{1, 0x00, 0x02, 2},
			targetSize: 4,
			expected:   []byte{1, 0, 0, 2},
		},
		{
			name:       "short input is padded",
			compressed: []byte{7},
			targetSize: 3,
			expected:   []byte{7, 0, 0},
		},
		{
			name:       "overlong run is clipped",
			compressed: []byte{0x00, 0x10},
			targetSize: 2,
			expected:   []byte{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decompressRLE(tt.compressed, tt.targetSize)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("got %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestParseSPR_InvalidImage(t *testing.T) {
	parsed, err := ParseSPR(buildSPRWithInvalidImage())
	if err != nil {
		t.Fatalf("failed to parse SPR with invalid image: %v", err)
	}

	if len(parsed.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(parsed.Images))
	}
	img := parsed.Images[0]
	if img.Width != 1 || img.Height != 1 || img.Pixels[3] != 0 {
		t.Errorf("expected 1x1 transparent placeholder, got %dx%d", img.Width, img.Height)
	}
}

func TestSPRFrame(t *testing.T) {
	parsed, err := ParseSPR(buildSyntheticSPR(2, 0, 1, 1, false))
	if err != nil {
		t.Fatalf("ParseSPR: %v", err)
	}

	if _, err := parsed.Frame(1); err != nil {
		t.Errorf("Frame(1): %v", err)
	}
	for _, i := range []int{-1, 2} {
		if _, err := parsed.Frame(i); !errors.Is(err, ErrFrameIndex) {
			t.Errorf("Frame(%d): expected ErrFrameIndex, got %v", i, err)
		}
	}
}

func TestSPRImageNRGBA(t *testing.T) {
	parsed, err := ParseSPR(buildSyntheticSPR(1, 1, 1, 0, false))
	if err != nil {
		t.Fatalf("ParseSPR: %v", err)
	}

	img := parsed.Images[0].NRGBA()
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if c := img.NRGBAAt(0, 0); c.A != 0 {
		t.Errorf("(0,0) should be transparent, got %v", c)
	}
	if c := img.NRGBAAt(1, 0); c.R != 255 || c.A != 255 {
		t.Errorf("(1,0) should be red, got %v", c)
	}
	if c := img.NRGBAAt(1, 1); c.B != 255 || c.A != 255 {
		t.Errorf("(1,1) should be blue, got %v", c)
	}
}

func TestParseSPRFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.spr")
	if err := os.WriteFile(path, buildSyntheticSPR(2, 1, 2, 1, true), 0644); err != nil {
		t.Fatal(err)
	}

	spr, err := ParseSPRFile(path)
	if err != nil {
		t.Fatalf("ParseSPRFile: %v", err)
	}
	if len(spr.Images) != 3 {
		t.Errorf("expected 3 images, got %d", len(spr.Images))
	}

	if _, err := ParseSPRFile(filepath.Join(t.TempDir(), "missing.spr")); err == nil {
		t.Error("expected error for missing file")
	}
}

// buildSyntheticSPR creates a synthetic SPR file for testing.
func buildSyntheticSPR(major, minor uint8, indexedCount, trueColorCount int, useRLE bool) []byte {
	var buf bytes.Buffer

	buf.WriteString("SP")
	buf.WriteByte(minor)
	buf.WriteByte(major)

	binary.Write(&buf, binary.LittleEndian, uint16(indexedCount))
	if major >= 2 {
		binary.Write(&buf, binary.LittleEndian, uint16(trueColorCount))
	}

	for i := 0; i < indexedCount; i++ {
		if useRLE {
			// 4x4: 4 transparent, color1, 6 transparent, color2, rest padded
			binary.Write(&buf, binary.LittleEndian, uint16(4))
			binary.Write(&buf, binary.LittleEndian, uint16(4))
			rle := []byte{0x00, 0x04, 0x01, 0x00, 0x06, 0x02, 0x00, 0x04}
			binary.Write(&buf, binary.LittleEndian, uint16(len(rle)))
			buf.Write(rle)
		} else {
			binary.Write(&buf, binary.LittleEndian, uint16(2))
			binary.Write(&buf, binary.LittleEndian, uint16(2))
			buf.Write([]byte{0, 1, 2, 3})
		}
	}

	for i := 0; i < trueColorCount; i++ {
		binary.Write(&buf, binary.LittleEndian, uint16(2))
		binary.Write(&buf, binary.LittleEndian, uint16(2))
		buf.Write([]byte{
			255, 0, 0, 255, // red
			255, 0, 255, 0, // green
			255, 255, 0, 0, // blue
			128, 128, 128, 128, // half-transparent gray
		})
	}

	palette := make([]byte, 1024)
	copy(palette[4:], []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255})
	buf.Write(palette)

	return buf.Bytes()
}

// buildSPRWithInvalidImage creates an SPR with (-1,-1) dimensions.
func buildSPRWithInvalidImage() []byte {
	var buf bytes.Buffer

	buf.WriteString("SP")
	buf.WriteByte(0)
	buf.WriteByte(2)

	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(0))

	binary.Write(&buf, binary.LittleEndian, uint16(0xFFFF))
	binary.Write(&buf, binary.LittleEndian, uint16(0xFFFF))

	buf.Write(make([]byte, 1024))

	return buf.Bytes()
}
