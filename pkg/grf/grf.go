// Package grf reads Ragnarok Online GRF archives (version 0x200).
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-extrude/pkg/encoding"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	entrySize  = 17

	flagFile      = 0x01
	flagEncrypted = 0x06 // mixed or DES header encryption
)

// Archive errors.
var (
	ErrInvalidMagic = errors.New("invalid GRF magic")
	ErrVersion      = errors.New("unsupported GRF version")
	ErrCorrupt      = errors.New("corrupt GRF data")
	ErrNotFound     = errors.New("file not found in archive")
	ErrEncrypted    = errors.New("encrypted GRF entries are not supported")
)

// Archive represents an opened GRF archive. Reads are safe for concurrent use.
type Archive struct {
	file    *os.File
	header  Header
	entries map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive. Name is UTF-8 and normalized.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(name string) (*Archive, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	a := &Archive{
		file:    file,
		entries: make(map[string]*Entry),
	}
	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Version returns the archive format version.
func (a *Archive) Version() uint32 {
	return a.header.Version
}

func (a *Archive) readHeader() error {
	r := io.NewSectionReader(a.file, 0, headerSize)
	if err := binary.Read(r, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != 0x200 {
		return fmt.Errorf("%w: 0x%x", ErrVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.file.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: table sizes: %v", ErrCorrupt, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressed := make([]byte, compressedSize)
	if _, err := a.file.ReadAt(compressed, tableOffset+8); err != nil {
		return fmt.Errorf("%w: table data: %v", ErrCorrupt, err)
	}
	table, err := inflate(compressed, uncompressedSize)
	if err != nil {
		return fmt.Errorf("%w: table: %v", ErrCorrupt, err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("%w: file count %d, seed %d", ErrCorrupt, a.header.FileCount, a.header.Seed)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7

	offset := 0
	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: entry %d name not terminated", ErrCorrupt, i)
		}
		raw := table[offset : offset+nameEnd]
		offset += nameEnd + 1

		if offset+entrySize > len(table) {
			return fmt.Errorf("%w: entry %d truncated", ErrCorrupt, i)
		}
		e := &Entry{
			Name:             encoding.NormalizeGRFPath(encoding.EUCKRToUTF8(raw)),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += entrySize

		// Directory entries lack the file flag.
		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for name := range a.entries {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of files.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[encoding.NormalizeGRFPath(name)]
	return ok
}

// Stat returns the entry for name.
func (a *Archive) Stat(name string) (*Entry, error) {
	e, ok := a.entries[encoding.NormalizeGRFPath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// Glob returns the sorted paths matching pattern, using path.Match syntax on
// normalized names. A pattern without a slash matches base names anywhere.
func (a *Archive) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizeGRFPath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	baseOnly := !strings.Contains(pattern, "/")

	var result []string
	for name := range a.entries {
		subject := name
		if baseOnly {
			subject = path.Base(name)
		}
		if ok, _ := path.Match(pattern, subject); ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

// ReadFile returns the decompressed contents of a file.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}
	if e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%w: %s: compressed size %d exceeds aligned %d", ErrCorrupt, name, e.CompressedSize, e.AlignedSize)
	}

	data := make([]byte, e.AlignedSize)
	if _, err := a.file.ReadAt(data, int64(e.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}

	if e.CompressedSize == e.UncompressedSize {
		return data[:e.UncompressedSize], nil
	}
	out, err := inflate(data[:e.CompressedSize], e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return out, nil
}

func inflate(compressed []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
