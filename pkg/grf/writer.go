package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Faultbox/midgard-extrude/pkg/encoding"
)

// File is one archive member for WriteArchive.
type File struct {
	Name string // UTF-8, either slash style
	Data []byte
}

// WriteArchive writes a version 0x200 archive holding files. Names are
// stored with backslashes in EUC-KR, and contents are zlib compressed and
// padded to 8 bytes.
func WriteArchive(w io.Writer, files []File) error {
	var body, table bytes.Buffer
	for _, f := range files {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(f.Data); err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}

		size := uint32(compressed.Len())
		aligned := (size + 7) &^ 7
		offset := uint32(body.Len())
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-size))

		name := strings.ReplaceAll(f.Name, "/", "\\")
		table.Write(encoding.UTF8ToEUCKR(name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, size)
		binary.Write(&table, binary.LittleEndian, aligned)
		binary.Write(&table, binary.LittleEndian, uint32(len(f.Data)))
		table.WriteByte(flagFile)
		binary.Write(&table, binary.LittleEndian, offset)
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		Seed:        0,
		FileCount:   uint32(len(files)) + 7,
		Version:     0x200,
	}
	copy(h.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(compressedTable.Len()), uint32(table.Len())}); err != nil {
		return err
	}
	_, err := w.Write(compressedTable.Bytes())
	return err
}

// Create writes files to a new archive at name.
func Create(name string, files []File) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := WriteArchive(f, files); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
