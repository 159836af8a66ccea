package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// UniformIndex is the in-memory form of a uniform-granularity (SBI) record
// index: the virtual offset of every Granularity-th record start, in file
// order, terminated by the virtual offset of the end of record data. It
// supports splitting a file into evenly sized record ranges without
// decompressing it.
type UniformIndex struct {
	// FileLength is the byte length of the file the index describes.
	FileLength int64

	// MD5 and UUID optionally identify the described file. They are
	// carried through serialization unchanged.
	MD5  [16]byte
	UUID [16]byte

	// TotalRecords counts all records, not only the indexed ones.
	TotalRecords int64

	// Granularity is the record spacing between consecutive entries.
	Granularity int64

	// Offsets holds the indexed record start offsets in strictly
	// increasing order, plus the terminal end-of-data offset.
	Offsets []VirtualOffset
}

var sbiMagic = [4]byte{'S', 'B', 'I', 0x1}

// ReadSBI decodes a serialized uniform index.
func ReadSBI(r io.Reader) (*UniformIndex, error) {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != sbiMagic {
		return nil, errors.New("magic number mismatch")
	}
	ix := &UniformIndex{}
	var nOffsets int64
	for _, field := range []interface{}{
		&ix.FileLength, &ix.MD5, &ix.UUID, &ix.TotalRecords, &ix.Granularity, &nOffsets,
	} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
	}
	if nOffsets < 0 {
		return nil, fmt.Errorf("invalid offset count %d", nOffsets)
	}
	ix.Offsets = make([]VirtualOffset, nOffsets)
	if err := binary.Read(r, binary.LittleEndian, ix.Offsets); err != nil {
		return nil, fmt.Errorf("failed to read offsets: %w", err)
	}
	return ix, nil
}

// WriteSBI encodes the index in the standard uniform-index layout.
func WriteSBI(w io.Writer, ix *UniformIndex) error {
	if err := binary.Write(w, binary.LittleEndian, sbiMagic); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}
	for _, field := range []interface{}{
		ix.FileLength, ix.MD5, ix.UUID, ix.TotalRecords, ix.Granularity, int64(len(ix.Offsets)),
	} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, ix.Offsets); err != nil {
		return fmt.Errorf("failed to write offsets: %w", err)
	}
	return nil
}
