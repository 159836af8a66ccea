// Package partbam reads and writes partitioned BAM directories: a BAM file
// split into a shared header, a sequence of record partitions and a
// terminator, each a valid BGZF stream, such that concatenating them in
// order yields a complete BAM file. Each partition carries hidden binned
// and uniform index companions, which Merge combines into the indexes of
// the concatenated file without re-reading the records.
package partbam

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var bamMagic = [4]byte{'B', 'A', 'M', 1}

// Reference is one entry of a BAM header's reference dictionary.
type Reference struct {
	Name   string
	Length int32
}

// RawHeader is a decoded BAM header. Bytes holds the exact decompressed
// encoding, magic included, so the header can be re-emitted without any
// re-serialization drift; Refs is the parsed reference dictionary.
type RawHeader struct {
	Bytes []byte
	Refs  []Reference
}

// ReadRawHeader decodes a BAM header from the decompressed stream r,
// leaving r positioned at the first alignment record.
func ReadRawHeader(r io.Reader) (*RawHeader, error) {
	var raw bytes.Buffer
	tee := io.TeeReader(r, &raw)

	var magic [4]byte
	if _, err := io.ReadFull(tee, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != bamMagic {
		return nil, fmt.Errorf("not a BAM stream: magic % x", magic)
	}

	var textLen int32
	if err := binary.Read(tee, binary.LittleEndian, &textLen); err != nil {
		return nil, fmt.Errorf("failed to read header text length: %w", err)
	}
	if textLen < 0 {
		return nil, fmt.Errorf("negative header text length %d", textLen)
	}
	if _, err := io.CopyN(io.Discard, tee, int64(textLen)); err != nil {
		return nil, fmt.Errorf("failed to read header text: %w", err)
	}

	var refCount int32
	if err := binary.Read(tee, binary.LittleEndian, &refCount); err != nil {
		return nil, fmt.Errorf("failed to read reference count: %w", err)
	}
	if refCount < 0 {
		return nil, fmt.Errorf("negative reference count %d", refCount)
	}

	refs := make([]Reference, 0, refCount)
	for i := int32(0); i < refCount; i++ {
		var nameLen int32
		if err := binary.Read(tee, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("failed to read reference %d name length: %w", i, err)
		}
		if nameLen < 1 {
			return nil, fmt.Errorf("reference %d: invalid name length %d", i, nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(tee, name); err != nil {
			return nil, fmt.Errorf("failed to read reference %d name: %w", i, err)
		}
		var refLen int32
		if err := binary.Read(tee, binary.LittleEndian, &refLen); err != nil {
			return nil, fmt.Errorf("failed to read reference %d length: %w", i, err)
		}
		// The name is NUL-terminated on disk.
		refs = append(refs, Reference{Name: string(name[:nameLen-1]), Length: refLen})
	}

	return &RawHeader{Bytes: raw.Bytes(), Refs: refs}, nil
}
