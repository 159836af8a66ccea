package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var baiMagic = [4]byte{'B', 'A', 'I', 0x1}

// ReadBAI decodes a serialized binned index. The stats pseudo-bin is
// unpacked into ReferenceStats; the trailing no-reference record count is
// optional in the layout and defaults to zero.
func ReadBAI(r io.Reader) (*BinnedIndex, error) {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != baiMagic {
		return nil, errors.New("magic number mismatch")
	}
	var nRef int32
	if err := binary.Read(r, binary.LittleEndian, &nRef); err != nil {
		return nil, fmt.Errorf("failed to read reference count: %w", err)
	}
	if nRef < 0 {
		return nil, fmt.Errorf("invalid reference count %d", nRef)
	}
	ix := NewBinnedIndex(int(nRef))
	for i := range ix.References {
		if err := readReference(r, &ix.References[i]); err != nil {
			return nil, fmt.Errorf("failed to read reference %d: %w", i, err)
		}
	}
	err := binary.Read(r, binary.LittleEndian, &ix.Unplaced)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read no-reference count: %w", err)
	}
	return ix, nil
}

func readReference(r io.Reader, ref *ReferenceIndex) error {
	var nBin int32
	if err := binary.Read(r, binary.LittleEndian, &nBin); err != nil {
		return fmt.Errorf("failed to read bin count: %w", err)
	}
	for i := int32(0); i < nBin; i++ {
		var (
			id     uint32
			nChunk int32
		)
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("failed to read bin id: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &nChunk); err != nil {
			return fmt.Errorf("failed to read chunk count: %w", err)
		}
		if nChunk < 0 {
			return fmt.Errorf("bin %d: invalid chunk count %d", id, nChunk)
		}
		if id == StatsBin {
			if nChunk != 2 {
				return fmt.Errorf("stats pseudo-bin has %d chunks, want 2", nChunk)
			}
			var raw [4]uint64
			if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
				return fmt.Errorf("failed to read stats pseudo-bin: %w", err)
			}
			ref.Stats = &ReferenceStats{
				First:    VirtualOffset(raw[0]),
				Last:     VirtualOffset(raw[1]),
				Mapped:   raw[2],
				Unmapped: raw[3],
			}
			continue
		}
		chunks := make([]Chunk, nChunk)
		for j := range chunks {
			var raw [2]uint64
			if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
				return fmt.Errorf("failed to read chunk: %w", err)
			}
			chunks[j] = Chunk{Start: VirtualOffset(raw[0]), End: VirtualOffset(raw[1])}
		}
		ref.Bins[id] = chunks
	}
	var nIntv int32
	if err := binary.Read(r, binary.LittleEndian, &nIntv); err != nil {
		return fmt.Errorf("failed to read window count: %w", err)
	}
	if nIntv > 0 {
		ref.Linear = make([]VirtualOffset, nIntv)
		if err := binary.Read(r, binary.LittleEndian, ref.Linear); err != nil {
			return fmt.Errorf("failed to read linear index: %w", err)
		}
	}
	return nil
}

// WriteBAI encodes the index in the standard binned-index layout. Bins are
// written in ascending id order with the stats pseudo-bin last, so output
// is deterministic for a given index.
func WriteBAI(w io.Writer, ix *BinnedIndex) error {
	if err := binary.Write(w, binary.LittleEndian, baiMagic); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ix.References))); err != nil {
		return fmt.Errorf("failed to write reference count: %w", err)
	}
	for i := range ix.References {
		if err := writeReference(w, &ix.References[i]); err != nil {
			return fmt.Errorf("failed to write reference %d: %w", i, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, ix.Unplaced); err != nil {
		return fmt.Errorf("failed to write no-reference count: %w", err)
	}
	return nil
}

func writeReference(w io.Writer, ref *ReferenceIndex) error {
	nBin := int32(len(ref.Bins))
	if ref.Stats != nil {
		nBin++
	}
	if err := binary.Write(w, binary.LittleEndian, nBin); err != nil {
		return fmt.Errorf("failed to write bin count: %w", err)
	}
	for _, id := range ref.binIDs() {
		chunks := ref.Bins[id]
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("failed to write bin id: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(chunks))); err != nil {
			return fmt.Errorf("failed to write chunk count: %w", err)
		}
		for _, c := range chunks {
			if err := binary.Write(w, binary.LittleEndian, [2]uint64{uint64(c.Start), uint64(c.End)}); err != nil {
				return fmt.Errorf("failed to write chunk: %w", err)
			}
		}
	}
	if ref.Stats != nil {
		raw := [4]uint64{uint64(ref.Stats.First), uint64(ref.Stats.Last), ref.Stats.Mapped, ref.Stats.Unmapped}
		if err := binary.Write(w, binary.LittleEndian, uint32(StatsBin)); err != nil {
			return fmt.Errorf("failed to write stats pseudo-bin id: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, int32(2)); err != nil {
			return fmt.Errorf("failed to write stats pseudo-bin chunk count: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
			return fmt.Errorf("failed to write stats pseudo-bin: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(ref.Linear))); err != nil {
		return fmt.Errorf("failed to write window count: %w", err)
	}
	if len(ref.Linear) > 0 {
		if err := binary.Write(w, binary.LittleEndian, ref.Linear); err != nil {
			return fmt.Errorf("failed to write linear index: %w", err)
		}
	}
	return nil
}
