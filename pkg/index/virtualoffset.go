package index

import (
	"fmt"

	"github.com/biogo/hts/bgzf"
)

// VirtualOffset addresses a byte of record data inside a BGZF-compressed
// file. The high 48 bits hold the file offset of the compressed block's
// first byte; the low 16 bits hold the offset into that block's
// decompressed contents. Integer ordering of the combined value matches
// lexicographic ordering of (block address, in-block offset).
type VirtualOffset uint64

// maxBlockAddress is the largest compressed-file offset addressable by the
// 48-bit block address field.
const maxBlockAddress = 1<<48 - 1

// OpenEnd marks a chunk end that cannot be resolved until the total length
// of the final file is known. It is closed by the merger's Finish step.
const OpenEnd = VirtualOffset(1<<64 - 1)

// MakeVirtualOffset builds a VirtualOffset from a compressed block address
// and an offset into the block's decompressed contents.
func MakeVirtualOffset(blockAddress int64, inBlock uint16) (VirtualOffset, error) {
	if blockAddress < 0 || blockAddress > maxBlockAddress {
		return 0, &OverflowError{BlockAddress: blockAddress}
	}
	return VirtualOffset(blockAddress)<<16 | VirtualOffset(inBlock), nil
}

// BlockAddress returns the compressed-file offset of the block the offset
// points into.
func (v VirtualOffset) BlockAddress() int64 {
	return int64(v >> 16)
}

// InBlock returns the offset into the block's decompressed contents.
func (v VirtualOffset) InBlock() uint16 {
	return uint16(v)
}

// Translate shifts the block address by byteOffset, leaving the in-block
// offset unchanged. Concatenation moves whole blocks; it never subdivides
// them.
func (v VirtualOffset) Translate(byteOffset int64) (VirtualOffset, error) {
	addr := v.BlockAddress() + byteOffset
	if addr > maxBlockAddress {
		return 0, &OverflowError{BlockAddress: addr}
	}
	return VirtualOffset(addr)<<16 | VirtualOffset(v.InBlock()), nil
}

// BGZFOffset converts to the biogo/hts representation.
func (v VirtualOffset) BGZFOffset() bgzf.Offset {
	return bgzf.Offset{File: v.BlockAddress(), Block: v.InBlock()}
}

// FromBGZFOffset converts from the biogo/hts representation.
func FromBGZFOffset(o bgzf.Offset) VirtualOffset {
	return VirtualOffset(o.File)<<16 | VirtualOffset(o.Block)
}

func (v VirtualOffset) String() string {
	if v == OpenEnd {
		return "open"
	}
	return fmt.Sprintf("%d:%d", v.BlockAddress(), v.InBlock())
}

// CompareVirtualOffsets returns -1, 0 or 1 ordering a before, equal to or
// after b.
func CompareVirtualOffsets(a, b VirtualOffset) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Chunk is a contiguous run of records between two virtual offsets,
// Start <= End.
type Chunk struct {
	Start VirtualOffset
	End   VirtualOffset
}
