package index

import "sort"

// BinnedIndex is the in-memory form of a coordinate-binned (BAI) index:
// per-reference bins of chunks plus a linear index for bin skipping, and
// file-level counters for records with no reference.
type BinnedIndex struct {
	References []ReferenceIndex

	// Unplaced counts records stored without a reference sequence.
	Unplaced uint64

	// UnplacedStart is the virtual offset of the first record without a
	// reference. Such records trail the mapped references, so it is fixed
	// by the first producer that observes one. Zero means unknown. It is
	// not part of the serialized layout.
	UnplacedStart VirtualOffset
}

// ReferenceIndex holds the binned and linear indexes for one reference
// sequence.
type ReferenceIndex struct {
	// Bins maps bin id to the bin's chunk list, sorted by chunk start.
	Bins map[uint32][]Chunk

	// Linear holds one entry per TileWidth window: the smallest virtual
	// offset of any record whose start position falls at or after the
	// window. The array covers windows up to the last record's start
	// window, so every entry is backed by a record.
	Linear []VirtualOffset

	// Stats mirrors the serialized stats pseudo-bin. Nil when the
	// reference has no records.
	Stats *ReferenceStats
}

// ReferenceStats summarises one reference: the span of its records in the
// file and its mapped/unmapped record counts.
type ReferenceStats struct {
	First    VirtualOffset
	Last     VirtualOffset
	Mapped   uint64
	Unmapped uint64
}

// NewBinnedIndex returns an empty index over refCount reference sequences.
func NewBinnedIndex(refCount int) *BinnedIndex {
	ix := &BinnedIndex{References: make([]ReferenceIndex, refCount)}
	for i := range ix.References {
		ix.References[i].Bins = make(map[uint32][]Chunk)
	}
	return ix
}

// binIDs returns the reference's bin ids in ascending order.
func (r *ReferenceIndex) binIDs() []uint32 {
	ids := make([]uint32, 0, len(r.Bins))
	for id := range r.Bins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
