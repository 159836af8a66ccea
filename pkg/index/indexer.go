package index

import "fmt"

// RecordMeta describes the placement of one record: its reference sequence,
// its zero-based half-open coordinate span, and whether it is flagged
// unmapped. Records flagged unmapped but placed at a mate's coordinates are
// binned like mapped records.
type RecordMeta struct {
	RefID    int // -1 for records with no reference
	Start    int
	End      int
	Unmapped bool
}

// Indexer builds a binned index and a uniform index over a single in-order
// scan of a record stream. Records must arrive sorted by (reference,
// start), with no-reference records trailing.
type Indexer struct {
	binned  *BinnedIndex
	uniform *UniformIndex

	// linNext tracks, per reference, the first linear-index window not yet
	// assigned an offset. Windows are assigned by the first record whose
	// start window is at or past them.
	linNext []int

	count        int64
	lastRef      int
	lastPos      int
	lastEnd      VirtualOffset
	unplacedSeen bool
}

// NewIndexer returns an indexer over refCount reference sequences,
// recording every granularity-th record start in the uniform index.
func NewIndexer(refCount int, granularity int64) *Indexer {
	if granularity < 1 {
		granularity = 1
	}
	return &Indexer{
		binned:  NewBinnedIndex(refCount),
		uniform: &UniformIndex{Granularity: granularity},
		linNext: make([]int, refCount),
	}
}

// Add indexes one record occupying chunk c of the stream. Records must be
// valid: a rejected record leaves the indexer unchanged.
func (ix *Indexer) Add(meta RecordMeta, c Chunk) error {
	if c.End < c.Start {
		return fmt.Errorf("record %d: chunk ends before it starts", ix.count)
	}
	if meta.RefID >= 0 {
		if ix.unplacedSeen {
			return fmt.Errorf("record %d: reference %d after records without a reference", ix.count, meta.RefID)
		}
		if meta.RefID >= len(ix.binned.References) {
			return fmt.Errorf("record %d: reference %d out of range", ix.count, meta.RefID)
		}
		if meta.RefID < ix.lastRef || (meta.RefID == ix.lastRef && meta.Start < ix.lastPos) {
			return fmt.Errorf("record %d: out of coordinate sort order", ix.count)
		}
	}

	if ix.count%ix.uniform.Granularity == 0 {
		ix.uniform.Offsets = append(ix.uniform.Offsets, c.Start)
	}
	ix.count++
	ix.lastEnd = c.End

	if meta.RefID < 0 {
		if !ix.unplacedSeen {
			ix.binned.UnplacedStart = c.Start
			ix.unplacedSeen = true
		}
		ix.binned.Unplaced++
		return nil
	}
	ix.lastRef, ix.lastPos = meta.RefID, meta.Start

	end := meta.End
	if end <= meta.Start {
		end = meta.Start + 1
	}
	ref := &ix.binned.References[meta.RefID]

	if ref.Stats == nil {
		ref.Stats = &ReferenceStats{First: c.Start, Last: c.End}
	} else {
		ref.Stats.Last = c.End
	}
	if meta.Unmapped {
		ref.Stats.Unmapped++
	} else {
		ref.Stats.Mapped++
	}

	// A record contiguous with the bin's previous chunk extends it rather
	// than opening a new chunk.
	id := RegionToBin(meta.Start, end)
	list := ref.Bins[id]
	if n := len(list); n > 0 && list[n-1].End >= c.Start {
		if c.End > list[n-1].End {
			list[n-1].End = c.End
		}
	} else {
		list = append(list, c)
	}
	ref.Bins[id] = list

	// This record answers "first record at or after window w" for every
	// window between the previous frontier and its own start window.
	if w := windowIndex(meta.Start); w >= ix.linNext[meta.RefID] {
		grown := make([]VirtualOffset, w+1)
		copy(grown, ref.Linear)
		ref.Linear = grown
		for i := ix.linNext[meta.RefID]; i <= w; i++ {
			ref.Linear[i] = c.Start
		}
		ix.linNext[meta.RefID] = w + 1
	}
	return nil
}

// Finish closes both indexes with the byte length of the indexed stream
// and returns them. The indexer must not be used afterwards.
//
// A record end recorded while the stream's final block was still being
// buffered names a position inside that block; once the block is flushed
// the same position is the boundary before the next block, which is the
// address a reader of the finished stream reports. Finish rewrites such a
// trailing end offset to the end-of-data boundary so that indexing while
// writing and indexing by re-reading agree exactly.
func (ix *Indexer) Finish(fileLength int64) (*BinnedIndex, *UniformIndex, error) {
	end, err := MakeVirtualOffset(fileLength, 0)
	if err != nil {
		return nil, nil, err
	}
	if ix.lastEnd != 0 && ix.lastEnd.InBlock() != 0 && len(ix.binned.References) > 0 {
		ref := &ix.binned.References[ix.lastRef]
		for id, chunks := range ref.Bins {
			if n := len(chunks); n > 0 && chunks[n-1].End == ix.lastEnd {
				chunks[n-1].End = end
				ref.Bins[id] = chunks
			}
		}
		if ref.Stats != nil && ref.Stats.Last == ix.lastEnd {
			ref.Stats.Last = end
		}
	}
	ix.uniform.Offsets = append(ix.uniform.Offsets, end)
	ix.uniform.FileLength = fileLength
	ix.uniform.TotalRecords = ix.count
	return ix.binned, ix.uniform, nil
}
