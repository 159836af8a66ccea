package index

import (
	"errors"
	"fmt"
)

// BinnedIndexMerger folds per-partition binned indexes, in partition order,
// into a single index equivalent to one built over the concatenated file.
// Each partition's offsets are translated by the cumulative byte offset of
// the partition within the final file; the cumulative offset starts at the
// shared header length and advances by each partition's compressed byte
// length.
//
// Partitions must be added strictly in file order. The fold is
// single-threaded: the cumulative offset and the in-progress index are the
// only mutable state and are owned by one merge pass.
type BinnedIndexMerger struct {
	merged    *BinnedIndex
	cum       int64
	partition int
}

// NewBinnedIndexMerger returns a merger for indexes over refCount reference
// sequences. headerLength is the compressed byte length of the shared
// header written once before partition 0.
func NewBinnedIndexMerger(headerLength int64, refCount int) *BinnedIndexMerger {
	return &BinnedIndexMerger{
		merged: NewBinnedIndex(refCount),
		cum:    headerLength,
	}
}

// Add folds the next partition's index into the merged index and advances
// the cumulative offset by partLength, the partition's compressed byte
// length. Any error is a permanent defect in the partition's index and
// aborts the merge.
func (m *BinnedIndexMerger) Add(ix *BinnedIndex, partLength int64) error {
	if len(ix.References) != len(m.merged.References) {
		return &StructuralMismatchError{
			Partition: m.partition,
			Detail:    fmt.Sprintf("index has %d reference sequences, want %d", len(ix.References), len(m.merged.References)),
		}
	}
	for rid := range ix.References {
		if err := m.mergeReference(rid, &ix.References[rid]); err != nil {
			return err
		}
	}
	if ix.Unplaced > 0 && m.merged.UnplacedStart == 0 && ix.UnplacedStart != 0 {
		start, err := m.translate(ix.UnplacedStart)
		if err != nil {
			return err
		}
		m.merged.UnplacedStart = start
	}
	m.merged.Unplaced += ix.Unplaced
	m.cum += partLength
	m.partition++
	return nil
}

func (m *BinnedIndexMerger) mergeReference(rid int, ref *ReferenceIndex) error {
	merged := &m.merged.References[rid]
	for _, id := range ref.binIDs() {
		if err := m.mergeBin(rid, id, merged, ref.Bins[id]); err != nil {
			return err
		}
	}
	if err := m.mergeLinear(rid, merged, ref.Linear); err != nil {
		return err
	}
	return m.mergeStats(merged, ref.Stats)
}

// mergeBin appends the partition's translated chunks to the merged bin.
// Partitions arrive in increasing file order and chunks within a partition
// are already increasing, so the merged list stays sorted by construction;
// it is never re-sorted. A chunk that starts where the previous one ended
// extends it, matching what a single-pass indexer of the concatenated file
// would have produced.
func (m *BinnedIndexMerger) mergeBin(rid int, id uint32, merged *ReferenceIndex, chunks []Chunk) error {
	var prev VirtualOffset
	for i, c := range chunks {
		if c.End != OpenEnd && c.End < c.Start {
			return &OrderingViolationError{
				Partition: m.partition, RefID: rid, Bin: int64(id),
				Detail: fmt.Sprintf("chunk %d ends before it starts", i),
			}
		}
		if c.Start < prev {
			return &OrderingViolationError{
				Partition: m.partition, RefID: rid, Bin: int64(id),
				Detail: fmt.Sprintf("chunk %d out of start order", i),
			}
		}
		prev = c.Start
		t, err := m.translateChunk(c)
		if err != nil {
			return err
		}
		list := merged.Bins[id]
		if n := len(list); n > 0 && list[n-1].End >= t.Start {
			if t.End > list[n-1].End {
				list[n-1].End = t.End
			}
		} else {
			list = append(list, t)
		}
		merged.Bins[id] = list
	}
	return nil
}

// mergeLinear combines the partition's translated linear index into the
// merged one, extending it to any windows the partition introduces. Every
// entry names the first record starting at or after its window, so every
// entry is translated, and where two partitions cover the same window the
// earlier partition's smaller offset wins.
func (m *BinnedIndexMerger) mergeLinear(rid int, merged *ReferenceIndex, linear []VirtualOffset) error {
	if len(linear) > len(merged.Linear) {
		grown := make([]VirtualOffset, len(linear))
		n := copy(grown, merged.Linear)
		for i := n; i < len(grown); i++ {
			grown[i] = OpenEnd
		}
		merged.Linear = grown
	}
	var prev VirtualOffset
	for i, v := range linear {
		if v < prev {
			return &OrderingViolationError{
				Partition: m.partition, RefID: rid, Bin: -1,
				Detail: fmt.Sprintf("linear index window %d out of order", i),
			}
		}
		prev = v
		t, err := m.translate(v)
		if err != nil {
			return err
		}
		if t < merged.Linear[i] {
			merged.Linear[i] = t
		}
	}
	return nil
}

func (m *BinnedIndexMerger) mergeStats(merged *ReferenceIndex, stats *ReferenceStats) error {
	if stats == nil {
		return nil
	}
	first, err := m.translate(stats.First)
	if err != nil {
		return err
	}
	last, err := m.translate(stats.Last)
	if err != nil {
		return err
	}
	if merged.Stats == nil {
		merged.Stats = &ReferenceStats{First: first, Last: last}
	} else {
		if first < merged.Stats.First {
			merged.Stats.First = first
		}
		if last > merged.Stats.Last {
			merged.Stats.Last = last
		}
	}
	merged.Stats.Mapped += stats.Mapped
	merged.Stats.Unmapped += stats.Unmapped
	return nil
}

// Finish closes the merged index with the total byte length of the final
// concatenated file: any bin chunk whose end is still the open-end
// sentinel is closed to the end of the file. The merger must not be used
// afterwards.
func (m *BinnedIndexMerger) Finish(totalLength int64) (*BinnedIndex, error) {
	end, err := MakeVirtualOffset(totalLength, 0)
	if err != nil {
		return nil, err
	}
	for i := range m.merged.References {
		ref := &m.merged.References[i]
		for id, chunks := range ref.Bins {
			for j := range chunks {
				if chunks[j].End == OpenEnd {
					chunks[j].End = end
				}
			}
			ref.Bins[id] = chunks
		}
	}
	return m.merged, nil
}

func (m *BinnedIndexMerger) translate(v VirtualOffset) (VirtualOffset, error) {
	t, err := v.Translate(m.cum)
	if err != nil {
		var oe *OverflowError
		if errors.As(err, &oe) {
			oe.Partition = m.partition
		}
		return 0, err
	}
	return t, nil
}

func (m *BinnedIndexMerger) translateChunk(c Chunk) (Chunk, error) {
	start, err := m.translate(c.Start)
	if err != nil {
		return Chunk{}, err
	}
	end := OpenEnd
	if c.End != OpenEnd {
		end, err = m.translate(c.End)
		if err != nil {
			return Chunk{}, err
		}
	}
	return Chunk{Start: start, End: end}, nil
}
