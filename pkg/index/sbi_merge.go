package index

import (
	"errors"
	"fmt"
)

// UniformIndexMerger folds per-partition uniform indexes, in partition
// order, into a single index over the concatenated file. All partitions
// must have been built with the same granularity.
type UniformIndexMerger struct {
	merged    *UniformIndex
	cum       int64
	partition int
}

// NewUniformIndexMerger returns a merger whose cumulative offset starts at
// the shared header length.
func NewUniformIndexMerger(headerLength int64) *UniformIndexMerger {
	return &UniformIndexMerger{
		merged: &UniformIndex{},
		cum:    headerLength,
	}
}

// Add folds the next partition's index into the merged index. Every entry
// except the partition's terminal end-of-data offset is translated by the
// cumulative offset and appended; the terminal entry is dropped because it
// names the same position as the next partition's first entry (or the final
// end of data, appended by Finish).
func (m *UniformIndexMerger) Add(ix *UniformIndex, partLength int64) error {
	if m.partition == 0 {
		m.merged.Granularity = ix.Granularity
	} else if ix.Granularity != m.merged.Granularity {
		return &StructuralMismatchError{
			Partition: m.partition,
			Detail:    fmt.Sprintf("granularity %d, want %d", ix.Granularity, m.merged.Granularity),
		}
	}
	var prev VirtualOffset
	for i, v := range ix.Offsets {
		if i > 0 && v <= prev {
			return &OrderingViolationError{
				Partition: m.partition, RefID: -1, Bin: -1,
				Detail: fmt.Sprintf("offset %d not strictly increasing", i),
			}
		}
		prev = v
		if i == len(ix.Offsets)-1 {
			break
		}
		t, err := v.Translate(m.cum)
		if err != nil {
			var oe *OverflowError
			if errors.As(err, &oe) {
				oe.Partition = m.partition
			}
			return err
		}
		m.merged.Offsets = append(m.merged.Offsets, t)
	}
	m.merged.TotalRecords += ix.TotalRecords
	m.cum += partLength
	m.partition++
	return nil
}

// Finish appends the end-of-data offset and stores the final file length,
// which is a scalar length rather than an address and is therefore not
// translated.
func (m *UniformIndexMerger) Finish(totalLength int64) (*UniformIndex, error) {
	end, err := MakeVirtualOffset(totalLength, 0)
	if err != nil {
		return nil, err
	}
	m.merged.Offsets = append(m.merged.Offsets, end)
	m.merged.FileLength = totalLength
	return m.merged, nil
}
