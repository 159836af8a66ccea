package index

import "fmt"

// StructuralMismatchError reports partitions that disagree on structure the
// merge requires to be shared: the reference-sequence set or the uniform
// index granularity. Always fatal; the merge is aborted.
type StructuralMismatchError struct {
	Partition int
	Detail    string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("partition %d: structural mismatch: %s", e.Partition, e.Detail)
}

// OrderingViolationError reports a per-partition index whose chunks or
// offsets are not monotonically increasing on input. The index is treated
// as corrupt, never silently re-sorted.
type OrderingViolationError struct {
	Partition int
	RefID     int
	Bin       int64 // -1 when the violation is not inside a bin
	Detail    string
}

func (e *OrderingViolationError) Error() string {
	if e.Bin >= 0 {
		return fmt.Sprintf("partition %d: reference %d bin %d: %s", e.Partition, e.RefID, e.Bin, e.Detail)
	}
	if e.RefID >= 0 {
		return fmt.Sprintf("partition %d: reference %d: %s", e.Partition, e.RefID, e.Detail)
	}
	return fmt.Sprintf("partition %d: %s", e.Partition, e.Detail)
}

// OverflowError reports a block address outside the 48-bit addressable
// range: the concatenated file is too large to index with this offset
// scheme.
type OverflowError struct {
	Partition    int
	BlockAddress int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("partition %d: block address %d exceeds 48-bit virtual offset range", e.Partition, e.BlockAddress)
}
