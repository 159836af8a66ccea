package index

// PartitionIndexes pairs one partition's decoded indexes with its
// compressed byte length. The length excludes the shared header and the
// file terminator, which exist once per final file, not per partition.
type PartitionIndexes struct {
	Binned  *BinnedIndex
	Uniform *UniformIndex
	Length  int64
}

// MergeDriver runs the binned and uniform index mergers in lockstep over a
// single pass of the partition sequence. Both mergers consume the same
// cumulative-offset schedule, so one ordered pass suffices. The driver
// performs no I/O: loading and decoding partition index files is the
// caller's concern, and results must be handed to Add strictly in
// partition order regardless of the order they were loaded in.
type MergeDriver struct {
	binned  *BinnedIndexMerger
	uniform *UniformIndexMerger
}

// NewMergeDriver returns a driver for a file whose shared header occupies
// headerLength compressed bytes and whose header declares refCount
// reference sequences. Every partition index is validated against
// refCount.
func NewMergeDriver(headerLength int64, refCount int) *MergeDriver {
	return &MergeDriver{
		binned:  NewBinnedIndexMerger(headerLength, refCount),
		uniform: NewUniformIndexMerger(headerLength),
	}
}

// Add folds the next partition into both merged indexes.
func (d *MergeDriver) Add(p PartitionIndexes) error {
	if err := d.binned.Add(p.Binned, p.Length); err != nil {
		return err
	}
	return d.uniform.Add(p.Uniform, p.Length)
}

// Finish finalizes both indexes with the total byte length of the final
// file: header, all partitions and the terminator block.
func (d *MergeDriver) Finish(totalLength int64) (*BinnedIndex, *UniformIndex, error) {
	binned, err := d.binned.Finish(totalLength)
	if err != nil {
		return nil, nil, err
	}
	uniform, err := d.uniform.Finish(totalLength)
	if err != nil {
		return nil, nil, err
	}
	return binned, uniform, nil
}
