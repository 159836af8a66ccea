package partbam

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/scttfrdmn/bamstitch-go/pkg/index"
)

// Merge concatenates a partitioned BAM directory into a single BAM file at
// outPath and writes its binned and uniform indexes alongside as
// outPath+".bai" and outPath+".sbi". The record partitions are copied
// byte-for-byte; the merged indexes are computed from the per-partition
// index companions alone. Partial outputs are removed on failure.
func Merge(dirPath, outPath string) (err error) {
	d, err := OpenDir(dirPath)
	if err != nil {
		return err
	}

	header, headerLen, err := readHeaderStream(d.HeaderPath())
	if err != nil {
		return err
	}
	if err := checkTerminator(d.TerminatorPath()); err != nil {
		return err
	}

	partLens := make([]int64, len(d.Parts))
	var totalLen int64 = headerLen
	for i := range d.Parts {
		fi, statErr := os.Stat(d.PartPath(i))
		if statErr != nil {
			return fmt.Errorf("failed to stat partition %d: %w", i, statErr)
		}
		partLens[i] = fi.Size()
		totalLen += fi.Size()
	}
	totalLen += int64(len(index.EOFBlock))

	parts, err := loadPartitionIndexes(d, partLens)
	if err != nil {
		return err
	}

	driver := index.NewMergeDriver(headerLen, len(header.Refs))
	for i, p := range parts {
		if err := driver.Add(p); err != nil {
			return fmt.Errorf("partition %d: %w", i, err)
		}
	}
	binned, uniform, err := driver.Finish(totalLen)
	if err != nil {
		return err
	}

	outputs := []string{outPath, outPath + ".bai", outPath + ".sbi"}
	defer func() {
		if err != nil {
			for _, p := range outputs {
				os.Remove(p)
			}
		}
	}()

	if err = concatenate(d, outPath); err != nil {
		return err
	}
	if err = writeFileWith(outPath+".bai", func(f *os.File) error {
		return index.WriteBAI(f, binned)
	}); err != nil {
		return err
	}
	if err = writeFileWith(outPath+".sbi", func(f *os.File) error {
		return index.WriteSBI(f, uniform)
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Merged %d partitions (%d records) into %s\n",
		len(parts), uniform.TotalRecords, outPath)
	return nil
}

// readHeaderStream decodes the shared header stream and reports its
// compressed byte length, the starting cumulative offset of partition 0.
func readHeaderStream(path string) (*RawHeader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open header stream: %w", err)
	}
	defer f.Close()

	header, err := ReadRawHeader(index.NewBlockReader(f))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode header stream: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("failed to rewind header stream: %w", err)
	}
	info, err := index.Scan(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan header stream: %w", err)
	}
	if info.Terminated {
		return nil, 0, fmt.Errorf("header stream carries an end-of-file block")
	}
	return header, info.Length, nil
}

// checkTerminator verifies the terminator stream is exactly the
// end-of-file marker block.
func checkTerminator(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat terminator: %w", err)
	}
	if fi.Size() != int64(len(index.EOFBlock)) {
		return fmt.Errorf("terminator is %d bytes, want %d", fi.Size(), len(index.EOFBlock))
	}
	return nil
}

// loadPartitionIndexes decodes every partition's index companions, in
// parallel, into a slice indexed by partition number. Decoding is
// parallel; the fold over the results stays strictly in partition order.
func loadPartitionIndexes(d *Dir, partLens []int64) ([]index.PartitionIndexes, error) {
	workers := runtime.NumCPU()
	if workers > len(d.Parts) {
		workers = len(d.Parts)
	}

	parts := make([]index.PartitionIndexes, len(d.Parts))
	jobs := make(chan int, len(d.Parts))
	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p, err := loadOnePartition(d, i, partLens[i])
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
				parts[i] = p
			}
		}()
	}
	for i := range d.Parts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errChan:
		return nil, err
	default:
	}
	return parts, nil
}

func loadOnePartition(d *Dir, i int, partLen int64) (index.PartitionIndexes, error) {
	var p index.PartitionIndexes
	p.Length = partLen

	bf, err := os.Open(d.BinnedIndexPath(i))
	if err != nil {
		return p, fmt.Errorf("failed to open partition %d binned index: %w", i, err)
	}
	p.Binned, err = index.ReadBAI(bf)
	bf.Close()
	if err != nil {
		return p, fmt.Errorf("failed to decode partition %d binned index: %w", i, err)
	}

	uf, err := os.Open(d.UniformIndexPath(i))
	if err != nil {
		return p, fmt.Errorf("failed to open partition %d uniform index: %w", i, err)
	}
	p.Uniform, err = index.ReadSBI(uf)
	uf.Close()
	if err != nil {
		return p, fmt.Errorf("failed to decode partition %d uniform index: %w", i, err)
	}
	return p, nil
}

// concatenate copies header, partitions and terminator, in order, into a
// single file at outPath.
func concatenate(d *Dir, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	paths := make([]string, 0, len(d.Parts)+2)
	paths = append(paths, d.HeaderPath())
	for i := range d.Parts {
		paths = append(paths, d.PartPath(i))
	}
	paths = append(paths, d.TerminatorPath())

	for _, p := range paths {
		src, err := os.Open(p)
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		_, err = io.Copy(out, src)
		src.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to copy %s: %w", p, err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outPath, err)
	}
	return nil
}
