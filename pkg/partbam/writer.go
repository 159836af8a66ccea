package partbam

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scttfrdmn/bamstitch-go/pkg/index"
)

// Writer writes a partitioned BAM directory. The shared header is written
// once on creation; records are appended one at a time and a new partition
// is started whenever the current one reaches recordsPerPart records. Each
// finished partition gets hidden binned and uniform index companions built
// while its records were written, so merging never re-reads the records.
type Writer struct {
	dir            *Dir
	header         *RawHeader
	recordsPerPart int64
	granularity    int64

	part      int
	inPart    int64
	file      *os.File
	blocks    *index.BlockWriter
	indexer   *index.Indexer
	lenPrefix [4]byte
}

// NewWriter creates a partitioned BAM directory at path and writes the
// shared header. The directory must not already exist.
func NewWriter(path string, header *RawHeader, recordsPerPart, granularity int64) (*Writer, error) {
	if recordsPerPart < 1 {
		return nil, fmt.Errorf("records per partition must be positive, got %d", recordsPerPart)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create partition directory: %w", err)
	}
	if err := writeStream(filepath.Join(path, HeaderFileName), header.Bytes); err != nil {
		return nil, err
	}
	w := &Writer{
		dir:            &Dir{Path: path},
		header:         header,
		recordsPerPart: recordsPerPart,
		granularity:    granularity,
		part:           -1,
	}
	return w, nil
}

// writeStream writes data as a single terminator-free BGZF stream at path.
func writeStream(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := index.NewBlockWriter(f)
	if _, err := bw.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := bw.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Append writes one encoded record payload, described by meta, to the
// current partition, rolling to a new partition first if the current one
// is full. The payload excludes the 4-byte length prefix, which Append
// writes itself.
func (w *Writer) Append(meta index.RecordMeta, payload []byte) error {
	if w.file == nil || w.inPart == w.recordsPerPart {
		if err := w.roll(); err != nil {
			return err
		}
	}
	start := w.blocks.Offset()
	binary.LittleEndian.PutUint32(w.lenPrefix[:], uint32(len(payload)))
	if _, err := w.blocks.Write(w.lenPrefix[:]); err != nil {
		return err
	}
	if _, err := w.blocks.Write(payload); err != nil {
		return err
	}
	w.inPart++
	return w.indexer.Add(meta, index.Chunk{Start: start, End: w.blocks.Offset()})
}

// roll finishes the current partition, if any, and starts the next one.
func (w *Writer) roll() error {
	if err := w.finishPart(); err != nil {
		return err
	}
	w.part++
	f, err := os.Create(filepath.Join(w.dir.Path, PartFileName(w.part)))
	if err != nil {
		return fmt.Errorf("failed to create partition %d: %w", w.part, err)
	}
	w.file = f
	w.blocks = index.NewBlockWriter(f)
	w.indexer = index.NewIndexer(len(w.header.Refs), w.granularity)
	w.inPart = 0
	return nil
}

// finishPart flushes the current partition and writes its index
// companions.
func (w *Writer) finishPart() error {
	if w.file == nil {
		return nil
	}
	if err := w.blocks.Close(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close partition %d: %w", w.part, err)
	}
	binned, uniform, err := w.indexer.Finish(w.blocks.Written())
	if err != nil {
		return err
	}
	if err := writeFileWith(filepath.Join(w.dir.Path, BinnedIndexFileName(w.part)), func(f *os.File) error {
		return index.WriteBAI(f, binned)
	}); err != nil {
		return err
	}
	if err := writeFileWith(filepath.Join(w.dir.Path, UniformIndexFileName(w.part)), func(f *os.File) error {
		return index.WriteSBI(f, uniform)
	}); err != nil {
		return err
	}
	w.file = nil
	return nil
}

// Close finishes the last partition and writes the terminator stream. A
// writer that saw no records still produces a valid, empty partition so
// the directory satisfies OpenDir.
func (w *Writer) Close() error {
	if w.file == nil {
		if err := w.roll(); err != nil {
			return err
		}
	}
	if err := w.finishPart(); err != nil {
		return err
	}
	path := w.dir.TerminatorPath()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(index.EOFBlock[:]); err != nil {
		f.Close()
		return fmt.Errorf("failed to write terminator: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeFileWith(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
