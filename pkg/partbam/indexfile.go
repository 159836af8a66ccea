package partbam

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/scttfrdmn/bamstitch-go/pkg/index"
)

// IndexBAM indexes the BAM file at bamPath in a single pass, writing its
// binned index to bamPath+".bai" and its uniform index to bamPath+".sbi".
// The offsets it records are identical to those a partitioned writer would
// have produced for the same record stream.
func IndexBAM(bamPath string, granularity int64) error {
	f, err := os.Open(bamPath)
	if err != nil {
		return fmt.Errorf("failed to open BAM: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat BAM: %w", err)
	}

	br := index.NewBlockReader(f)
	header, err := ReadRawHeader(br)
	if err != nil {
		return fmt.Errorf("failed to read BAM header: %w", err)
	}

	ix := index.NewIndexer(len(header.Refs), granularity)
	var (
		lenPrefix [4]byte
		payload   []byte
		count     int64
	)
	for {
		start := br.Offset()
		if _, err := io.ReadFull(br, lenPrefix[:]); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read record length: %w", err)
		}
		n := binary.LittleEndian.Uint32(lenPrefix[:])
		if cap(payload) < int(n) {
			payload = make([]byte, n)
		}
		payload = payload[:n]
		if _, err := io.ReadFull(br, payload); err != nil {
			return fmt.Errorf("failed to read record %d: %w", count, err)
		}
		meta, err := parseRecordMeta(payload)
		if err != nil {
			return fmt.Errorf("record %d: %w", count, err)
		}
		if err := ix.Add(meta, index.Chunk{Start: start, End: br.Offset()}); err != nil {
			return fmt.Errorf("record %d: %w", count, err)
		}
		count++
	}

	binned, uniform, err := ix.Finish(fi.Size())
	if err != nil {
		return err
	}
	if err := writeFileWith(bamPath+".bai", func(f *os.File) error {
		return index.WriteBAI(f, binned)
	}); err != nil {
		return err
	}
	if err := writeFileWith(bamPath+".sbi", func(f *os.File) error {
		return index.WriteSBI(f, uniform)
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Indexed %d records in %s\n", count, bamPath)
	return nil
}
