package partbam

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"

	"github.com/scttfrdmn/bamstitch-go/pkg/index"
)

// Reference-consuming CIGAR operations: M, D, N, = and X advance the
// position on the reference sequence.
const refConsuming = 1<<0 | 1<<2 | 1<<3 | 1<<7 | 1<<8

const (
	flagUnmapped = 0x4
	minRecordLen = 32 // fixed-length record fields before the read name
)

// parseRecordMeta extracts the placement of one encoded record from its
// fixed-length fields and CIGAR, without decoding the rest.
func parseRecordMeta(payload []byte) (index.RecordMeta, error) {
	if len(payload) < minRecordLen {
		return index.RecordMeta{}, fmt.Errorf("record payload too short: %d bytes", len(payload))
	}
	le := binary.LittleEndian
	meta := index.RecordMeta{
		RefID:    int(int32(le.Uint32(payload[0:4]))),
		Start:    int(int32(le.Uint32(payload[4:8]))),
		Unmapped: le.Uint16(payload[14:16])&flagUnmapped != 0,
	}
	meta.End = meta.Start + 1

	if meta.RefID < 0 || meta.Unmapped {
		return meta, nil
	}
	readNameLen := int(payload[8])
	cigarOps := int(le.Uint16(payload[12:14]))
	cigarOff := minRecordLen + readNameLen
	if cigarEnd := cigarOff + 4*cigarOps; cigarEnd > len(payload) {
		return index.RecordMeta{}, fmt.Errorf("record CIGAR overruns payload: %d > %d", cigarEnd, len(payload))
	}
	span := 0
	for i := 0; i < cigarOps; i++ {
		v := le.Uint32(payload[cigarOff+4*i:])
		if refConsuming&(1<<(v&0xf)) != 0 {
			span += int(v >> 4)
		}
	}
	if span > 0 {
		meta.End = meta.Start + span
	}
	return meta, nil
}

// SplitBAM splits the BAM file at srcPath into a partitioned BAM directory
// at dstPath, indexing each partition as it is written.
func SplitBAM(srcPath, dstPath string, recordsPerPart, granularity int64) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open input BAM: %w", err)
	}
	defer f.Close()

	br, err := bgzf.NewReader(f, 0)
	if err != nil {
		return fmt.Errorf("failed to open BGZF stream: %w", err)
	}
	defer br.Close()

	header, err := ReadRawHeader(br)
	if err != nil {
		return fmt.Errorf("failed to read BAM header: %w", err)
	}

	w, err := NewWriter(dstPath, header, recordsPerPart, granularity)
	if err != nil {
		return err
	}

	var (
		lenPrefix [4]byte
		payload   []byte
		count     int64
	)
	for {
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
		if err := w.Append(meta, payload); err != nil {
			return fmt.Errorf("record %d: %w", count, err)
		}
		count++
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Split %d records into %d partitions\n", count, w.part+1)
	return nil
}
