package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// The container layout is a sequence of independently decompressible
// deflate blocks, each wrapped in a gzip member whose extra field records
// the member's total compressed size, so a stream can be walked and
// concatenated without decompressing it. A fixed empty block terminates a
// final file; it is appended exactly once per file, never per partition.

const (
	// maxBlockData is the decompressed payload ceiling per block. It keeps
	// the in-block offset representable in 16 bits with room for the
	// compressed framing.
	maxBlockData = 0xff00

	blockHeaderLen  = 18
	blockTrailerLen = 8
)

// EOFBlock is the fixed empty block that terminates a final file. Readers
// detect it by its zero decompressed payload length.
var EOFBlock = [28]byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// BlockWriter writes a block-compressed stream, cutting a new block
// whenever the pending payload reaches maxBlockData. It tracks the virtual
// offset of the next byte to be written, which callers sample to delimit
// record chunks. The end-of-stream terminator is the caller's concern.
type BlockWriter struct {
	w    io.Writer
	buf  []byte
	addr int64
	err  error
}

// NewBlockWriter returns a BlockWriter emitting compressed blocks to w.
func NewBlockWriter(w io.Writer) *BlockWriter {
	return &BlockWriter{w: w, buf: make([]byte, 0, maxBlockData)}
}

// Offset returns the virtual offset of the next byte to be written. After
// a flush it names the first byte of the next, yet unwritten block.
func (bw *BlockWriter) Offset() VirtualOffset {
	return VirtualOffset(bw.addr)<<16 | VirtualOffset(uint16(len(bw.buf)))
}

// Written returns the number of compressed bytes emitted so far.
func (bw *BlockWriter) Written() int64 {
	return bw.addr
}

func (bw *BlockWriter) Write(p []byte) (int, error) {
	if bw.err != nil {
		return 0, bw.err
	}
	var n int
	for len(p) > 0 {
		room := maxBlockData - len(bw.buf)
		if room == 0 {
			if err := bw.Flush(); err != nil {
				return n, err
			}
			room = maxBlockData
		}
		if room > len(p) {
			room = len(p)
		}
		bw.buf = append(bw.buf, p[:room]...)
		p = p[room:]
		n += room
	}
	if len(bw.buf) == maxBlockData {
		if err := bw.Flush(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Flush compresses and emits the pending block, if any.
func (bw *BlockWriter) Flush() error {
	if bw.err != nil {
		return bw.err
	}
	if len(bw.buf) == 0 {
		return nil
	}
	block, err := compressBlock(bw.buf)
	if err != nil {
		bw.err = err
		return err
	}
	if _, err := bw.w.Write(block); err != nil {
		bw.err = fmt.Errorf("failed to write block: %w", err)
		return bw.err
	}
	bw.addr += int64(len(block))
	bw.buf = bw.buf[:0]
	return nil
}

// Close flushes the pending block. It does not write the end-of-stream
// terminator.
func (bw *BlockWriter) Close() error {
	return bw.Flush()
}

// compressBlock wraps one decompressed payload in a complete compressed
// block: gzip member header with the BC extra subfield holding the total
// block size, deflate body, crc32 and length trailer.
func compressBlock(data []byte) ([]byte, error) {
	var body bytes.Buffer
	fw, err := flate.NewWriter(&body, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}

	size := blockHeaderLen + body.Len() + blockTrailerLen
	if size > 1<<16 {
		return nil, fmt.Errorf("compressed block size %d exceeds 16-bit limit", size)
	}
	block := make([]byte, 0, size)
	block = append(block,
		0x1f, 0x8b, 8, 4, // gzip, deflate, extra field present
		0, 0, 0, 0, // mtime
		0, 0xff, // no flags, unknown OS
		6, 0, // xlen
		'B', 'C', 2, 0,
	)
	block = binary.LittleEndian.AppendUint16(block, uint16(size-1))
	block = append(block, body.Bytes()...)
	block = binary.LittleEndian.AppendUint32(block, crc32.ChecksumIEEE(data))
	block = binary.LittleEndian.AppendUint32(block, uint32(len(data)))
	return block, nil
}

// readRawBlock reads one complete compressed block into raw, reusing its
// capacity. A clean io.EOF at a block boundary marks the end of the
// stream.
func readRawBlock(r io.Reader, raw []byte) ([]byte, error) {
	raw = raw[:0]
	var fixed [12]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read block header: %w", err)
	}
	if fixed[0] != 0x1f || fixed[1] != 0x8b || fixed[2] != 8 || fixed[3]&4 == 0 {
		return nil, fmt.Errorf("malformed block header % x", fixed[:4])
	}
	raw = append(raw, fixed[:]...)

	xlen := int(binary.LittleEndian.Uint16(fixed[10:12]))
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(r, extra); err != nil {
		return nil, fmt.Errorf("failed to read extra field: %w", err)
	}
	raw = append(raw, extra...)

	size := 0
	for len(extra) >= 4 {
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if extra[0] == 'B' && extra[1] == 'C' && slen == 2 && len(extra) >= 6 {
			size = int(binary.LittleEndian.Uint16(extra[4:6])) + 1
			break
		}
		if len(extra) < 4+slen {
			break
		}
		extra = extra[4+slen:]
	}
	if size < 12+xlen+blockTrailerLen {
		return nil, fmt.Errorf("missing or invalid block size subfield")
	}

	rest := size - 12 - xlen
	if cap(raw)-len(raw) < rest {
		grown := make([]byte, len(raw), size)
		copy(grown, raw)
		raw = grown
	}
	raw = raw[:size]
	if _, err := io.ReadFull(r, raw[12+xlen:]); err != nil {
		return nil, fmt.Errorf("failed to read block body: %w", err)
	}
	return raw, nil
}

// blockPayloadLen returns the decompressed payload length recorded in the
// block trailer. Zero identifies an empty block.
func blockPayloadLen(raw []byte) int {
	return int(binary.LittleEndian.Uint32(raw[len(raw)-4:]))
}

// BlockReader decompresses a block-compressed stream, tracking the virtual
// offset of the next byte to be read with the same convention as
// BlockWriter: once a block is fully consumed the offset names the first
// byte of the following block. An empty block ends the stream.
type BlockReader struct {
	r    io.Reader
	raw  []byte
	data []byte
	pos  int
	addr int64
	next int64
	err  error
}

// NewBlockReader returns a BlockReader decompressing from r.
func NewBlockReader(r io.Reader) *BlockReader {
	return &BlockReader{r: r}
}

// Offset returns the virtual offset of the next byte to be read.
func (br *BlockReader) Offset() VirtualOffset {
	return VirtualOffset(br.addr)<<16 | VirtualOffset(uint16(br.pos))
}

func (br *BlockReader) Read(p []byte) (int, error) {
	var n int
	for len(p) > 0 {
		if br.pos == len(br.data) {
			if err := br.loadBlock(); err != nil {
				if n > 0 && err == io.EOF {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(p, br.data[br.pos:])
		br.pos += c
		p = p[c:]
		n += c
		if br.pos == len(br.data) {
			br.addr = br.next
			br.data = br.data[:0]
			br.pos = 0
		}
	}
	return n, nil
}

func (br *BlockReader) loadBlock() error {
	if br.err != nil {
		return br.err
	}
	raw, err := readRawBlock(br.r, br.raw)
	if err != nil {
		br.err = err
		return err
	}
	br.raw = raw
	if blockPayloadLen(raw) == 0 {
		br.err = io.EOF
		return io.EOF
	}

	body := raw[len(raw)-blockTrailerLen:]
	wantSum := binary.LittleEndian.Uint32(body[:4])
	fr := flate.NewReader(bytes.NewReader(raw[blockHeaderLen : len(raw)-blockTrailerLen]))
	data, err := io.ReadAll(fr)
	if err != nil {
		br.err = fmt.Errorf("failed to decompress block at %d: %w", br.addr, err)
		return br.err
	}
	if sum := crc32.ChecksumIEEE(data); sum != wantSum {
		br.err = fmt.Errorf("block at %d: crc mismatch", br.addr)
		return br.err
	}
	br.data = data
	br.pos = 0
	br.next = br.addr + int64(len(raw))
	return nil
}

// StreamInfo summarises a walked block-compressed stream.
type StreamInfo struct {
	// Length is the total compressed byte length of the stream.
	Length int64

	// Blocks counts the stream's blocks, a terminator included.
	Blocks int

	// Terminated reports whether the stream ends with an empty
	// end-of-stream block.
	Terminated bool
}

// Scan walks the blocks of a compressed stream without decompressing them.
// Partition byte lengths and terminator validation both come from here.
func Scan(r io.Reader) (StreamInfo, error) {
	var (
		info StreamInfo
		raw  []byte
	)
	for {
		block, err := readRawBlock(r, raw)
		if err == io.EOF {
			return info, nil
		}
		if err != nil {
			return info, fmt.Errorf("block at %d: %w", info.Length, err)
		}
		raw = block
		info.Length += int64(len(block))
		info.Blocks++
		info.Terminated = blockPayloadLen(block) == 0
	}
}
