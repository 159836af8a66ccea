package index

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload(n int) []byte {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, n)
	rng.Read(data)
	return data
}

func TestBlockRoundTrip(t *testing.T) {
	data := testPayload(3*maxBlockData + 1000)

	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	n, err := bw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, bw.Close())
	assert.Equal(t, int64(buf.Len()), bw.Written())

	got, err := io.ReadAll(NewBlockReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

// The emitted stream must be readable by an independent BGZF decoder.
func TestBlockWriterBGZFCompatible(t *testing.T) {
	data := testPayload(2*maxBlockData + 57)

	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	_, err := bw.Write(data)
	require.NoError(t, err)
	require.NoError(t, bw.Close())
	buf.Write(EOFBlock[:])

	r, err := bgzf.NewReader(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBlockWriterOffsetConvention(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)

	v := bw.Offset()
	assert.Equal(t, int64(0), v.BlockAddress())
	assert.Equal(t, uint16(0), v.InBlock())

	_, err := bw.Write(make([]byte, 10))
	require.NoError(t, err)
	assert.Equal(t, uint16(10), bw.Offset().InBlock())

	// Filling the block exactly flushes it: the offset names the first
	// byte of the next, unwritten block.
	_, err = bw.Write(make([]byte, maxBlockData-10))
	require.NoError(t, err)
	assert.Equal(t, bw.Written(), bw.Offset().BlockAddress())
	assert.Equal(t, uint16(0), bw.Offset().InBlock())
	assert.Positive(t, bw.Written())
}

// Reading back a stream must observe the same virtual offsets the writer
// reported at the same decompressed positions, including at block
// boundaries.
func TestReaderWriterOffsetAgreement(t *testing.T) {
	sizes := []int{100, maxBlockData - 100, 38, maxBlockData, 17}

	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	var writeOffsets []VirtualOffset
	for _, n := range sizes {
		writeOffsets = append(writeOffsets, bw.Offset())
		_, err := bw.Write(testPayload(n))
		require.NoError(t, err)
	}
	require.NoError(t, bw.Close())

	br := NewBlockReader(bytes.NewReader(buf.Bytes()))
	for i, n := range sizes {
		assert.Equal(t, writeOffsets[i], br.Offset(), "record %d", i)
		_, err := io.ReadFull(br, make([]byte, n))
		require.NoError(t, err)
	}
}

// The terminator constant must be exactly the empty block other BGZF
// implementations write and detect.
func TestEOFBlock(t *testing.T) {
	ok, err := bgzf.HasEOF(bytes.NewReader(EOFBlock[:]))
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := readRawBlock(bytes.NewReader(EOFBlock[:]), nil)
	require.NoError(t, err)
	assert.Len(t, raw, len(EOFBlock))
	assert.Equal(t, 0, blockPayloadLen(raw))
}

func TestBlockReaderStopsAtTerminator(t *testing.T) {
	data := testPayload(500)
	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	_, err := bw.Write(data)
	require.NoError(t, err)
	require.NoError(t, bw.Close())
	buf.Write(EOFBlock[:])

	br := NewBlockReader(bytes.NewReader(buf.Bytes()))
	got, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBlockReaderDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	_, err := bw.Write(testPayload(500))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	raw := buf.Bytes()
	raw[blockHeaderLen+3] ^= 0xff
	_, err = io.ReadAll(NewBlockReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBlockWriter(&buf)
	_, err := bw.Write(testPayload(maxBlockData + 5))
	require.NoError(t, err)
	require.NoError(t, bw.Close())
	partLen := int64(buf.Len())

	info, err := Scan(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, partLen, info.Length)
	assert.Equal(t, 2, info.Blocks)
	assert.False(t, info.Terminated)

	buf.Write(EOFBlock[:])
	info, err = Scan(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, partLen+int64(len(EOFBlock)), info.Length)
	assert.Equal(t, 3, info.Blocks)
	assert.True(t, info.Terminated)
}

func TestScanEmptyStream(t *testing.T) {
	info, err := Scan(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{}, info)
}
