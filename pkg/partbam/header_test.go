package partbam

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeHeaderBytes builds the decompressed encoding of a BAM header with
// the given text and reference dictionary.
func encodeHeaderBytes(text string, refs []Reference) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.Write(bamMagic[:])
	binary.Write(&buf, le, int32(len(text)))
	buf.WriteString(text)
	binary.Write(&buf, le, int32(len(refs)))
	for _, r := range refs {
		binary.Write(&buf, le, int32(len(r.Name)+1))
		buf.WriteString(r.Name)
		buf.WriteByte(0)
		binary.Write(&buf, le, r.Length)
	}
	return buf.Bytes()
}

func TestReadRawHeader(t *testing.T) {
	refs := []Reference{
		{Name: "chr1", Length: 248956422},
		{Name: "chr2", Length: 242193529},
	}
	encoded := encodeHeaderBytes("@HD\tVN:1.6\tSO:coordinate\n", refs)

	// Trailing record bytes must be left unread.
	sentinel := []byte{1, 2, 3, 4}
	r := bytes.NewReader(append(append([]byte{}, encoded...), sentinel...))

	header, err := ReadRawHeader(r)
	require.NoError(t, err)
	assert.Equal(t, encoded, header.Bytes)
	assert.Equal(t, refs, header.Refs)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sentinel, rest)
}

func TestReadRawHeaderNoRefs(t *testing.T) {
	header, err := ReadRawHeader(bytes.NewReader(encodeHeaderBytes("", nil)))
	require.NoError(t, err)
	assert.Empty(t, header.Refs)
}

func TestReadRawHeaderBadMagic(t *testing.T) {
	_, err := ReadRawHeader(bytes.NewReader([]byte{'B', 'A', 'I', 1, 0, 0, 0, 0}))
	assert.Error(t, err)
}

func TestReadRawHeaderTruncated(t *testing.T) {
	encoded := encodeHeaderBytes("@HD\n", []Reference{{Name: "chr1", Length: 1000}})
	_, err := ReadRawHeader(bytes.NewReader(encoded[:len(encoded)-2]))
	assert.Error(t, err)
}
