package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBinnedIndex() *BinnedIndex {
	ix := NewBinnedIndex(2)
	ix.References[0].Bins[4681] = []Chunk{
		{Start: 100 << 16, End: 100<<16 | 50},
		{Start: 200 << 16, End: 300 << 16},
	}
	ix.References[0].Bins[585] = []Chunk{
		{Start: 100<<16 | 50, End: 200 << 16},
	}
	ix.References[0].Linear = []VirtualOffset{100 << 16, 100 << 16, 200 << 16}
	ix.References[0].Stats = &ReferenceStats{
		First:    100 << 16,
		Last:     300 << 16,
		Mapped:   40,
		Unmapped: 2,
	}
	ix.Unplaced = 7
	return ix
}

func TestBAIRoundTrip(t *testing.T) {
	ix := testBinnedIndex()
	var buf bytes.Buffer
	require.NoError(t, WriteBAI(&buf, ix))

	got, err := ReadBAI(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ix.References, got.References)
	assert.Equal(t, ix.Unplaced, got.Unplaced)
}

func TestBAIDeterministicOutput(t *testing.T) {
	ix := testBinnedIndex()
	var a, b bytes.Buffer
	require.NoError(t, WriteBAI(&a, ix))
	require.NoError(t, WriteBAI(&b, ix))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestBAIMissingTrailingUnplacedCount(t *testing.T) {
	ix := testBinnedIndex()
	var buf bytes.Buffer
	require.NoError(t, WriteBAI(&buf, ix))

	// The trailing no-reference count is optional in the layout.
	got, err := ReadBAI(bytes.NewReader(buf.Bytes()[:buf.Len()-8]))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Unplaced)
	assert.Equal(t, ix.References, got.References)
}

func TestBAIBadMagic(t *testing.T) {
	_, err := ReadBAI(bytes.NewReader([]byte{'B', 'A', 'M', 1, 0, 0, 0, 0}))
	assert.Error(t, err)
}

func TestSBIRoundTrip(t *testing.T) {
	ix := &UniformIndex{
		FileLength:   123456,
		TotalRecords: 10,
		Granularity:  2,
		Offsets:      []VirtualOffset{100 << 16, 200 << 16, 300<<16 | 17, 123456 << 16},
	}
	ix.MD5[0] = 0xab
	ix.UUID[15] = 0xcd

	var buf bytes.Buffer
	require.NoError(t, WriteSBI(&buf, ix))
	got, err := ReadSBI(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ix, got)
}

func TestSBIBadMagic(t *testing.T) {
	_, err := ReadSBI(bytes.NewReader([]byte{'B', 'A', 'I', 1}))
	assert.Error(t, err)
}
