package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformMergeTranslation(t *testing.T) {
	part0 := &UniformIndex{
		FileLength:   500,
		TotalRecords: 2,
		Granularity:  1,
		Offsets:      []VirtualOffset{voffset(t, 0, 0), voffset(t, 0, 38), voffset(t, 500, 0)},
	}
	part1 := &UniformIndex{
		FileLength:   700,
		TotalRecords: 1,
		Granularity:  1,
		Offsets:      []VirtualOffset{voffset(t, 0, 0), voffset(t, 700, 0)},
	}

	m := NewUniformIndexMerger(100)
	require.NoError(t, m.Add(part0, 500))
	require.NoError(t, m.Add(part1, 700))
	merged, err := m.Finish(1328)
	require.NoError(t, err)

	// Each partition's terminal end-of-data entry is dropped; the final
	// end-of-data entry is appended once.
	assert.Equal(t, []VirtualOffset{
		voffset(t, 100, 0),
		voffset(t, 100, 38),
		voffset(t, 600, 0),
		voffset(t, 1328, 0),
	}, merged.Offsets)
	assert.Equal(t, int64(3), merged.TotalRecords)
	assert.Equal(t, int64(1328), merged.FileLength)
}

func TestUniformMergeGranularityMismatch(t *testing.T) {
	m := NewUniformIndexMerger(0)
	require.NoError(t, m.Add(&UniformIndex{Granularity: 2, Offsets: []VirtualOffset{voffset(t, 100, 0)}}, 100))

	err := m.Add(&UniformIndex{Granularity: 4, Offsets: []VirtualOffset{voffset(t, 100, 0)}}, 100)
	var sm *StructuralMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, 1, sm.Partition)
}

func TestUniformMergeOrderingViolation(t *testing.T) {
	m := NewUniformIndexMerger(0)
	err := m.Add(&UniformIndex{
		Granularity: 1,
		Offsets:     []VirtualOffset{voffset(t, 10, 0), voffset(t, 10, 0), voffset(t, 20, 0)},
	}, 100)
	var ov *OrderingViolationError
	require.ErrorAs(t, err, &ov)
	assert.Equal(t, 0, ov.Partition)
}

func TestUniformMergeIdentity(t *testing.T) {
	build := func() *UniformIndex {
		return &UniformIndex{
			FileLength:   900,
			TotalRecords: 3,
			Granularity:  1,
			Offsets: []VirtualOffset{
				voffset(t, 0, 0), voffset(t, 0, 38), voffset(t, 0, 76), voffset(t, 900, 0),
			},
		}
	}

	m := NewUniformIndexMerger(0)
	require.NoError(t, m.Add(build(), 900))
	merged, err := m.Finish(900)
	require.NoError(t, err)

	var want, got bytes.Buffer
	require.NoError(t, WriteSBI(&want, build()))
	require.NoError(t, WriteSBI(&got, merged))
	assert.Equal(t, want.Bytes(), got.Bytes())
}

func TestUniformMergeCountConservation(t *testing.T) {
	m := NewUniformIndexMerger(50)
	var sum int64
	for i, n := range []int64{5, 0, 12} {
		ix := &UniformIndex{Granularity: 3, TotalRecords: n, Offsets: []VirtualOffset{voffset(t, int64(100*(i+1)), 0)}}
		require.NoError(t, m.Add(ix, 1000))
		sum += n
	}
	merged, err := m.Finish(3078)
	require.NoError(t, err)
	assert.Equal(t, sum, merged.TotalRecords)
}
