package partbam

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartFileNames(t *testing.T) {
	assert.Equal(t, "part-00000", PartFileName(0))
	assert.Equal(t, "part-00042", PartFileName(42))
	assert.Equal(t, ".part-00003.bai", BinnedIndexFileName(3))
	assert.Equal(t, ".part-00003.sbi", UniformIndexFileName(3))
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, HeaderFileName, TerminatorFileName,
		"part-00000", "part-00001",
		".part-00000.bai", ".part-00000.sbi",
		".part-00001.bai", ".part-00001.sbi")

	d, err := OpenDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"part-00000", "part-00001"}, d.Parts)
	assert.Equal(t, filepath.Join(dir, "part-00001"), d.PartPath(1))
	assert.Equal(t, filepath.Join(dir, ".part-00001.bai"), d.BinnedIndexPath(1))
	assert.Equal(t, filepath.Join(dir, ".part-00001.sbi"), d.UniformIndexPath(1))
}

func TestOpenDirMissingPieces(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, TerminatorFileName, "part-00000")
	_, err := OpenDir(dir)
	assert.ErrorContains(t, err, HeaderFileName)

	dir = t.TempDir()
	touch(t, dir, HeaderFileName, "part-00000")
	_, err = OpenDir(dir)
	assert.ErrorContains(t, err, TerminatorFileName)

	dir = t.TempDir()
	touch(t, dir, HeaderFileName, TerminatorFileName)
	_, err = OpenDir(dir)
	assert.ErrorContains(t, err, "no partition files")
}

func TestOpenDirBrokenSequence(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, HeaderFileName, TerminatorFileName, "part-00000", "part-00002")
	_, err := OpenDir(dir)
	assert.ErrorContains(t, err, "part-00002")
}
