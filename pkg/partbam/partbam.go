package partbam

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File names inside a partitioned BAM directory. The header and terminator
// are BGZF streams written once; parts hold the records. Index companions
// are hidden so that naive directory concatenation tools skip them.
const (
	HeaderFileName     = "header"
	TerminatorFileName = "terminator"
	partPrefix         = "part-"
)

// PartFileName returns the file name of partition n.
func PartFileName(n int) string {
	return fmt.Sprintf("%s%05d", partPrefix, n)
}

// BinnedIndexFileName returns the hidden binned index companion of
// partition n.
func BinnedIndexFileName(n int) string {
	return "." + PartFileName(n) + ".bai"
}

// UniformIndexFileName returns the hidden uniform index companion of
// partition n.
func UniformIndexFileName(n int) string {
	return "." + PartFileName(n) + ".sbi"
}

// Dir describes a partitioned BAM directory on disk.
type Dir struct {
	Path  string
	Parts []string // partition file names, in partition order
}

// OpenDir validates path as a partitioned BAM directory and discovers its
// partitions.
func OpenDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition directory: %w", err)
	}

	var (
		parts                 []string
		hasHeader, hasTrailer bool
	)
	for _, e := range entries {
		name := e.Name()
		switch {
		case name == HeaderFileName:
			hasHeader = true
		case name == TerminatorFileName:
			hasTrailer = true
		case strings.HasPrefix(name, partPrefix):
			parts = append(parts, name)
		}
	}
	if !hasHeader {
		return nil, fmt.Errorf("%s: missing %s file", path, HeaderFileName)
	}
	if !hasTrailer {
		return nil, fmt.Errorf("%s: missing %s file", path, TerminatorFileName)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%s: no partition files", path)
	}
	sort.Strings(parts)
	for i, name := range parts {
		if name != PartFileName(i) {
			return nil, fmt.Errorf("%s: partition sequence broken at %s, want %s", path, name, PartFileName(i))
		}
	}
	return &Dir{Path: path, Parts: parts}, nil
}

// HeaderPath returns the path of the shared header stream.
func (d *Dir) HeaderPath() string {
	return filepath.Join(d.Path, HeaderFileName)
}

// TerminatorPath returns the path of the terminator stream.
func (d *Dir) TerminatorPath() string {
	return filepath.Join(d.Path, TerminatorFileName)
}

// PartPath returns the path of partition n.
func (d *Dir) PartPath(n int) string {
	return filepath.Join(d.Path, d.Parts[n])
}

// BinnedIndexPath returns the path of partition n's binned index.
func (d *Dir) BinnedIndexPath(n int) string {
	return filepath.Join(d.Path, BinnedIndexFileName(n))
}

// UniformIndexPath returns the path of partition n's uniform index.
func (d *Dir) UniformIndexPath(n int) string {
	return filepath.Join(d.Path, UniformIndexFileName(n))
}
