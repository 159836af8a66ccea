package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/scttfrdmn/bamstitch-go/pkg/index"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <index-file>",
	Short: "Print a human-readable dump of a BAI or SBI index",
	Long: `Print the contents of a BAI or SBI index file in text form, for
debugging and for diffing two indexes. The format is chosen by the file
extension.

Examples:
  bamstitch inspect sample.bam.bai
  bamstitch inspect sample.bam.sbi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer f.Close()

		switch {
		case strings.HasSuffix(args[0], ".bai"):
			ix, err := index.ReadBAI(f)
			if err != nil {
				return fmt.Errorf("failed to decode BAI: %w", err)
			}
			dumpBAI(ix)
		case strings.HasSuffix(args[0], ".sbi"):
			ix, err := index.ReadSBI(f)
			if err != nil {
				return fmt.Errorf("failed to decode SBI: %w", err)
			}
			dumpSBI(ix)
		default:
			return fmt.Errorf("unrecognized index extension: %s", args[0])
		}
		return nil
	},
}

func dumpBAI(ix *index.BinnedIndex) {
	fmt.Printf("n_ref: %d\n", len(ix.References))
	for rid := range ix.References {
		ref := &ix.References[rid]
		ids := make([]uint32, 0, len(ref.Bins))
		for id := range ref.Bins {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		fmt.Printf("reference %d: %d bins, %d linear windows\n", rid, len(ref.Bins), len(ref.Linear))
		for _, id := range ids {
			fmt.Printf("  bin %d:", id)
			for _, c := range ref.Bins[id] {
				fmt.Printf(" %s-%s", c.Start, c.End)
			}
			fmt.Println()
		}
		for w, v := range ref.Linear {
			if v != 0 {
				fmt.Printf("  window %d: %s\n", w, v)
			}
		}
		if s := ref.Stats; s != nil {
			fmt.Printf("  stats: first %s last %s mapped %d unmapped %d\n",
				s.First, s.Last, s.Mapped, s.Unmapped)
		}
	}
	fmt.Printf("n_no_coor: %d\n", ix.Unplaced)
}

func dumpSBI(ix *index.UniformIndex) {
	fmt.Printf("file length: %d\n", ix.FileLength)
	fmt.Printf("total records: %d\n", ix.TotalRecords)
	fmt.Printf("granularity: %d\n", ix.Granularity)
	fmt.Printf("offsets: %d\n", len(ix.Offsets))
	for _, v := range ix.Offsets {
		fmt.Printf("  %s\n", v)
	}
}
