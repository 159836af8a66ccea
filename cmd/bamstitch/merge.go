package main

import (
	"github.com/scttfrdmn/bamstitch-go/pkg/partbam"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <input-dir> <output.bam>",
	Short: "Merge a partitioned BAM directory into a BAM file with indexes",
	Long: `Merge a partitioned BAM directory into a single BAM file.

The record partitions are concatenated byte-for-byte; the hidden
per-partition indexes are merged into output.bam.bai and output.bam.sbi,
producing the same bytes as indexing the merged file directly but without
re-reading any alignment data.

Example:
  bamstitch merge sample.parts sample.bam`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return partbam.Merge(args[0], args[1])
	},
}
