package main

import (
	"github.com/scttfrdmn/bamstitch-go/pkg/partbam"
	"github.com/spf13/cobra"
)

var (
	recordsPerPart int64
	sbiGranularity int64
)

var splitCmd = &cobra.Command{
	Use:   "split <input.bam> <output-dir>",
	Short: "Split a BAM file into a partitioned BAM directory",
	Long: `Split a coordinate-sorted BAM file into a partitioned BAM directory.

The directory holds the shared header, the record partitions
(part-00000, part-00001, ...) and a terminator. Each partition is a
self-contained BGZF stream and gets hidden .part-NNNNN.bai and
.part-NNNNN.sbi index companions, built while the partition is written.

Examples:
  # Split with defaults (10000 records per partition)
  bamstitch split sample.bam sample.parts

  # Smaller partitions, SBI entry for every record
  bamstitch split sample.bam sample.parts --records-per-part 2500 --granularity 1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return partbam.SplitBAM(args[0], args[1], recordsPerPart, sbiGranularity)
	},
}

func init() {
	splitCmd.Flags().Int64Var(&recordsPerPart, "records-per-part", 10000,
		"Number of records per partition")
	splitCmd.Flags().Int64Var(&sbiGranularity, "granularity", 1,
		"Record SBI offsets for every Nth record")
}
