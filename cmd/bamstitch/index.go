package main

import (
	"github.com/scttfrdmn/bamstitch-go/pkg/partbam"
	"github.com/spf13/cobra"
)

var indexGranularity int64

var indexCmd = &cobra.Command{
	Use:   "index <input.bam>",
	Short: "Index a BAM file directly",
	Long: `Index a coordinate-sorted BAM file in a single pass, writing
input.bam.bai and input.bam.sbi.

Example:
  bamstitch index sample.bam`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return partbam.IndexBAM(args[0], indexGranularity)
	},
}

func init() {
	indexCmd.Flags().Int64Var(&indexGranularity, "granularity", 1,
		"Record SBI offsets for every Nth record")
}
