package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bamstitch",
	Short: "Partitioned BAM splitting, merging and indexing tools",
	Long: `bamstitch works with partitioned BAM directories: a BAM file stored as
a shared header, independently written record partitions and a terminator,
each partition carrying its own hidden BAI and SBI index.

Concatenating the non-hidden files yields a complete BAM file; bamstitch
merges the hidden per-partition indexes into the BAI and SBI of that file
without re-reading the alignment data.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bamstitch version 0.1.0")
		fmt.Println("Partitioned BAM index merging toolkit")
	},
}
