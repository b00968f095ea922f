package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gpuasm/internal/isa/build"
	"gpuasm/internal/isa/snapshot"
)

var validateCmd = &cobra.Command{
	Use:   "validate <snapshot>",
	Short: "Validate an instruction database snapshot",
	Long: `Load a snapshot, check its schema and invariants, and report summary
statistics.

Exits nonzero when the file is missing, malformed, or violates a
database invariant such as misaligned operand lists or undersized
register ranges.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	stats := snap.Stats()
	fmt.Printf("%s: OK\n", args[0])
	fmt.Printf("  instructions:      %d\n", stats.Instructions)
	fmt.Printf("  architectures:     %s\n", strings.Join(snap.ArchitectureTags(), ", "))
	fmt.Printf("  register singles:  %d\n", stats.Singles)
	fmt.Printf("  register ranges:   %d\n", stats.Ranges)

	report, err := build.LoadReport(args[0])
	if err != nil || report == nil {
		return nil
	}
	fmt.Printf("  built:             %s by gpuasm %s (run %s)\n", report.Age(), report.ToolVersion, report.RunID)
	if report.Checksum != "" {
		sum, err := build.SnapshotChecksum(snap)
		if err == nil && sum != report.Checksum {
			return fmt.Errorf("snapshot content does not match its build report (got %s, report says %s)", sum, report.Checksum)
		}
		fmt.Printf("  checksum:          OK\n")
	}
	if stale := report.StaleSources(); len(stale) > 0 {
		fmt.Printf("  note: %d source document(s) changed since this build\n", len(stale))
	}

	return nil
}
