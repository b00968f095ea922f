package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gpuasm/internal/index"
	"gpuasm/internal/isa/snapshot"
)

var inspectData string

var inspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Look up one instruction or special register",
	Long: `Print a single entry from the instruction database.

The name is resolved the way the language server resolves hover
targets: special registers first, case-insensitively and through
compressed ranges, then instructions with encoding suffixes such as
_e64 or _dpp stripped.

Examples:
  gpuasm inspect v_add_f32
  gpuasm inspect v_add_f32_e64
  gpuasm inspect ttmp5`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectData, "data", "", "Path to the instruction database snapshot")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := snapshot.Load(resolveDataPath(cfg, inspectData))
	if err != nil {
		return err
	}
	idx := index.New(snap)

	name := args[0]
	if desc, ok := idx.SpecialRegisterByName(name); ok {
		fmt.Printf("%s (special register)\n", strings.ToLower(name))
		fmt.Printf("  %s\n", desc)
		return nil
	}

	base, variant := index.SplitVariant(name)
	ins, ok := idx.ByExactName(base)
	if !ok {
		return fmt.Errorf("no instruction or special register named %q", name)
	}

	fmt.Printf("%s (instruction)\n", strings.ToLower(ins.Name))
	if base != name {
		fmt.Printf("  spelling of:    %s\n", strings.ToLower(base))
	}
	fmt.Printf("  architectures:  %s\n", strings.Join(ins.Architectures, ", "))
	if len(ins.Args) > 0 {
		operands := make([]string, 0, len(ins.Args))
		for i, arg := range ins.Args {
			operands = append(operands, fmt.Sprintf("%s (%s, %s)", arg, ins.ArgTypes[i], ins.ArgDataTypes[i]))
		}
		fmt.Printf("  operands:       %s\n", strings.Join(operands, ", "))
	}
	if len(ins.AvailableEncodings) > 0 {
		fmt.Printf("  encodings:      %s\n", strings.Join(ins.AvailableEncodings, ", "))
	}
	if variant != index.VariantNative {
		if enc, ok := index.MatchEncoding(ins.AvailableEncodings, variant); ok {
			line := enc
			if d, ok := index.EncodingDescription(enc); ok {
				line = d
			}
			fmt.Printf("  selected:       %s\n", line)
		}
	}
	if ins.Description != "" {
		fmt.Printf("\n%s\n", ins.Description)
	}

	return nil
}
