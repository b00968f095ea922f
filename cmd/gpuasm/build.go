package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gpuasm/internal/config"
	"gpuasm/internal/isa/build"
)

// defaultInputDir is scanned for vendor documents when no inputs are
// given, matching the layout of AMD's machine-readable ISA releases.
const defaultInputDir = "amd_gpu_xmls"

var (
	buildOutput   string
	buildMinify   bool
	buildSQLite   string
	buildManifest string
)

var buildCmd = &cobra.Command{
	Use:   "build [inputs...]",
	Short: "Build the instruction database from vendor documents",
	Long: `Build the canonical instruction database snapshot.

Inputs are vendor XML specification files, or directories to scan for
them. With no inputs the amd_gpu_xmls directory is used. Each document
is parsed leniently, architecture labels are normalized, instructions
with the same mnemonic are merged across architectures, and special
registers are compiled into compressed ranges.

The result is written as JSON; a .zst output suffix enables zstd
compression, and --sqlite additionally mirrors the database into a
queryable SQLite file. A manifest pins the input set and per-document
architecture overrides instead of positional inputs.

Examples:
  gpuasm build
  gpuasm build specs/rdna35.xml specs/rdna4.xml -o data/isa.json.zst
  gpuasm build --manifest isa-sources.toml --sqlite data/isa.db`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", config.DefaultDataPath,
		"Snapshot output path (.zst suffix enables compression)")
	buildCmd.Flags().BoolVar(&buildMinify, "minify", false,
		"Write compact JSON without indentation")
	buildCmd.Flags().StringVar(&buildSQLite, "sqlite", "",
		"Also export the database to a SQLite file at this path")
	buildCmd.Flags().StringVar(&buildManifest, "manifest", "",
		"Read the input set from an isa-sources.toml manifest")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	inputs := args
	if len(inputs) == 0 && buildManifest == "" {
		inputs = []string{defaultInputDir}
	}

	res, err := build.Run(build.Options{
		Inputs:       inputs,
		ManifestPath: buildManifest,
		Output:       buildOutput,
		Minify:       buildMinify,
		SQLitePath:   buildSQLite,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	for _, src := range res.Sources {
		for _, w := range src.Warnings {
			logger.Warn("document warning", "path", src.Path, "element", w.Element, "detail", w.Detail)
		}
	}

	stats := res.Snapshot.Stats()
	fmt.Printf("Wrote %s\n", buildOutput)
	fmt.Printf("  instructions:      %d\n", stats.Instructions)
	fmt.Printf("  architectures:     %d\n", stats.Architectures)
	fmt.Printf("  register singles:  %d\n", stats.Singles)
	fmt.Printf("  register ranges:   %d\n", stats.Ranges)
	if buildSQLite != "" {
		fmt.Printf("  sqlite:            %s\n", buildSQLite)
	}
	if n := res.SkippedCount(); n > 0 {
		fmt.Printf("Skipped %d malformed document(s); see log for details.\n", n)
	}

	return nil
}
