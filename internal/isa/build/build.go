// Package build orchestrates the snapshot pipeline: collect vendor
// documents, parse each one, normalize architecture labels, merge
// instructions, compile special registers, and write the artifact.
package build

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gpuasm/internal/errors"
	"gpuasm/internal/isa/arch"
	"gpuasm/internal/isa/ingest"
	"gpuasm/internal/isa/manifest"
	"gpuasm/internal/isa/merge"
	"gpuasm/internal/isa/registers"
	"gpuasm/internal/isa/snapshot"
	"gpuasm/internal/slogutil"
	"gpuasm/internal/storage"
	"gpuasm/internal/version"
)

// Options configures one build run.
type Options struct {
	// Inputs are vendor document files, or directories holding them.
	// Ignored when ManifestPath is set.
	Inputs []string

	// ManifestPath points at an isa-sources.toml manifest that pins the
	// input set and per-document architecture overrides.
	ManifestPath string

	// Output is the snapshot path. A .zst suffix enables compression.
	// Empty keeps the result in memory only.
	Output string

	// Minify drops indentation from the written JSON.
	Minify bool

	// SQLitePath, when set, additionally exports the snapshot into a
	// SQLite database.
	SQLitePath string

	Logger *slog.Logger
}

// SourceReport is one document's outcome within a run.
type SourceReport struct {
	Path         string           `json:"path"`
	Architecture string           `json:"architecture,omitempty"`
	Instructions int              `json:"instructions"`
	Registers    int              `json:"registers"`
	Warnings     []ingest.Warning `json:"warnings,omitempty"`
	Skipped      bool             `json:"skipped,omitempty"`
	Err          string           `json:"error,omitempty"`
}

// Result is what a run produced.
type Result struct {
	Snapshot *snapshot.Snapshot
	RunID    string
	Sources  []SourceReport
}

// SkippedCount reports how many documents failed to parse.
func (r *Result) SkippedCount() int {
	n := 0
	for _, s := range r.Sources {
		if s.Skipped {
			n++
		}
	}
	return n
}

// input is one document to ingest with its optional label override.
type input struct {
	path         string
	architecture string
}

// Run executes the pipeline. A malformed document is skipped with a
// warning so one bad vendor file never blocks the whole database.
// Merge violations and input sets that yield nothing are fatal.
func Run(opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	inputs, err := resolveInputs(opts, logger)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.NewDataLoadError("", fmt.Errorf("no vendor documents to ingest"))
	}

	if opts.Output != "" {
		lock, err := AcquireLock(opts.Output)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	res := &Result{RunID: uuid.New().String()}
	logger.Info("starting snapshot build", "run_id", res.RunID, "files", len(inputs))

	merger := merge.New()
	regs := registers.New()
	parsed := 0

	for _, in := range inputs {
		f, err := ingest.ParseFile(in.path)
		if err != nil {
			logger.Warn("skipping malformed document", "path", in.path, "error", err)
			res.Sources = append(res.Sources, SourceReport{Path: in.path, Skipped: true, Err: err.Error()})
			continue
		}
		raw := f.Architecture
		if in.architecture != "" {
			raw = in.architecture
		}
		tag := arch.Normalize(raw)
		if err := merger.AddFile(f, tag); err != nil {
			return nil, err
		}
		regs.Add(f.Registers)
		parsed++

		res.Sources = append(res.Sources, SourceReport{
			Path:         in.path,
			Architecture: tag,
			Instructions: len(f.Instructions),
			Registers:    len(f.Registers),
			Warnings:     f.Warnings,
		})
		logger.Debug("ingested document",
			"path", in.path,
			"architecture", tag,
			"instructions", len(f.Instructions),
			"registers", len(f.Registers),
			"warnings", len(f.Warnings))
	}

	if parsed == 0 {
		return nil, errors.NewDataLoadError("", fmt.Errorf("all %d vendor documents failed to parse", len(inputs)))
	}

	snap := &snapshot.Snapshot{
		Instructions:     merger.Result(),
		SpecialRegisters: regs.Compile(),
	}
	if err := snap.Validate(); err != nil {
		return nil, errors.NewMergeInvariantError("", err.Error())
	}
	res.Snapshot = snap

	stats := snap.Stats()

	if opts.Output != "" {
		if err := snapshot.Write(opts.Output, snap, opts.Minify); err != nil {
			return nil, err
		}

		// Best effort: a failed sidecar never fails the build.
		report := &Report{
			RunID:         res.RunID,
			CreatedAt:     start,
			ToolVersion:   version.Version,
			Duration:      time.Since(start).Round(time.Millisecond).String(),
			Instructions:  stats.Instructions,
			Architectures: snap.ArchitectureTags(),
			Sources:       res.Sources,
		}
		if sum, err := SnapshotChecksum(snap); err == nil {
			report.Checksum = sum
		}
		if err := report.Save(opts.Output); err != nil {
			logger.Warn("build report not written", "error", err)
		}
	}
	if opts.SQLitePath != "" {
		if err := storage.Export(opts.SQLitePath, snap, logger); err != nil {
			return nil, errors.NewInternalError("sqlite export failed", err)
		}
	}
	logger.Info("snapshot build complete",
		"run_id", res.RunID,
		"instructions", stats.Instructions,
		"architectures", stats.Architectures,
		"register_singles", stats.Singles,
		"register_ranges", stats.Ranges,
		"skipped", res.SkippedCount())

	return res, nil
}

// resolveInputs expands either the manifest or the positional inputs
// into the ordered document list.
func resolveInputs(opts Options, logger *slog.Logger) ([]input, error) {
	if opts.ManifestPath == "" {
		files, err := ingest.CollectFiles(opts.Inputs)
		if err != nil {
			return nil, err
		}
		inputs := make([]input, 0, len(files))
		for _, f := range files {
			inputs = append(inputs, input{path: f})
		}
		return inputs, nil
	}

	if len(opts.Inputs) > 0 {
		logger.Warn("manifest overrides positional inputs", "manifest", opts.ManifestPath)
	}
	cfg, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, errors.NewDataLoadError(opts.ManifestPath, err)
	}
	resolved, err := cfg.Resolve(filepath.Dir(opts.ManifestPath))
	if err != nil {
		return nil, errors.NewDataLoadError(opts.ManifestPath, err)
	}
	inputs := make([]input, 0, len(resolved))
	for _, r := range resolved {
		inputs = append(inputs, input{path: r.Path, architecture: r.Architecture})
	}
	return inputs, nil
}
