// Package merge folds raw per-file instruction records into the
// canonical deduplicated list served by the snapshot.
package merge

import (
	"fmt"
	"sort"

	"gpuasm/internal/errors"
	"gpuasm/internal/isa/ingest"
	"gpuasm/internal/isa/snapshot"
)

// Merger accumulates instruction records across vendor documents.
// The merge key is the mnemonic, byte-exact with case kept as first
// seen. The first file to mention a mnemonic fixes its operand columns;
// later files only contribute architecture tags and encoding names.
// Callers must feed files in a deterministic order (the ingest package
// scans lexicographically) so "first seen" is reproducible.
type Merger struct {
	byName map[string]int
	merged []snapshot.Instruction
}

// New creates an empty Merger.
func New() *Merger {
	return &Merger{byName: make(map[string]int)}
}

// AddFile merges one parsed document, tagging its instructions with the
// file's normalized architecture. An empty tag contributes no
// architecture entry.
func (m *Merger) AddFile(file *ingest.File, tag string) error {
	for _, raw := range file.Instructions {
		if err := m.add(raw, tag); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) add(raw ingest.Instruction, tag string) error {
	if raw.Name == "" {
		return errors.NewMergeInvariantError("", "record without a name reached the merger")
	}
	if len(raw.Args) != len(raw.ArgTypes) || len(raw.Args) != len(raw.ArgDataTypes) {
		return errors.NewMergeInvariantError(raw.Name,
			fmt.Sprintf("operand columns misaligned (%d/%d/%d)",
				len(raw.Args), len(raw.ArgTypes), len(raw.ArgDataTypes)))
	}

	if idx, ok := m.byName[raw.Name]; ok {
		inst := &m.merged[idx]
		if tag != "" {
			inst.Architectures = appendUnique(inst.Architectures, tag)
		}
		for _, enc := range raw.Encodings {
			inst.AvailableEncodings = appendUnique(inst.AvailableEncodings, enc)
		}
		// Operand columns stay fixed; a description only fills a hole.
		if inst.Description == "" && raw.Description != "" {
			inst.Description = raw.Description
		}
		return nil
	}

	inst := snapshot.Instruction{
		Name:               raw.Name,
		Architectures:      []string{},
		Description:        raw.Description,
		Args:               copyStrings(raw.Args),
		ArgTypes:           copyStrings(raw.ArgTypes),
		ArgDataTypes:       copyStrings(raw.ArgDataTypes),
		AvailableEncodings: copyStrings(raw.Encodings),
	}
	if tag != "" {
		inst.Architectures = append(inst.Architectures, tag)
	}
	m.byName[raw.Name] = len(m.merged)
	m.merged = append(m.merged, inst)
	return nil
}

// Result returns the canonical list in first-seen order. Architecture
// and encoding sets are sorted so serialization is stable regardless of
// the order files were fed in.
func (m *Merger) Result() []snapshot.Instruction {
	for i := range m.merged {
		sort.Strings(m.merged[i].Architectures)
		sort.Strings(m.merged[i].AvailableEncodings)
	}
	return m.merged
}

// Len reports how many canonical instructions have been merged so far.
func (m *Merger) Len() int {
	return len(m.merged)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func copyStrings(src []string) []string {
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
