// Package snapshot defines the canonical instruction database artifact:
// its schema, canonical JSON (de)serialization, and the validation that
// guards the server's startup load.
package snapshot

import (
	"fmt"
	"sort"
)

// Instruction is one canonical, merged instruction record. The three
// operand columns are index-aligned and derived from the instruction's
// first declared encoding only.
type Instruction struct {
	Name               string   `json:"name"`
	Architectures      []string `json:"architectures"`
	Description        string   `json:"description"`
	Args               []string `json:"args"`
	ArgTypes           []string `json:"arg_types"`
	ArgDataTypes       []string `json:"arg_data_types"`
	AvailableEncodings []string `json:"available_encodings"`
}

// Single is a special register documented individually.
type Single struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Override replaces the range default for one index.
type Override struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

// Range is a run of contiguous numbered special registers compressed
// into one record. Indices without an override resolve to Description.
type Range struct {
	Prefix      string     `json:"prefix"`
	Start       int        `json:"start"`
	Count       int        `json:"count"`
	Description string     `json:"description"`
	Overrides   []Override `json:"overrides"`
}

// SpecialRegisters is the register half of the snapshot.
type SpecialRegisters struct {
	Singles []Single `json:"singles"`
	Ranges  []Range  `json:"ranges"`
}

// Snapshot is the immutable database artifact. The pipeline owns it
// until written; the server owns it read-only after load.
type Snapshot struct {
	Instructions     []Instruction    `json:"instructions"`
	SpecialRegisters SpecialRegisters `json:"special_registers"`
}

// MinRangeLen is the minimum contiguous run that may compress into a Range.
const MinRangeLen = 3

// Validate checks the snapshot against its schema invariants: non-empty
// unique instruction names, aligned operand columns, and well-formed
// register ranges. It reports the first violation found.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Instructions))
	for i, inst := range s.Instructions {
		if inst.Name == "" {
			return fmt.Errorf("instruction %d has an empty name", i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("duplicate instruction name %q", inst.Name)
		}
		seen[inst.Name] = true
		if len(inst.Args) != len(inst.ArgTypes) || len(inst.Args) != len(inst.ArgDataTypes) {
			return fmt.Errorf("instruction %q: operand columns misaligned (%d/%d/%d)",
				inst.Name, len(inst.Args), len(inst.ArgTypes), len(inst.ArgDataTypes))
		}
	}

	for i, reg := range s.SpecialRegisters.Singles {
		if reg.Name == "" {
			return fmt.Errorf("special register %d has an empty name", i)
		}
		if reg.Description == "" {
			return fmt.Errorf("special register %q has an empty description", reg.Name)
		}
	}

	for _, r := range s.SpecialRegisters.Ranges {
		if r.Prefix == "" {
			return fmt.Errorf("register range with an empty prefix")
		}
		if r.Count < MinRangeLen {
			return fmt.Errorf("register range %q: count %d below minimum %d", r.Prefix, r.Count, MinRangeLen)
		}
		if r.Start < 0 {
			return fmt.Errorf("register range %q: negative start %d", r.Prefix, r.Start)
		}
		seenIdx := make(map[int]bool, len(r.Overrides))
		for _, o := range r.Overrides {
			if o.Index < r.Start || o.Index >= r.Start+r.Count {
				return fmt.Errorf("register range %q: override index %d outside [%d, %d)",
					r.Prefix, o.Index, r.Start, r.Start+r.Count)
			}
			if seenIdx[o.Index] {
				return fmt.Errorf("register range %q: duplicate override index %d", r.Prefix, o.Index)
			}
			seenIdx[o.Index] = true
		}
	}

	return nil
}

// Stats summarizes a snapshot for reporting.
type Stats struct {
	Instructions  int `json:"instructions"`
	Architectures int `json:"architectures"`
	Singles       int `json:"singles"`
	Ranges        int `json:"ranges"`
}

// Stats computes summary counts over the snapshot.
func (s *Snapshot) Stats() Stats {
	tags := make(map[string]bool)
	for _, inst := range s.Instructions {
		for _, tag := range inst.Architectures {
			tags[tag] = true
		}
	}
	return Stats{
		Instructions:  len(s.Instructions),
		Architectures: len(tags),
		Singles:       len(s.SpecialRegisters.Singles),
		Ranges:        len(s.SpecialRegisters.Ranges),
	}
}

// ArchitectureTags returns the sorted set of architecture tags present.
func (s *Snapshot) ArchitectureTags() []string {
	set := make(map[string]bool)
	for _, inst := range s.Instructions {
		for _, tag := range inst.Architectures {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
