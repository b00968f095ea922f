// Package index builds the immutable lookup structures the language
// server answers from: instructions keyed by lowercased mnemonic with
// sorted prefix windows, special-register resolution over compressed
// ranges, and the encoding-variant suffix conventions of LLVM-style
// mnemonics (v_add_f32_e64, v_mov_b32_dpp, ...).
//
// An Index is built once from a loaded snapshot and is safe for
// concurrent readers; it never mutates after New returns.
package index

import (
	"iter"
	"sort"
	"strconv"
	"strings"

	"gpuasm/internal/isa/arch"
	"gpuasm/internal/isa/snapshot"
)

// Index is the read-only lookup view over one snapshot.
type Index struct {
	entries []entry
	singles map[string]string
	ranges  map[string]*snapshot.Range
}

// entry pairs a lowercased mnemonic with its instruction record.
// entries is sorted by lower, which makes prefix queries a binary
// search plus a contiguous scan.
type entry struct {
	lower string
	ins   *snapshot.Instruction
}

// New builds an Index over snap. The snapshot must not be mutated
// afterwards; the index keeps pointers into it.
func New(snap *snapshot.Snapshot) *Index {
	idx := &Index{
		entries: make([]entry, 0, len(snap.Instructions)),
		singles: make(map[string]string, len(snap.SpecialRegisters.Singles)),
		ranges:  make(map[string]*snapshot.Range, len(snap.SpecialRegisters.Ranges)),
	}
	for i := range snap.Instructions {
		ins := &snap.Instructions[i]
		idx.entries = append(idx.entries, entry{lower: strings.ToLower(ins.Name), ins: ins})
	}
	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].lower < idx.entries[j].lower
	})
	for _, s := range snap.SpecialRegisters.Singles {
		idx.singles[strings.ToLower(s.Name)] = s.Description
	}
	for i := range snap.SpecialRegisters.Ranges {
		r := &snap.SpecialRegisters.Ranges[i]
		idx.ranges[strings.ToLower(r.Prefix)] = r
	}
	return idx
}

// Len returns the number of indexed instructions.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// ByExactName returns the instruction whose mnemonic equals name,
// compared case-insensitively.
func (idx *Index) ByExactName(name string) (*snapshot.Instruction, bool) {
	lower := strings.ToLower(name)
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].lower >= lower
	})
	if i < len(idx.entries) && idx.entries[i].lower == lower {
		return idx.entries[i].ins, true
	}
	return nil, false
}

// ByPrefix yields instructions whose lowercased mnemonic starts with
// prefix, ascending by mnemonic, restricted to instructions matching
// the architecture filter (empty filter admits all). The sequence is
// restartable and supports early termination. An empty prefix yields
// the entire instruction set; callers gate that case themselves.
func (idx *Index) ByPrefix(prefix, filter string) iter.Seq[*snapshot.Instruction] {
	lower := strings.ToLower(prefix)
	start := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].lower >= lower
	})
	return func(yield func(*snapshot.Instruction) bool) {
		for i := start; i < len(idx.entries); i++ {
			e := idx.entries[i]
			if !strings.HasPrefix(e.lower, lower) {
				return
			}
			if !arch.Matches(e.ins.Architectures, filter) {
				continue
			}
			if !yield(e.ins) {
				return
			}
		}
	}
}

// SpecialRegisterByName resolves a special-register name to its
// description, case-insensitively. Singles are checked first; an
// indexed name (prefix plus decimal suffix) then resolves through the
// compressed ranges, with a per-index override taking precedence over
// the range default.
func (idx *Index) SpecialRegisterByName(name string) (string, bool) {
	lower := strings.ToLower(name)
	if desc, ok := idx.singles[lower]; ok {
		return desc, true
	}
	prefix, n, ok := splitIndexed(lower)
	if !ok {
		return "", false
	}
	r, ok := idx.ranges[prefix]
	if !ok || n < r.Start || n >= r.Start+r.Count {
		return "", false
	}
	for _, ov := range r.Overrides {
		if ov.Index == n {
			return ov.Description, true
		}
	}
	return r.Description, true
}

// splitIndexed splits a register name at its first digit into a prefix
// and a decimal index. Names whose tail is not a plain integer (ttmp10_hi)
// do not split; they only ever match as singles.
func splitIndexed(name string) (string, int, bool) {
	at := strings.IndexFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	if at <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(name[at:])
	if err != nil {
		return "", 0, false
	}
	return name[:at], n, true
}
