// Package registers compiles raw special-register rows into the
// Single/Range form stored in the snapshot. Rows arrive from RDNA
// documents only; the compiler filters aliases and placeholders,
// applies curated descriptions, deduplicates across files, and
// collapses contiguous numbered families into ranges.
package registers

import (
	_ "embed"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gpuasm/internal/isa/ingest"
	"gpuasm/internal/isa/snapshot"
)

//go:embed rules.yaml
var rulesYAML []byte

// ruleTable is the curated register knowledge shipped with the binary.
type ruleTable struct {
	CompressPrefixes     []string          `yaml:"compress_prefixes"`
	DescriptionOverrides map[string]string `yaml:"description_overrides"`
}

var rules = mustLoadRules()

func mustLoadRules() ruleTable {
	var t ruleTable
	if err := yaml.Unmarshal(rulesYAML, &t); err != nil {
		panic("registers: embedded rule table: " + err.Error())
	}
	return t
}

func compressible(prefix string) bool {
	for _, p := range rules.CompressPrefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

// isNumericLiteral reports whether the name is really an inline
// constant, such as "0.5" or "-1".
func isNumericLiteral(name string) bool {
	_, err := strconv.ParseFloat(name, 64)
	return err == nil
}

// isPlainRegister reports whether the name is an ordinary scalar or
// vector register alias of the sN/vN form.
func isPlainRegister(name string) bool {
	if len(name) < 2 {
		return false
	}
	if name[0] != 's' && name[0] != 'v' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

func ignored(lower string) bool {
	return isPlainRegister(lower) || isNumericLiteral(lower)
}

// isSeeAbove reports whether the description is the vendor's cross
// reference placeholder rather than real prose.
func isSeeAbove(desc string) bool {
	t := strings.TrimSpace(desc)
	return t == "<p>See above.</p>" || strings.EqualFold(t, "see above")
}

// splitNumericSuffix splits "ttmp12" into ("ttmp", 12). Names without
// a digit, with a leading digit, or with a malformed suffix do not
// split.
func splitNumericSuffix(name string) (string, int, bool) {
	at := -1
	for i := 0; i < len(name); i++ {
		if name[i] >= '0' && name[i] <= '9' {
			at = i
			break
		}
	}
	if at <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(name[at:])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return name[:at], index, true
}

type entry struct {
	name        string
	description string
}

// Compiler accumulates rows across source files. Entries are keyed by
// lowercased name; when the same register shows up in several files the
// longest description wins, a proxy for the most complete one.
type Compiler struct {
	byName map[string]*entry
}

// New creates an empty Compiler.
func New() *Compiler {
	return &Compiler{byName: make(map[string]*entry)}
}

// Add folds one file's raw rows in. Numeric literals and plain sN/vN
// aliases are not special registers and are skipped. Placeholder
// descriptions are cleared, then curated overrides are applied so they
// win over any vendor text.
func (c *Compiler) Add(regs []ingest.Register) {
	for _, r := range regs {
		lower := strings.ToLower(r.Name)
		if ignored(lower) {
			continue
		}
		desc := r.Description
		if isSeeAbove(desc) {
			desc = ""
		}
		if fixed, ok := rules.DescriptionOverrides[lower]; ok {
			desc = fixed
		}
		if existing, ok := c.byName[lower]; ok {
			if len(desc) > len(existing.description) {
				existing.description = desc
			}
			continue
		}
		c.byName[lower] = &entry{name: r.Name, description: desc}
	}
}

// Len reports how many distinct registers have been accumulated.
func (c *Compiler) Len() int {
	return len(c.byName)
}

type member struct {
	index int
	entry *entry
}

// Compile produces the snapshot representation. Numbered families with
// a curated prefix compress into one Range per contiguous run of at
// least snapshot.MinRangeLen indices; everything else stays a Single.
// Entries left without a usable description are dropped. Compile is
// deterministic regardless of the order rows were added.
func (c *Compiler) Compile() snapshot.SpecialRegisters {
	all := make([]*entry, 0, len(c.byName))
	for _, e := range c.byName {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].name < all[j].name })

	groups := make(map[string][]member)
	prefixes := make([]string, 0)
	singles := make([]snapshot.Single, 0)

	for _, e := range all {
		prefix, index, ok := splitNumericSuffix(e.name)
		if !ok {
			singles = append(singles, snapshot.Single{Name: e.name, Description: e.description})
			continue
		}
		if _, seen := groups[prefix]; !seen {
			prefixes = append(prefixes, prefix)
		}
		groups[prefix] = append(groups[prefix], member{index: index, entry: e})
	}
	sort.Strings(prefixes)

	ranges := make([]snapshot.Range, 0)
	for _, prefix := range prefixes {
		items := groups[prefix]
		if !compressible(prefix) {
			singles = append(singles, backfill(items)...)
			continue
		}
		if r, ok := compress(prefix, items); ok {
			ranges = append(ranges, r)
			continue
		}
		for _, m := range items {
			singles = append(singles, snapshot.Single{Name: m.entry.name, Description: m.entry.description})
		}
	}

	kept := singles[:0]
	for _, s := range singles {
		if strings.TrimSpace(s.Description) != "" {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Prefix < ranges[j].Prefix })

	return snapshot.SpecialRegisters{Singles: kept, Ranges: ranges}
}

// backfill turns a numbered family that never compresses into singles,
// copying the family's first real description onto members that have
// none. Some vendor tables document only the first member of such a
// family and leave the rest blank.
func backfill(items []member) []snapshot.Single {
	fallback := ""
	for _, m := range items {
		if strings.TrimSpace(m.entry.description) != "" {
			fallback = m.entry.description
			break
		}
	}
	out := make([]snapshot.Single, 0, len(items))
	for _, m := range items {
		desc := m.entry.description
		if strings.TrimSpace(desc) == "" {
			desc = fallback
		}
		if strings.TrimSpace(desc) == "" {
			continue
		}
		out = append(out, snapshot.Single{Name: m.entry.name, Description: desc})
	}
	return out
}

// compress collapses one numbered family into a Range. It refuses when
// the indices are not contiguous, the run is too short, or no member
// carries a description the range could resolve to.
func compress(prefix string, items []member) (snapshot.Range, bool) {
	sort.Slice(items, func(i, j int) bool { return items[i].index < items[j].index })

	start := items[0].index
	end := items[len(items)-1].index
	contiguous := end-start+1 == len(items)
	if contiguous {
		for off, m := range items {
			if m.index != start+off {
				contiguous = false
				break
			}
		}
	}
	if !contiguous || len(items) < snapshot.MinRangeLen {
		return snapshot.Range{}, false
	}

	counts := make(map[string]int)
	for _, m := range items {
		if strings.TrimSpace(m.entry.description) != "" {
			counts[m.entry.description]++
		}
	}
	descs := make([]string, 0, len(counts))
	for d := range counts {
		descs = append(descs, d)
	}
	sort.Strings(descs)
	majority := ""
	best := 0
	for _, d := range descs {
		if counts[d] >= best {
			majority = d
			best = counts[d]
		}
	}
	if majority == "" {
		return snapshot.Range{}, false
	}

	overrides := make([]snapshot.Override, 0)
	for _, m := range items {
		desc := m.entry.description
		if strings.TrimSpace(desc) == "" || desc == majority {
			continue
		}
		overrides = append(overrides, snapshot.Override{Index: m.index, Description: desc})
	}

	return snapshot.Range{
		Prefix:      prefix,
		Start:       start,
		Count:       len(items),
		Description: majority,
		Overrides:   overrides,
	}, true
}
