// Package ingest parses vendor machine-readable ISA documents into raw
// per-file instruction and special-register records. Parsing is lenient:
// missing sub-fields degrade to "unknown" and are recorded as warnings,
// while structurally broken files fail with a SpecParseError so the rest
// of the batch can continue.
package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gpuasm/internal/errors"
)

// File is the parsed content of one vendor document.
type File struct {
	Path string

	// Architecture is the file's governing raw architecture label,
	// taken from the first ArchitectureName element. Empty when the
	// document declares none.
	Architecture string

	Instructions []Instruction

	// Registers holds raw special-register rows. Only populated for
	// documents on the RDNA line (see IsRDNASource).
	Registers []Register

	// Warnings records the fields this file degraded during parsing.
	Warnings []Warning
}

// Instruction is a raw per-file instruction record with operand metadata
// already projected from the instruction's first declared encoding.
type Instruction struct {
	Name         string
	Description  string
	Args         []string
	ArgTypes     []string
	ArgDataTypes []string

	// Encodings lists the unique encoding names declared for this
	// instruction in this file, sorted.
	Encodings []string
}

// Register is a raw special-register row prior to filtering.
type Register struct {
	Name        string
	Description string
}

// Warning records a lenient-parse degradation that did not fail the file.
type Warning struct {
	Element string `json:"element"`
	Detail  string `json:"detail"`
}

// orderLast sorts operands without a declared order after all ordered ones.
const orderLast = int(^uint32(0) >> 1)

// operand is the in-flight operand state while decoding an encoding.
type operand struct {
	fieldName  string
	opType     string
	dataFormat string
	implicit   bool
	order      int
}

// encoding is the in-flight encoding state.
type encoding struct {
	name     string
	operands []operand
}

// instruction is the in-flight instruction state.
type instruction struct {
	name        string
	description string
	encodings   []encoding
}

// ParseFile opens and parses one vendor document.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSpecParseError(path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse decodes one vendor document from r. The path is used for error
// reporting and to decide whether special registers are extracted.
func Parse(r io.Reader, path string) (*File, error) {
	out := &File{Path: path}
	wantRegisters := IsRDNASource(path)

	dec := xml.NewDecoder(r)
	// Vendor prose leans on HTML entities the XML spec does not define.
	dec.Entity = xml.HTMLEntity

	var (
		inst     *instruction
		enc      *encoding
		op       *operand
		inAlias  bool
		inValues bool
		reg      *Register

		text        *strings.Builder
		captureElem string
	)

	capture := func(elem string) {
		text = &strings.Builder{}
		captureElem = elem
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewSpecParseError(path, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Instruction":
				inst = &instruction{}
			case "AliasedInstructionNames":
				inAlias = true
			case "InstructionName":
				if inst != nil && !inAlias {
					capture(t.Name.Local)
				}
			case "ArchitectureName":
				capture(t.Name.Local)
			case "InstructionEncoding":
				if inst != nil {
					enc = &encoding{}
				}
			case "EncodingName":
				if enc != nil {
					capture(t.Name.Local)
				}
			case "Operand":
				if enc != nil {
					o := operand{order: orderLast}
					for _, attr := range t.Attr {
						switch attr.Name.Local {
						case "IsImplicit":
							o.implicit = strings.EqualFold(attr.Value, "true")
						case "Order":
							n, err := strconv.Atoi(attr.Value)
							if err != nil {
								out.warn("Operand", fmt.Sprintf("unparsable Order attribute %q", attr.Value))
								continue
							}
							o.order = n
						}
					}
					op = &o
				}
			case "FieldName", "OperandType", "DataFormatName":
				if op != nil {
					capture(t.Name.Local)
				}
			case "OperandPredefinedValues":
				inValues = true
			case "PredefinedValue":
				if inValues && wantRegisters {
					reg = &Register{}
				}
			case "Name":
				if reg != nil {
					capture(t.Name.Local)
				}
			case "Description":
				// Instruction prose lives directly under Instruction;
				// register prose under PredefinedValue. Descriptions in
				// other positions are ignored.
				if reg != nil || (inst != nil && enc == nil && inst.description == "") {
					capture(t.Name.Local)
				}
			}

		case xml.EndElement:
			// Only the element that opened the capture may close it;
			// markup nested inside a captured region passes through.
			captured := ""
			closed := false
			if text != nil && t.Name.Local == captureElem {
				captured = strings.TrimSpace(text.String())
				text = nil
				captureElem = ""
				closed = true
			}

			switch t.Name.Local {
			case "AliasedInstructionNames":
				inAlias = false
			case "InstructionName":
				if closed && inst != nil && inst.name == "" {
					inst.name = captured
				}
			case "ArchitectureName":
				if closed && out.Architecture == "" {
					out.Architecture = captured
				}
			case "EncodingName":
				if closed && enc != nil {
					enc.name = captured
				}
			case "FieldName":
				if closed && op != nil {
					op.fieldName = captured
				}
			case "OperandType":
				if closed && op != nil {
					op.opType = captured
				}
			case "DataFormatName":
				if closed && op != nil {
					op.dataFormat = captured
				}
			case "Operand":
				if enc != nil && op != nil {
					enc.operands = append(enc.operands, *op)
				}
				op = nil
			case "InstructionEncoding":
				if inst != nil && enc != nil {
					if enc.name == "" {
						out.warn("InstructionEncoding", "encoding without a name")
					}
					inst.encodings = append(inst.encodings, *enc)
				}
				enc = nil
			case "Instruction":
				if inst != nil {
					out.finishInstruction(inst)
				}
				inst = nil
			case "OperandPredefinedValues":
				inValues = false
			case "PredefinedValue":
				if reg != nil && reg.Name != "" {
					out.Registers = append(out.Registers, *reg)
				}
				reg = nil
			case "Name":
				if closed && reg != nil {
					reg.Name = captured
				}
			case "Description":
				if !closed {
					break
				}
				switch {
				case reg != nil:
					reg.Description = captured
				case inst != nil && enc == nil && inst.description == "":
					inst.description = captured
				}
			}

		case xml.CharData:
			if text != nil {
				text.Write(t)
			}
		}
	}

	return out, nil
}

// finishInstruction projects the in-flight state into a raw record.
func (f *File) finishInstruction(inst *instruction) {
	if inst.name == "" {
		f.warn("Instruction", "instruction without a name skipped")
		return
	}

	rec := Instruction{
		Name:        inst.name,
		Description: inst.description,
	}

	// Operand metadata comes from the first declared encoding only.
	if len(inst.encodings) > 0 {
		rec.Args, rec.ArgTypes, rec.ArgDataTypes = buildArgs(inst.encodings[0].operands)
	}

	seen := make(map[string]bool, len(inst.encodings))
	for _, e := range inst.encodings {
		if e.name == "" || seen[e.name] {
			continue
		}
		seen[e.name] = true
		rec.Encodings = append(rec.Encodings, e.name)
	}
	sort.Strings(rec.Encodings)

	f.Instructions = append(f.Instructions, rec)
}

// buildArgs projects an encoding's operands into the three parallel
// columns. Implicit operands are skipped; the rest are sorted by their
// declared order, with unordered operands keeping declaration order at
// the end.
func buildArgs(operands []operand) (args, argTypes, argDataTypes []string) {
	sorted := make([]operand, len(operands))
	copy(sorted, operands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].order < sorted[j].order
	})

	for _, o := range sorted {
		if o.implicit {
			continue
		}
		label := o.fieldName
		if label == "" {
			label = o.opType
		}
		if label == "" {
			label = "operand"
		}
		args = append(args, label)
		argTypes = append(argTypes, operandKind(o.opType))
		dataType := o.dataFormat
		if dataType == "" {
			dataType = "unknown"
		}
		argDataTypes = append(argDataTypes, dataType)
	}
	return args, argTypes, argDataTypes
}

func (f *File) warn(element, detail string) {
	f.Warnings = append(f.Warnings, Warning{Element: element, Detail: detail})
}

// IsRDNASource reports whether a document contributes special registers.
// Only the RDNA line documents them; CDNA files never do.
func IsRDNASource(path string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(path)), "rdna")
}

// CollectFiles expands a mix of directories and file paths into the
// ordered list of vendor documents to ingest. Directories contribute
// their immediate *.xml entries. The result is sorted lexicographically
// by path so merge results do not depend on filesystem iteration order.
func CollectFiles(inputs []string) ([]string, error) {
	var files []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, errors.NewSpecParseError(input, err)
		}
		if !info.IsDir() {
			files = append(files, input)
			continue
		}
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, errors.NewSpecParseError(input, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
				files = append(files, filepath.Join(input, entry.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
