package engine

import (
	"strings"

	"gpuasm/internal/index"
	"gpuasm/internal/isa/snapshot"
)

// formatMnemonic renders a mnemonic the way it is written in source.
func formatMnemonic(name string) string {
	return strings.ToLower(name)
}

// formatArgType compacts an operand kind for display. Unknown kinds
// are suppressed rather than shown.
func formatArgType(argType string) (string, bool) {
	switch argType {
	case "register":
		return "reg", true
	case "register_or_inline":
		return "reg/inline", true
	case "immediate":
		return "imm", true
	case "unknown":
		return "", false
	default:
		return argType, true
	}
}

// formatDataType compacts a vendor data-type code (FMT_NUM_F32 -> f32).
// Codes outside the table are suppressed.
func formatDataType(dataType string) (string, bool) {
	switch dataType {
	case "FMT_NUM_B32":
		return "b32", true
	case "FMT_NUM_B64":
		return "b64", true
	case "FMT_NUM_F16":
		return "f16", true
	case "FMT_NUM_F32":
		return "f32", true
	case "FMT_NUM_F64":
		return "f64", true
	case "FMT_NUM_BF16":
		return "bf16", true
	case "FMT_NUM_I8":
		return "i8", true
	case "FMT_NUM_I16":
		return "i16", true
	case "FMT_NUM_I32":
		return "i32", true
	case "FMT_NUM_I64":
		return "i64", true
	case "FMT_NUM_U16":
		return "u16", true
	case "FMT_NUM_U32":
		return "u32", true
	case "FMT_NUM_U64":
		return "u64", true
	case "FMT_ANY":
		return "any", true
	default:
		return "", false
	}
}

// formatHover renders an instruction as Markdown: bold mnemonic, the
// operand list with compacted types, the vendor description, and for
// suffixed spellings the selected encoding. Sections join with blank
// lines.
func formatHover(ins *snapshot.Instruction, variant index.Variant) string {
	lines := []string{"**" + formatMnemonic(ins.Name) + "**"}

	if len(ins.Args) > 0 {
		parts := make([]string, 0, len(ins.Args))
		for i, arg := range ins.Args {
			argType := "unknown"
			if i < len(ins.ArgTypes) {
				argType = ins.ArgTypes[i]
			}
			t, hasType := formatArgType(argType)
			var d string
			var hasData bool
			if i < len(ins.ArgDataTypes) {
				d, hasData = formatDataType(ins.ArgDataTypes[i])
			}
			var label string
			switch {
			case hasType && hasData:
				label = t + " " + d
			case hasType:
				label = t
			case hasData:
				label = d
			}
			if label == "" {
				parts = append(parts, arg)
			} else {
				parts = append(parts, arg+": "+label)
			}
		}
		lines = append(lines, strings.Join(parts, ", "))
	}

	if ins.Description != "" {
		lines = append(lines, ins.Description)
	}

	if variant != index.VariantNative {
		if enc, ok := index.MatchEncoding(ins.AvailableEncodings, variant); ok {
			if desc, ok := index.EncodingDescription(enc); ok {
				lines = append(lines, "Encoding: "+desc)
			} else {
				lines = append(lines, "Encoding: "+enc)
			}
		}
	}

	return strings.Join(lines, "\n\n")
}

// formatSpecialRegisterHover renders a register as Markdown: bold name
// and its resolved description.
func formatSpecialRegisterHover(name, description string) string {
	lines := []string{"**" + name + "**"}
	if description != "" {
		lines = append(lines, description)
	}
	return strings.Join(lines, "\n\n")
}
