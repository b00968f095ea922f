package index

import "strings"

// Variant identifies the encoding family a mnemonic suffix selects.
// Assemblers accept suffixed spellings (v_add_f32_e64) that share the
// base instruction's record but assemble into a different encoding.
type Variant int

const (
	// VariantNative is an unsuffixed mnemonic in its default encoding.
	VariantNative Variant = iota
	// VariantE32 forces the 32-bit vector encoding (_e32).
	VariantE32
	// VariantE64 forces the 64-bit VOP3 encoding (_e64).
	VariantE64
	// VariantDPP selects a data-parallel-primitives encoding (_dpp).
	VariantDPP
	// VariantSDWA selects a sub-DWORD-addressing encoding (_sdwa).
	VariantSDWA
	// VariantE64DPP combines VOP3 with DPP (_e64_dpp).
	VariantE64DPP
)

// variantSuffixes in match order. Longer suffixes come first so
// _e64_dpp is not misread as _dpp.
var variantSuffixes = []struct {
	suffix  string
	variant Variant
}{
	{"_e64_dpp", VariantE64DPP},
	{"_e32", VariantE32},
	{"_e64", VariantE64},
	{"_dpp", VariantDPP},
	{"_sdwa", VariantSDWA},
}

// SplitVariant strips a recognized encoding suffix from a mnemonic,
// matching case-insensitively, and returns the base spelling (original
// casing preserved) with the variant it selects. Unsuffixed mnemonics
// return unchanged with VariantNative.
func SplitVariant(mnemonic string) (string, Variant) {
	lower := strings.ToLower(mnemonic)
	for _, s := range variantSuffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return mnemonic[:len(mnemonic)-len(s.suffix)], s.variant
		}
	}
	return mnemonic, VariantNative
}

// MatchEncoding picks the first of an instruction's available encodings
// that satisfies the variant. Native prefers a base ENC_* encoding over
// literal-carrying forms; suffixed variants select their encoding
// family by name pattern.
func MatchEncoding(encodings []string, v Variant) (string, bool) {
	var match func(string) bool
	switch v {
	case VariantE32:
		match = func(e string) bool {
			return e == "ENC_VOP1" || e == "ENC_VOP2" || e == "ENC_VOPC"
		}
	case VariantE64:
		match = func(e string) bool { return e == "ENC_VOP3" }
	case VariantDPP:
		match = func(e string) bool { return strings.Contains(e, "DPP") }
	case VariantSDWA:
		match = func(e string) bool { return strings.Contains(e, "SDWA") }
	case VariantE64DPP:
		match = func(e string) bool {
			return strings.HasPrefix(e, "VOP3") && strings.Contains(e, "DPP")
		}
	default:
		match = func(e string) bool {
			return strings.HasPrefix(e, "ENC_") && !strings.Contains(e, "LITERAL")
		}
	}
	for _, e := range encodings {
		if match(e) {
			return e, true
		}
	}
	return "", false
}

// encodingDescriptions explains the hardware encoding names that appear
// in vendor specifications. Unknown encodings fall back to their raw
// name at the presentation layer.
var encodingDescriptions = map[string]string{
	"ENC_VOP1":  "VOP1 (32-bit): Vector ALU operation with one source",
	"ENC_VOP2":  "VOP2 (32-bit): Vector ALU operation with two sources",
	"ENC_VOPC":  "VOPC (32-bit): Vector ALU comparison operation",
	"ENC_VOP3":  "VOP3 (64-bit): Extended vector ALU with modifiers and additional operand flexibility",
	"ENC_VOP3P": "VOP3P (64-bit): Packed vector ALU operation",

	"VOP1_VOP_DPP":            "VOP1 + DPP16: Data-parallel primitives with 16-lane swizzle",
	"VOP1_VOP_DPP16":          "VOP1 + DPP16: Data-parallel primitives with 16-lane swizzle",
	"VOP1_VOP_DPP8":           "VOP1 + DPP8: Data-parallel primitives with 8-lane swizzle",
	"VOP2_VOP_DPP":            "VOP2 + DPP16: Data-parallel primitives with 16-lane swizzle",
	"VOP2_VOP_DPP16":          "VOP2 + DPP16: Data-parallel primitives with 16-lane swizzle",
	"VOP2_VOP_DPP8":           "VOP2 + DPP8: Data-parallel primitives with 8-lane swizzle",
	"VOPC_VOP_DPP":            "VOPC + DPP16: Comparison with data-parallel primitives (16-lane)",
	"VOPC_VOP_DPP16":          "VOPC + DPP16: Comparison with data-parallel primitives (16-lane)",
	"VOPC_VOP_DPP8":           "VOPC + DPP8: Comparison with data-parallel primitives (8-lane)",
	"VOP3_VOP_DPP16":          "VOP3 + DPP16: Extended VOP3 with data-parallel primitives (16-lane)",
	"VOP3_VOP_DPP8":           "VOP3 + DPP8: Extended VOP3 with data-parallel primitives (8-lane)",
	"VOP3P_VOP_DPP16":         "VOP3P + DPP16: Packed operation with data-parallel primitives (16-lane)",
	"VOP3P_VOP_DPP8":          "VOP3P + DPP8: Packed operation with data-parallel primitives (8-lane)",
	"VOP3_SDST_ENC_VOP_DPP16": "VOP3 SDST + DPP16: VOP3 with scalar destination and DPP (16-lane)",
	"VOP3_SDST_ENC_VOP_DPP8":  "VOP3 SDST + DPP8: VOP3 with scalar destination and DPP (8-lane)",

	"VOP1_VOP_SDWA": "VOP1 + SDWA: Sub-DWORD addressing for byte/word operations",
	"VOP2_VOP_SDWA": "VOP2 + SDWA: Sub-DWORD addressing for byte/word operations",
	"VOPC_VOP_SDWA": "VOPC + SDWA: Comparison with sub-DWORD addressing",

	"VOP1_INST_LITERAL":          "VOP1 + Literal (64-bit): Includes 32-bit inline constant",
	"VOP2_INST_LITERAL":          "VOP2 + Literal (64-bit): Includes 32-bit inline constant",
	"VOPC_INST_LITERAL":          "VOPC + Literal (64-bit): Includes 32-bit inline constant",
	"VOP3_INST_LITERAL":          "VOP3 + Literal (96-bit): VOP3 with 32-bit inline constant",
	"VOP3P_INST_LITERAL":         "VOP3P + Literal (96-bit): Packed operation with 32-bit inline constant",
	"VOP3_SDST_ENC_INST_LITERAL": "VOP3 SDST + Literal (96-bit): VOP3 with scalar destination and literal",

	"VOP3_SDST_ENC": "VOP3 SDST (64-bit): VOP3 with scalar destination",

	"ENC_SOP1":          "SOP1 (32-bit): Scalar ALU operation with one source",
	"ENC_SOP2":          "SOP2 (32-bit): Scalar ALU operation with two sources",
	"ENC_SOPC":          "SOPC (32-bit): Scalar ALU comparison operation",
	"ENC_SOPK":          "SOPK (32-bit): Scalar operation with 16-bit inline constant",
	"ENC_SOPP":          "SOPP (32-bit): Scalar operation for program control",
	"SOP1_INST_LITERAL": "SOP1 + Literal (64-bit): Scalar operation with 32-bit inline constant",
	"SOP2_INST_LITERAL": "SOP2 + Literal (64-bit): Scalar operation with 32-bit inline constant",
	"SOPC_INST_LITERAL": "SOPC + Literal (64-bit): Scalar comparison with 32-bit inline constant",
	"SOPK_INST_LITERAL": "SOPK + Literal (64-bit): Scalar operation with extended constant",

	"ENC_SMEM":         "SMEM: Scalar memory operation",
	"ENC_DS":           "DS: Data share (LDS/GDS) operation",
	"ENC_MUBUF":        "MUBUF: Untyped buffer memory operation",
	"ENC_MTBUF":        "MTBUF: Typed buffer memory operation",
	"ENC_MIMG":         "MIMG: Image memory operation",
	"MIMG_NSA1":        "MIMG NSA: Non-sequential address mode for images",
	"ENC_FLAT":         "FLAT: Flat addressing (global/scratch/LDS)",
	"ENC_FLAT_SCRATCH": "FLAT Scratch: Flat addressing for scratch memory",
	"ENC_FLAT_GLOBAL":  "FLAT Global: Flat addressing for global memory",

	"ENC_VINTERP":         "VINTERP: Vector interpolation operation",
	"ENC_LDSDIR":          "LDSDIR: LDS direct read operation",
	"ENC_EXP":             "EXP: Export operation for pixel/vertex data",
	"VOPDXY":              "VOPDXY: Vector operation with partial derivatives",
	"VOPDXY_INST_LITERAL": "VOPDXY + Literal: Vector partial derivative with inline constant",
}

// EncodingDescription returns the human-readable summary for a known
// encoding name.
func EncodingDescription(name string) (string, bool) {
	d, ok := encodingDescriptions[name]
	return d, ok
}
