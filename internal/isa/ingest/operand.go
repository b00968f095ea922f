package ingest

import "strings"

// registerTypes are operand type codes that name a scalar, vector, or
// dedicated hardware register.
var registerTypes = map[string]bool{
	"OPR_VGPR":               true,
	"OPR_SREG":               true,
	"OPR_SDST":               true,
	"OPR_SSRC":               true,
	"OPR_SSRC_LANESEL":       true,
	"OPR_SSRC_SPECIAL_SCC":   true,
	"OPR_SRC":                true,
	"OPR_SRC_VGPR":           true,
	"OPR_SRC_VGPR_OR_INLINE": true,
	"OPR_VCC":                true,
	"OPR_EXEC":               true,
	"OPR_SDST_EXEC":          true,
	"OPR_SDST_M0":            true,
	"OPR_SDST_NULL":          true,
	"OPR_PC":                 true,
	"OPR_TGT":                true,
}

// specialTypes are operand type codes for packed control words and other
// non-register, non-immediate operands.
var specialTypes = map[string]bool{
	"OPR_SENDMSG":        true,
	"OPR_SENDMSG_RTN":    true,
	"OPR_WAITCNT":        true,
	"OPR_WAITCNT_DEPCTR": true,
	"OPR_WAIT_EVENT":     true,
	"OPR_HWREG":          true,
	"OPR_ATTR":           true,
	"OPR_VERSION":        true,
	"OPR_CLAUSE":         true,
}

// operandKind classifies a vendor operand type code into the closed set
// used by arg_types: immediate, label, memory, register,
// register_or_inline, special, or unknown.
func operandKind(operandType string) string {
	if operandType == "" {
		return "unknown"
	}
	if strings.HasPrefix(operandType, "OPR_SIMM") ||
		operandType == "OPR_SMEM_OFFSET" ||
		operandType == "OPR_DELAY" {
		return "immediate"
	}
	if operandType == "OPR_LABEL" {
		return "label"
	}
	if operandType == "OPR_DSMEM" || operandType == "OPR_FLAT_SCRATCH" {
		return "memory"
	}
	if registerTypes[operandType] {
		if operandType == "OPR_SRC_VGPR_OR_INLINE" {
			return "register_or_inline"
		}
		return "register"
	}
	if specialTypes[operandType] {
		return "special"
	}
	return "unknown"
}
