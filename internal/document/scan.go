package document

import "strings"

// token is one whitespace/comma-delimited unit with its byte span.
type token struct {
	text  string
	start int
	end   int
}

// scan walks every line once and collects the label table and the
// branch-operand label references. A line is "name:" optionally
// followed by an instruction; everything from the first ';' on is
// comment.
func scan(lines []string, lookup Lookup) (map[string]Span, []Reference) {
	labels := make(map[string]Span)
	var refs []Reference
	for i, line := range lines {
		code := line
		if c := strings.IndexByte(code, ';'); c >= 0 {
			code = code[:c]
		}
		trimmed := strings.TrimLeft(code, " \t")
		indent := len(code) - len(trimmed)

		if colon := strings.IndexByte(trimmed, ':'); colon >= 0 {
			name := strings.TrimRight(trimmed[:colon], " \t")
			if isLabel(name) {
				if _, seen := labels[name]; !seen {
					labels[name] = Span{
						Start: Position{Line: i, Character: byteToUTF16(line, indent)},
						End:   Position{Line: i, Character: byteToUTF16(line, indent+len(name))},
					}
				}
				// An instruction may follow the label on the same line.
				code = trimmed[colon+1:]
				indent += colon + 1
			}
		} else {
			code = trimmed
		}

		if lookup == nil {
			continue
		}
		refs = append(refs, scanReferences(line, i, code, indent, lookup)...)
	}
	return labels, refs
}

// scanReferences reads one instruction's tokens and keeps the operands
// sitting at a label-typed position of a known mnemonic.
func scanReferences(line string, lineNo int, code string, base int, lookup Lookup) []Reference {
	toks := tokenize(code, base)
	if len(toks) == 0 {
		return nil
	}
	ins, ok := lookup.ByExactName(toks[0].text)
	if !ok {
		return nil
	}
	var refs []Reference
	for p, tok := range toks[1:] {
		if p >= len(ins.ArgTypes) {
			break
		}
		if ins.ArgTypes[p] != "label" || !isLabel(tok.text) {
			continue
		}
		refs = append(refs, Reference{
			Label: tok.text,
			Span: Span{
				Start: Position{Line: lineNo, Character: byteToUTF16(line, tok.start)},
				End:   Position{Line: lineNo, Character: byteToUTF16(line, tok.end)},
			},
		})
	}
	return refs
}

// tokenize splits code on spaces, tabs, and commas. Byte offsets are
// relative to the containing line, shifted by base.
func tokenize(code string, base int) []token {
	var toks []token
	i := 0
	for i < len(code) {
		if isSeparator(code[i]) {
			i++
			continue
		}
		j := i
		for j < len(code) && !isSeparator(code[j]) {
			j++
		}
		toks = append(toks, token{text: code[i:j], start: base + i, end: base + j})
		i = j
	}
	return toks
}

func isSeparator(b byte) bool {
	return b == ' ' || b == '\t' || b == ','
}

// isLabelStart reports whether b may begin a label. Assembler labels
// start with a letter, underscore, dot, or dollar sign.
func isLabelStart(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_' || b == '.' || b == '$'
}

func isLabelChar(b byte) bool {
	return isLabelStart(b) || b >= '0' && b <= '9'
}

// isLabel reports whether s is a well-formed label name.
func isLabel(s string) bool {
	if s == "" || !isLabelStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isLabelChar(s[i]) {
			return false
		}
	}
	return true
}
