// Package arch canonicalizes vendor architecture labels into compact
// family+version tags ("RDNA 3" -> "rdna3", "rdna3.5" -> "rdna35").
package arch

import "strings"

// families are the recognized instruction set lines.
var families = []string{"rdna", "cdna"}

// Normalize converts a free-text architecture label into its canonical tag.
// The first whitespace-delimited token naming a known family fixes the
// family; the version is taken from the digits in that token's tail, or
// from the next numeric token. Labels without a family token degrade to
// the lowercased input with whitespace removed. Normalize is pure and
// idempotent: tags it produces normalize to themselves.
func Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	tokens := strings.Fields(lowered)
	for i, tok := range tokens {
		family, rest, ok := splitFamily(tok)
		if !ok {
			continue
		}
		if version := digits(rest); version != "" {
			return family + version
		}
		if i+1 < len(tokens) && isNumeric(tokens[i+1]) {
			return family + digits(tokens[i+1])
		}
		return family
	}
	return strings.Join(tokens, "")
}

// Matches reports whether any of an instruction's architecture tags
// satisfies the filter. A bare family filter ("rdna", "cdna") matches
// every version of that family; anything else requires an exact tag.
// An empty filter matches everything.
func Matches(architectures []string, filter string) bool {
	if filter == "" {
		return true
	}
	for _, family := range families {
		if filter != family {
			continue
		}
		for _, tag := range architectures {
			if strings.HasPrefix(tag, family) {
				return true
			}
		}
		return false
	}
	for _, tag := range architectures {
		if tag == filter {
			return true
		}
	}
	return false
}

// languageFilters maps editor language identifiers to architecture filters.
// Family-only identifiers select the whole line.
var languageFilters = map[string]string{
	"rdna35": "rdna35",
	"rdna3":  "rdna3",
	"rdna4":  "rdna4",
	"cdna3":  "cdna3",
	"cdna4":  "cdna4",
	"rdna":   "rdna",
	"cdna":   "cdna",
}

// FromLanguageID resolves a document's language identifier to an
// architecture filter, or "" when the language implies none.
func FromLanguageID(id string) string {
	return languageFilters[id]
}

// Filter resolves the effective architecture filter for a document.
// A non-blank override (normalized) wins over the language identifier.
func Filter(languageID, override string) string {
	if strings.TrimSpace(override) != "" {
		return Normalize(override)
	}
	return FromLanguageID(languageID)
}

// splitFamily finds a family substring inside tok and returns the family
// plus whatever follows it in the same token.
func splitFamily(tok string) (family, rest string, ok bool) {
	for _, f := range families {
		if idx := strings.Index(tok, f); idx >= 0 {
			return f, tok[idx+len(f):], true
		}
	}
	return "", "", false
}

// digits extracts the digit characters of s in order.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isNumeric reports whether s carries version digits and no letters
// ("3" and "3.5" qualify, "v2" does not).
func isNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			return false
		}
	}
	return hasDigit
}
