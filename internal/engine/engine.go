// Package engine computes the language features: hover, completion,
// definition, and signature help. It reads from the immutable
// instruction index and from whichever document version the caller
// hands it; it holds no document state of its own, so every request is
// answered against exactly one consistent snapshot of the text.
//
// "No result" is a nil return, never an error. Unknown words, filtered
// architectures, and undefined labels are ordinary outcomes.
package engine

import (
	"strings"
	"sync"

	"gpuasm/internal/document"
	"gpuasm/internal/index"
	"gpuasm/internal/isa/arch"
	"gpuasm/internal/protocol"
)

// Options tunes feature behavior.
type Options struct {
	// MinPrefix is the shortest typed prefix completion responds to.
	// Zero means 1.
	MinPrefix int
}

// Engine answers feature requests over one loaded index.
type Engine struct {
	idx *index.Index

	mu        sync.RWMutex
	override  string
	minPrefix int
}

// New builds an engine over idx.
func New(idx *index.Index, opts Options) *Engine {
	minPrefix := opts.MinPrefix
	if minPrefix <= 0 {
		minPrefix = 1
	}
	return &Engine{idx: idx, minPrefix: minPrefix}
}

// SetArchitectureOverride pins the architecture filter for every
// document, overriding language-id inference. The initialize handshake
// calls this once; a blank value clears it.
func (e *Engine) SetArchitectureOverride(override string) {
	e.mu.Lock()
	e.override = override
	e.mu.Unlock()
}

// SetMinPrefix adjusts the completion prefix gate; workspace settings
// apply it at initialize. Values below 1 are raised to 1.
func (e *Engine) SetMinPrefix(n int) {
	if n < 1 {
		n = 1
	}
	e.mu.Lock()
	e.minPrefix = n
	e.mu.Unlock()
}

// filter resolves the effective architecture filter for a document.
func (e *Engine) filter(languageID string) string {
	e.mu.RLock()
	override := e.override
	e.mu.RUnlock()
	return arch.Filter(languageID, override)
}

// Hover describes the word under the cursor: a special register's
// resolved description, or an instruction's operands, description, and
// encoding. Nil when the word is unknown or filtered out.
func (e *Engine) Hover(doc *document.Document, pos protocol.Position) *protocol.Hover {
	word, ok := doc.WordAt(document.Position{Line: pos.Line, Character: pos.Character})
	if !ok {
		return nil
	}

	// Register names shadow instruction names, so registers resolve first.
	if desc, ok := e.idx.SpecialRegisterByName(word); ok {
		return markdownHover(formatSpecialRegisterHover(strings.ToLower(word), desc))
	}

	base, variant := index.SplitVariant(word)
	ins, ok := e.idx.ByExactName(base)
	if !ok {
		return nil
	}
	if f := e.filter(doc.LanguageID); f != "" && !arch.Matches(ins.Architectures, f) {
		return nil
	}
	return markdownHover(formatHover(ins, variant))
}

func markdownHover(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
	}
}

// Completion offers the mnemonics starting with the word fragment left
// of the cursor, ascending, as edits replacing that fragment. Nil when
// there is no fragment or it is shorter than the configured minimum.
func (e *Engine) Completion(doc *document.Document, pos protocol.Position) *protocol.CompletionList {
	prefix, startChar, ok := doc.WordPrefixAt(document.Position{Line: pos.Line, Character: pos.Character})
	e.mu.RLock()
	minPrefix := e.minPrefix
	e.mu.RUnlock()
	if !ok || len(prefix) < minPrefix {
		return nil
	}

	editRange := protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: startChar},
		End:   pos,
	}
	items := make([]protocol.CompletionItem, 0, 16)
	seen := make(map[string]bool)
	for ins := range e.idx.ByPrefix(prefix, e.filter(doc.LanguageID)) {
		label := strings.ToLower(ins.Name)
		if seen[label] {
			continue
		}
		seen[label] = true
		items = append(items, protocol.CompletionItem{
			Label:    label,
			Kind:     protocol.CompletionItemKindKeyword,
			TextEdit: &protocol.TextEdit{Range: editRange, NewText: label},
		})
	}
	return &protocol.CompletionList{IsIncomplete: false, Items: items}
}

// Definition resolves a branch-operand label reference to the label's
// defining occurrence in the same document. Tokens that are not branch
// label references, and references to labels never defined, yield nil.
func (e *Engine) Definition(doc *document.Document, pos protocol.Position) *protocol.Location {
	label, ok := doc.ReferenceAt(document.Position{Line: pos.Line, Character: pos.Character})
	if !ok {
		return nil
	}
	span, ok := doc.Definition(label)
	if !ok {
		return nil
	}
	return &protocol.Location{
		URI: doc.URI,
		Range: protocol.Range{
			Start: protocol.Position{Line: span.Start.Line, Character: span.Start.Character},
			End:   protocol.Position{Line: span.End.Line, Character: span.End.Character},
		},
	}
}

// SignatureHelp shows the operand list of the line's leading mnemonic,
// with the active parameter tracked by counting commas before the
// cursor. Cursors inside comments, on the mnemonic itself, or on lines
// without a known mnemonic yield nil.
func (e *Engine) SignatureHelp(doc *document.Document, pos protocol.Position) *protocol.SignatureHelp {
	line, ok := doc.Line(pos.Line)
	if !ok {
		return nil
	}
	cursor := document.UTF16ToByte(line, pos.Character)
	if c := strings.IndexByte(line, ';'); c >= 0 && cursor >= c {
		return nil
	}

	mnemonic := firstToken(strings.TrimLeft(line, " \t"))
	if mnemonic == "" {
		return nil
	}
	base, _ := index.SplitVariant(mnemonic)
	ins, ok := e.idx.ByExactName(base)
	if !ok {
		return nil
	}
	if f := e.filter(doc.LanguageID); f != "" && !arch.Matches(ins.Architectures, f) {
		return nil
	}

	// Operands only exist past the first separator; before that the
	// cursor is still on the mnemonic.
	beforeCursor := strings.TrimLeft(line[:cursor], " \t")
	sep := strings.IndexAny(beforeCursor, " \t")
	if sep < 0 {
		return nil
	}
	argsSection := beforeCursor[sep+1:]

	var activeParameter *int
	if len(ins.Args) > 0 {
		p := strings.Count(argsSection, ",")
		if p > len(ins.Args)-1 {
			p = len(ins.Args) - 1
		}
		activeParameter = &p
	}

	label := formatMnemonic(ins.Name)
	params := make([]protocol.ParameterInformation, 0, len(ins.Args))
	if len(ins.Args) > 0 {
		label += " "
		offset := len(label)
		label += strings.Join(ins.Args, ", ")
		for i, arg := range ins.Args {
			argType := ""
			if i < len(ins.ArgTypes) {
				argType = ins.ArgTypes[i]
			}
			params = append(params, protocol.ParameterInformation{
				Label:         [2]int{offset, offset + len(arg)},
				Documentation: strings.ReplaceAll(argType, "register", "reg"),
			})
			offset += len(arg)
			if i < len(ins.Args)-1 {
				offset += 2
			}
		}
	}

	active := 0
	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:           label,
			Documentation:   ins.Description,
			Parameters:      params,
			ActiveParameter: activeParameter,
		}},
		ActiveSignature: &active,
		ActiveParameter: activeParameter,
	}
}

// firstToken returns the text before the first space, tab, or comma.
func firstToken(s string) string {
	if end := strings.IndexAny(s, " \t,"); end >= 0 {
		return s[:end]
	}
	return s
}
