// Package document tracks the text of open editor documents and the
// line-level facts the language features read from them: label
// definitions and branch-operand label references.
//
// Documents are immutable values. A change notification builds a fresh
// Document and swaps it into the store, so a feature request that
// already holds a Document can never observe a concurrent edit; it
// either sees the old version whole or the new version whole.
package document

import (
	"strings"
	"sync"

	"gpuasm/internal/isa/snapshot"
)

// Position addresses a point in a document: zero-based line and
// zero-based UTF-16 column, the coordinate system of the wire protocol.
type Position struct {
	Line      int
	Character int
}

// Span is a half-open region of one line in UTF-16 columns.
type Span struct {
	Start Position
	End   Position
}

// Reference is one branch-operand token naming a label.
type Reference struct {
	Label string
	Span  Span
}

// Lookup resolves a mnemonic to its instruction record. The store uses
// it to decide which operand positions are label-typed.
type Lookup interface {
	ByExactName(name string) (*snapshot.Instruction, bool)
}

// Document is one open document at one version: its text plus the
// label table and branch references derived from it.
type Document struct {
	URI        string
	LanguageID string
	Text       string

	lines  []string
	labels map[string]Span
	refs   []Reference
}

// Store holds the open documents keyed by URI. Lifecycle notifications
// mutate it; feature requests read from it. All methods are safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	lookup Lookup
}

// NewStore returns an empty store. lookup may be nil, in which case
// branch references are not tracked and only label definitions are.
func NewStore(lookup Lookup) *Store {
	return &Store{docs: make(map[string]*Document), lookup: lookup}
}

// Open registers a document, replacing any document already open at
// the same URI.
func (s *Store) Open(uri, languageID, text string) {
	doc := newDocument(uri, languageID, text, s.lookup)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
}

// Change replaces the full text of an open document and recomputes its
// derived tables. Changes to documents that were never opened are
// dropped and reported false.
func (s *Store) Change(uri, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.docs[uri]
	if !ok {
		return false
	}
	s.docs[uri] = newDocument(uri, old.LanguageID, text, s.lookup)
	return true
}

// Close discards a document. Closing an unopened URI reports false.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[uri]; !ok {
		return false
	}
	delete(s.docs, uri)
	return true
}

// Get returns the current version of an open document.
func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	doc, ok := s.docs[uri]
	s.mu.RUnlock()
	return doc, ok
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func newDocument(uri, languageID, text string, lookup Lookup) *Document {
	doc := &Document{
		URI:        uri,
		LanguageID: languageID,
		Text:       text,
		lines:      splitLines(text),
	}
	doc.labels, doc.refs = scan(doc.lines, lookup)
	return doc
}

// splitLines breaks text on newlines, tolerating CRLF endings. Column
// arithmetic works on the stripped lines.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Line returns the i-th line of the document.
func (d *Document) Line(i int) (string, bool) {
	if i < 0 || i >= len(d.lines) {
		return "", false
	}
	return d.lines[i], true
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// ReferenceAt returns the label named by the branch-operand reference
// under pos, if any. The cursor counts as inside a token when it sits
// on or immediately after it.
func (d *Document) ReferenceAt(pos Position) (string, bool) {
	for _, ref := range d.refs {
		if ref.Span.Start.Line != pos.Line {
			continue
		}
		if pos.Character >= ref.Span.Start.Character && pos.Character <= ref.Span.End.Character {
			return ref.Label, true
		}
	}
	return "", false
}

// Definition returns the span of a label's defining occurrence. Labels
// compare case-sensitively; the first definition in line order wins.
func (d *Document) Definition(label string) (Span, bool) {
	span, ok := d.labels[label]
	return span, ok
}

// References returns the branch-operand label references in scan order.
func (d *Document) References() []Reference {
	return d.refs
}
