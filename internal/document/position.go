package document

import "unicode/utf16"

// UTF16ToByte converts a UTF-16 column on line to a byte offset. A
// column past the end of the line clamps to len(line). Columns landing
// inside a surrogate pair resolve to the start of that rune.
func UTF16ToByte(line string, character int) int {
	count := 0
	for i, r := range line {
		if count >= character {
			return i
		}
		count += utf16.RuneLen(r)
	}
	return len(line)
}

// byteToUTF16 converts a byte offset on line to a UTF-16 column.
func byteToUTF16(line string, offset int) int {
	count := 0
	for i, r := range line {
		if i >= offset {
			break
		}
		count += utf16.RuneLen(r)
	}
	return count
}

// ByteToUTF16 is the exported form of byteToUTF16 for callers that
// compute byte offsets themselves.
func ByteToUTF16(line string, offset int) int {
	return byteToUTF16(line, offset)
}

// isWordByte matches mnemonic and register name characters.
func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// WordAt returns the alphanumeric-plus-underscore word surrounding pos,
// or false when pos does not touch a word.
func (d *Document) WordAt(pos Position) (string, bool) {
	line, ok := d.Line(pos.Line)
	if !ok {
		return "", false
	}
	at := UTF16ToByte(line, pos.Character)
	start, end := at, at
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if start == end {
		return "", false
	}
	return line[start:end], true
}

// WordPrefixAt returns the word fragment immediately left of the
// cursor together with its starting UTF-16 column. A cursor with no
// word characters to its left yields false.
func (d *Document) WordPrefixAt(pos Position) (string, int, bool) {
	line, ok := d.Line(pos.Line)
	if !ok {
		return "", 0, false
	}
	at := UTF16ToByte(line, pos.Character)
	start := at
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	if start == at {
		return "", 0, false
	}
	return line[start:at], byteToUTF16(line, start), true
}
