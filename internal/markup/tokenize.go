// Package markup splits question text written in the hybrid LaTeX/Markdown
// dialect into typed segments: plain text, inline math \( … \), block math
// \[ … \], bold **…** and line breaks.
//
// Math spans are recognised first and are atomic afterwards, so a bold span
// may wrap math but asterisks inside math never open or close bold.
// Unbalanced delimiters are left as literal text.
package markup

import "strings"

const (
	blockOpen   = `\[`
	blockClose  = `\]`
	inlineOpen  = `\(`
	inlineClose = `\)`
	boldDelim   = "**"

	// mathLineBreak replaces newlines inside block math; it is the math
	// renderer's forced line break.
	mathLineBreak = `\\`
)

var blockNewlines = strings.NewReplacer("\r\n", mathLineBreak, "\n", mathLineBreak)

// atom is a lexed unit: a run of text or one complete math span.
type atom struct {
	kind Kind
	text string
}

// Tokenize converts raw markup into segments. It accepts any input.
// Lines are separated by LineBreak segments; a blank line contributes no
// segments of its own, so it shows up as an extra LineBreak.
func Tokenize(raw string) []Segment {
	var out []Segment
	for i, line := range splitLines(lex(raw)) {
		if i > 0 {
			out = append(out, LineBreak())
		}
		if isBlank(line) {
			continue
		}
		out = append(out, emphasize(line)...)
	}
	return out
}

// lex finds block math over the whole input, then inline math in the gaps.
func lex(raw string) []atom {
	var atoms []atom
	rest := raw

	for {
		start := strings.Index(rest, blockOpen)
		if start < 0 {
			break
		}
		bodyStart := start + len(blockOpen)
		end := strings.Index(rest[bodyStart:], blockClose)
		if end < 0 {
			break
		}
		end += bodyStart

		atoms = lexInline(atoms, rest[:start])
		atoms = append(atoms, atom{kind: KindBlockMath, text: blockNewlines.Replace(rest[bodyStart:end])})
		rest = rest[end+len(blockClose):]
	}

	return lexInline(atoms, rest)
}

// lexInline appends the text and single-line inline math spans found in s.
func lexInline(atoms []atom, s string) []atom {
	for {
		open := strings.Index(s, inlineOpen)
		if open < 0 {
			break
		}
		body := s[open+len(inlineOpen):]
		end := strings.Index(body, inlineClose)
		if end < 0 {
			break
		}

		// Inline math cannot cross a line; no opener before this newline can close.
		if nl := strings.IndexByte(body[:end], '\n'); nl >= 0 {
			cut := open + len(inlineOpen) + nl
			atoms = appendText(atoms, s[:cut])
			s = s[cut:]
			continue
		}

		atoms = appendText(atoms, s[:open])
		atoms = append(atoms, atom{kind: KindInlineMath, text: body[:end]})
		s = body[end+len(inlineClose):]
	}
	return appendText(atoms, s)
}

func appendText(atoms []atom, s string) []atom {
	if s == "" {
		return atoms
	}
	if n := len(atoms); n > 0 && atoms[n-1].kind == KindText {
		atoms[n-1].text += s
		return atoms
	}
	return append(atoms, atom{kind: KindText, text: s})
}

// splitLines breaks text atoms on newlines. Math atoms never contain one.
func splitLines(atoms []atom) [][]atom {
	lines := [][]atom{nil}
	for _, a := range atoms {
		if a.kind != KindText {
			lines[len(lines)-1] = append(lines[len(lines)-1], a)
			continue
		}
		parts := strings.Split(a.text, "\n")
		for i, part := range parts {
			if i < len(parts)-1 {
				part = strings.TrimSuffix(part, "\r")
			}
			if i > 0 {
				lines = append(lines, nil)
			}
			if part != "" {
				lines[len(lines)-1] = append(lines[len(lines)-1], atom{kind: KindText, text: part})
			}
		}
	}
	return lines
}

func isBlank(line []atom) bool {
	for _, a := range line {
		if a.kind != KindText || strings.TrimSpace(a.text) != "" {
			return false
		}
	}
	return true
}

// pos addresses a byte offset inside the atom at idx.
type pos struct {
	idx, off int
}

// emphasize resolves bold spans on a single line. Matching is leftmost and
// non-greedy; once an opener has no closer, no later opener can have one.
func emphasize(line []atom) []Segment {
	var out []Segment
	for {
		open, ok := findBoldDelim(line, pos{})
		if !ok {
			break
		}
		end, ok := findBoldDelim(line, pos{open.idx, open.off + len(boldDelim)})
		if !ok {
			break
		}

		out = appendSegments(out, slice(line, pos{}, open))
		out = append(out, Bold(appendSegments(nil, slice(line, pos{open.idx, open.off + len(boldDelim)}, end))...))
		line = slice(line, pos{end.idx, end.off + len(boldDelim)}, pos{len(line), 0})
	}
	return appendSegments(out, line)
}

func findBoldDelim(line []atom, from pos) (pos, bool) {
	for i := from.idx; i < len(line); i++ {
		if line[i].kind != KindText {
			continue
		}
		start := 0
		if i == from.idx {
			start = from.off
		}
		if start > len(line[i].text) {
			continue
		}
		if j := strings.Index(line[i].text[start:], boldDelim); j >= 0 {
			return pos{i, start + j}, true
		}
	}
	return pos{}, false
}

// slice returns the atoms in [from, to). Offsets only apply to text atoms.
func slice(line []atom, from, to pos) []atom {
	var out []atom
	for i := from.idx; i < len(line) && i <= to.idx; i++ {
		a := line[i]
		if a.kind != KindText {
			if i == to.idx {
				break
			}
			out = append(out, a)
			continue
		}

		lo, hi := 0, len(a.text)
		if i == from.idx {
			lo = from.off
		}
		if i == to.idx {
			hi = to.off
		}
		if lo < hi {
			out = append(out, atom{kind: KindText, text: a.text[lo:hi]})
		}
	}
	return out
}

func appendSegments(out []Segment, atoms []atom) []Segment {
	for _, a := range atoms {
		switch a.kind {
		case KindInlineMath:
			out = append(out, InlineMath(a.text))
		case KindBlockMath:
			out = append(out, BlockMath(a.text))
		default:
			if a.text != "" {
				out = append(out, Text(a.text))
			}
		}
	}
	return out
}
